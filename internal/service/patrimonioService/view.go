package patrimonioService

import (
	"context"
	"fmt"
	"strings"

	"patrimonio-service/internal/format"
	"patrimonio-service/internal/model/patrimonio"
	"patrimonio-service/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// View is a record prepared for display: the owner id projected back to an
// email, a short-lived signed link to the photo and the caller's edit
// permission.
type View struct {
	patrimonio.Patrimonio
	OwnerEmail string `json:"ownerEmail"`
	ImageURL   string `json:"imageUrl"`
	CanEdit    bool   `json:"canEdit"`
}

// SearchQuery holds one lookup; exactly one field is used, checked in
// query, patNum, atmNum, sala order. Query carries a raw scanned payload
// and routes by content: any letter means an ATM tag, else a patrimony
// tag.
type SearchQuery struct {
	Query  string
	PatNum string
	AtmNum string
	Sala   string
}

func (s *Service) buildView(ctx context.Context, rec *patrimonio.Patrimonio, canEdit bool) *View {
	v := &View{Patrimonio: *rec, CanEdit: canEdit}

	if rec.OwnerID != nil {
		owner, err := s.profiles.GetByID(ctx, *rec.OwnerID)
		if err == nil && owner != nil {
			v.OwnerEmail = owner.Email
		}
	}

	if rec.Image.FileName != "" {
		url, err := s.images.SignedURL(ctx, rec.Image.FileName, s.signedTTL)
		if err != nil {
			logger.GetLogger(ctx).Warn("failed to sign image url",
				zap.String("fileName", rec.Image.FileName), zap.Error(err))
		} else {
			v.ImageURL = url
		}
	}
	return v
}

func (s *Service) Get(ctx context.Context, actorID uuid.UUID, id int64) (*View, error) {
	rec, err := s.patrimonios.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch patrimônio: %w", err)
	}
	if rec == nil {
		return nil, ErrNotFound
	}

	resolver, err := s.access.ResolverFor(ctx, actorID)
	if err != nil {
		return nil, err
	}
	return s.buildView(ctx, rec, resolver.CanEdit(rec.OwnerID, rec.ID)), nil
}

// Search looks a record up by exact normalized tag or lists a room. Free
// text in the tag fields is normalized before matching, so a scanned
// barcode payload works as-is.
func (s *Service) Search(ctx context.Context, actorID uuid.UUID, q SearchQuery) ([]*View, error) {
	resolver, err := s.access.ResolverFor(ctx, actorID)
	if err != nil {
		return nil, err
	}

	var records []*patrimonio.Patrimonio
	switch {
	case strings.TrimSpace(q.Query) != "":
		tag := format.Dispatch(q.Query)
		if tag == "" {
			return nil, &ValidationError{Field: "query", Message: "identificador inválido"}
		}
		var rec *patrimonio.Patrimonio
		if strings.Contains(tag, " ") {
			rec, err = s.patrimonios.GetByAtmNum(ctx, tag)
		} else {
			rec, err = s.patrimonios.GetByPatNum(ctx, tag)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to search by scanned tag: %w", err)
		}
		if rec != nil {
			records = append(records, rec)
		}

	case strings.TrimSpace(q.PatNum) != "":
		patNum := format.PatNum(q.PatNum)
		if patNum == "" {
			return nil, &ValidationError{Field: "patNum", Message: "patrimônio inválido (XXXXXXXXX-X)"}
		}
		rec, err := s.patrimonios.GetByPatNum(ctx, patNum)
		if err != nil {
			return nil, fmt.Errorf("failed to search by patNum: %w", err)
		}
		if rec != nil {
			records = append(records, rec)
		}

	case strings.TrimSpace(q.AtmNum) != "":
		atmNum := format.AtmNum(q.AtmNum)
		if atmNum == "" {
			return nil, &ValidationError{Field: "atmNum", Message: "ATM inválido (XXX XXXXXX X)"}
		}
		rec, err := s.patrimonios.GetByAtmNum(ctx, atmNum)
		if err != nil {
			return nil, fmt.Errorf("failed to search by atmNum: %w", err)
		}
		if rec != nil {
			records = append(records, rec)
		}

	case strings.TrimSpace(q.Sala) != "":
		records, err = s.patrimonios.ListBySala(ctx, strings.TrimSpace(q.Sala))
		if err != nil {
			return nil, fmt.Errorf("failed to search by sala: %w", err)
		}

	default:
		return nil, &ValidationError{Field: "query", Message: "informe patNum, atmNum ou sala"}
	}

	if len(records) == 0 {
		return nil, ErrNotFound
	}

	views := make([]*View, 0, len(records))
	for _, rec := range records {
		views = append(views, s.buildView(ctx, rec, resolver.CanEdit(rec.OwnerID, rec.ID)))
	}
	return views, nil
}
