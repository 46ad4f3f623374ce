// Package patrimonioService implements the asset-record lifecycle: field
// validation and normalization, uniqueness checks, owner resolution from a
// human-entered email, image reconciliation against object storage and the
// final record write, in that order.
package patrimonioService

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"patrimonio-service/internal/format"
	"patrimonio-service/internal/imaging"
	"patrimonio-service/internal/model/patrimonio"
	"patrimonio-service/internal/model/profile"
	"patrimonio-service/internal/service/accessService"
	"patrimonio-service/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

var (
	ErrNotFound        = errors.New("patrimônio not found")
	ErrForbidden       = errors.New("not allowed to edit this patrimônio")
	ErrUnauthenticated = errors.New("no authenticated user")
)

// ValidationError is a field-scoped rejection raised before any store call.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// CollisionError reports an add-mode uniqueness violation. Field is one of
// "patNum", "atmNum" or "both".
type CollisionError struct {
	Field string
}

func (e *CollisionError) Error() string {
	if e.Field == "both" {
		return "patrimônio and ATM numbers already registered"
	}
	return fmt.Sprintf("%s already registered", e.Field)
}

const ownerNotFoundWarning = "email não encontrado; o responsável não foi alterado"

var (
	numericRegex = regexp.MustCompile(`^\d+([.,]\d+)?$`)
	emailRegex   = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
)

type PatrimonioStore interface {
	Create(ctx context.Context, p *patrimonio.Patrimonio) (int64, error)
	GetByID(ctx context.Context, id int64) (*patrimonio.Patrimonio, error)
	Update(ctx context.Context, p *patrimonio.Patrimonio) error
	Delete(ctx context.Context, id int64) error
	FindByTags(ctx context.Context, patNum, atmNum string) ([]*patrimonio.Patrimonio, error)
	GetByPatNum(ctx context.Context, patNum string) (*patrimonio.Patrimonio, error)
	GetByAtmNum(ctx context.Context, atmNum string) (*patrimonio.Patrimonio, error)
	ListBySala(ctx context.Context, sala string) ([]*patrimonio.Patrimonio, error)
}

type ProfileStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*profile.Profile, error)
	GetByEmail(ctx context.Context, email string) (*profile.Profile, error)
	List(ctx context.Context) ([]*profile.Profile, error)
}

type ImageStore interface {
	UploadImage(ctx context.Context, data []byte) (string, error)
	DeleteImage(ctx context.Context, key string) error
	SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error)
}

type GrantStore interface {
	ListEditors(ctx context.Context, patrimonioID int64) ([]uuid.UUID, error)
	SetEditors(ctx context.Context, patrimonioID int64, ownerID uuid.UUID, userIDs []uuid.UUID) error
	GrantWildcard(ctx context.Context, userID, ownerID uuid.UUID) error
	RevokeWildcard(ctx context.Context, userID, ownerID uuid.UUID) error
}

type Service struct {
	patrimonios PatrimonioStore
	profiles    ProfileStore
	images      ImageStore
	grants      GrantStore
	access      *accessService.AccessService
	signedTTL   time.Duration

	// collapses one user's concurrent identical create submissions into a
	// single flight, so a double-submit cannot race past the uniqueness
	// check. Different users submitting the same tags run separate flights;
	// each must face the collision check rather than inherit another user's
	// record, and the store's unique indexes backstop the remaining race.
	createGroup singleflight.Group
}

func New(patrimonios PatrimonioStore, profiles ProfileStore, images ImageStore, grants GrantStore, access *accessService.AccessService, signedTTL time.Duration) *Service {
	return &Service{
		patrimonios: patrimonios,
		profiles:    profiles,
		images:      images,
		grants:      grants,
		access:      access,
		signedTTL:   signedTTL,
	}
}

// SaveInput carries one submission of the manage-asset form.
type SaveInput struct {
	PatNum      string
	AtmNum      string
	AtmEnabled  bool // ATM switch; when off the ATM tag is forced empty
	Descricao   string
	Valor       string
	Sala        string
	Conservacao string
	Responsavel string // owner email as entered

	ImageData   []byte // new photo, nil when untouched
	RemoveImage bool
}

type SaveResult struct {
	Patrimonio *patrimonio.Patrimonio
	// Warning carries the non-fatal owner-resolution notice, empty on a
	// clean save.
	Warning string
}

// normalizeTags applies the canonical formats and the at-least-one rule.
func normalizeTags(in *SaveInput) (string, string, error) {
	patNum := ""
	if strings.TrimSpace(in.PatNum) != "" {
		patNum = format.PatNum(in.PatNum)
		if patNum == "" {
			return "", "", &ValidationError{Field: "patNum", Message: "patrimônio inválido (XXXXXXXXX-X)"}
		}
	}

	atmNum := ""
	if in.AtmEnabled && strings.TrimSpace(in.AtmNum) != "" {
		atmNum = format.AtmNum(in.AtmNum)
		if atmNum == "" {
			return "", "", &ValidationError{Field: "atmNum", Message: "ATM inválido (XXX XXXXXX X)"}
		}
	}

	if patNum == "" && atmNum == "" {
		return "", "", &ValidationError{Field: "patNum", Message: "preencha pelo menos o número de patrimônio ou ATM"}
	}
	return patNum, atmNum, nil
}

func validateFields(in *SaveInput) error {
	if strings.TrimSpace(in.Descricao) == "" {
		return &ValidationError{Field: "descricao", Message: "descrição é obrigatória"}
	}
	if in.Sala == "" {
		return &ValidationError{Field: "sala", Message: "sala é obrigatória"}
	}
	if !numericRegex.MatchString(in.Sala) {
		return &ValidationError{Field: "sala", Message: "deve ser um número"}
	}
	if in.Valor == "" {
		return &ValidationError{Field: "valor", Message: "valor é obrigatório"}
	}
	if !numericRegex.MatchString(in.Valor) {
		return &ValidationError{Field: "valor", Message: "deve ser um número"}
	}
	if in.Conservacao == "" {
		return &ValidationError{Field: "conservacao", Message: "estado de conservação é obrigatório"}
	}
	if !patrimonio.ValidConservacao(in.Conservacao) {
		return &ValidationError{Field: "conservacao", Message: "estado de conservação desconhecido"}
	}
	if strings.TrimSpace(in.Responsavel) == "" {
		return &ValidationError{Field: "responsavel", Message: "responsável é obrigatório"}
	}
	if !emailRegex.MatchString(strings.TrimSpace(in.Responsavel)) {
		return &ValidationError{Field: "responsavel", Message: "email inválido"}
	}
	return nil
}

func (s *Service) actor(ctx context.Context, actorID uuid.UUID) (*profile.Profile, error) {
	if actorID == uuid.Nil {
		return nil, ErrUnauthenticated
	}
	actor, err := s.profiles.GetByID(ctx, actorID)
	if err != nil {
		return nil, fmt.Errorf("failed to load acting user: %w", err)
	}
	if actor == nil {
		return nil, ErrUnauthenticated
	}
	return actor, nil
}

// resolveOwner maps the entered email to an identity. A miss keeps the
// fallback owner and returns a warning instead of blocking the write.
func (s *Service) resolveOwner(ctx context.Context, email string, fallback *uuid.UUID) (*uuid.UUID, string, error) {
	p, err := s.profiles.GetByEmail(ctx, email)
	if err != nil {
		return nil, "", fmt.Errorf("failed to resolve owner email: %w", err)
	}
	if p == nil {
		return fallback, ownerNotFoundWarning, nil
	}
	id := p.ID
	return &id, "", nil
}

// Create runs the full add-mode reconciliation. All validation happens
// before any store call; the image upload happens before the row insert so
// a failed upload aborts the submission without a half-written record.
func (s *Service) Create(ctx context.Context, actorID uuid.UUID, in SaveInput) (*SaveResult, error) {
	actor, err := s.actor(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if err := validateFields(&in); err != nil {
		return nil, err
	}
	patNum, atmNum, err := normalizeTags(&in)
	if err != nil {
		return nil, err
	}

	key := actor.ID.String() + "|" + patNum + "|" + atmNum
	v, err, _ := s.createGroup.Do(key, func() (interface{}, error) {
		return s.doCreate(ctx, actor, in, patNum, atmNum)
	})
	if err != nil {
		return nil, err
	}
	return v.(*SaveResult), nil
}

func (s *Service) doCreate(ctx context.Context, actor *profile.Profile, in SaveInput, patNum, atmNum string) (*SaveResult, error) {
	existing, err := s.patrimonios.FindByTags(ctx, patNum, atmNum)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing patrimônio: %w", err)
	}
	if len(existing) > 0 {
		patHit, atmHit := false, false
		for _, e := range existing {
			if patNum != "" && e.PatNum == patNum {
				patHit = true
			}
			if atmNum != "" && e.AtmNum == atmNum {
				atmHit = true
			}
		}
		switch {
		case patHit && atmHit:
			return nil, &CollisionError{Field: "both"}
		case patHit:
			return nil, &CollisionError{Field: "patNum"}
		case atmHit:
			return nil, &CollisionError{Field: "atmNum"}
		}
	}

	// owner defaults to the creating user
	ownerID := actor.ID
	owner := &ownerID
	warning := ""
	email := strings.TrimSpace(in.Responsavel)
	if email != "" && !strings.EqualFold(email, actor.Email) {
		owner, warning, err = s.resolveOwner(ctx, email, &ownerID)
		if err != nil {
			return nil, err
		}
	}

	img := patrimonio.Image{}
	if len(in.ImageData) > 0 {
		processed, err := imaging.Process(in.ImageData)
		if err != nil {
			return nil, &ValidationError{Field: "image", Message: "imagem inválida"}
		}
		fileName, err := s.images.UploadImage(ctx, processed.Data)
		if err != nil {
			return nil, fmt.Errorf("failed to upload image: %w", err)
		}
		img = patrimonio.Image{FileName: fileName, Width: processed.Width, Height: processed.Height}
	}

	rec := &patrimonio.Patrimonio{
		PatNum:       patNum,
		AtmNum:       atmNum,
		Descricao:    in.Descricao,
		Valor:        in.Valor,
		Sala:         in.Sala,
		Conservacao:  in.Conservacao,
		Image:        img,
		OwnerID:      owner,
		LastEditedBy: actor.Email,
		LastEditedAt: time.Now().UTC(),
	}

	id, err := s.patrimonios.Create(ctx, rec)
	if err != nil {
		if img.FileName != "" {
			// compensate: the record never landed, drop the fresh blob
			if delErr := s.images.DeleteImage(ctx, img.FileName); delErr != nil {
				logger.GetLogger(ctx).Warn("failed to delete orphaned image",
					zap.String("fileName", img.FileName), zap.Error(delErr))
			}
		}
		return nil, fmt.Errorf("failed to insert patrimônio: %w", err)
	}
	rec.ID = id

	return &SaveResult{Patrimonio: rec, Warning: warning}, nil
}

// Update runs the edit-mode reconciliation on an existing record.
func (s *Service) Update(ctx context.Context, actorID uuid.UUID, id int64, in SaveInput) (*SaveResult, error) {
	actor, err := s.actor(ctx, actorID)
	if err != nil {
		return nil, err
	}

	current, err := s.patrimonios.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch patrimônio: %w", err)
	}
	if current == nil {
		return nil, ErrNotFound
	}

	resolver, err := s.access.ResolverFor(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if !resolver.CanEdit(current.OwnerID, current.ID) {
		return nil, ErrForbidden
	}

	if err := validateFields(&in); err != nil {
		return nil, err
	}
	patNum, atmNum, err := normalizeTags(&in)
	if err != nil {
		return nil, err
	}

	// only the owner may reassign responsibility; an editor's entry is a
	// display projection and is ignored here
	owner := current.OwnerID
	warning := ""
	isOwner := current.OwnerID != nil && *current.OwnerID == actor.ID
	email := strings.TrimSpace(in.Responsavel)
	if isOwner && email != "" && !strings.EqualFold(email, actor.Email) {
		owner, warning, err = s.resolveOwner(ctx, email, current.OwnerID)
		if err != nil {
			return nil, err
		}
	}

	img, err := s.reconcileImage(ctx, current.Image, &in)
	if err != nil {
		return nil, err
	}

	updated := *current
	updated.PatNum = patNum
	updated.AtmNum = atmNum
	updated.Descricao = in.Descricao
	updated.Valor = in.Valor
	updated.Sala = in.Sala
	updated.Conservacao = in.Conservacao
	updated.Image = img
	updated.OwnerID = owner
	updated.LastEditedBy = actor.Email
	updated.LastEditedAt = time.Now().UTC()

	if err := s.patrimonios.Update(ctx, &updated); err != nil {
		return nil, fmt.Errorf("failed to update patrimônio: %w", err)
	}

	return &SaveResult{Patrimonio: &updated, Warning: warning}, nil
}

// reconcileImage applies exactly one of: keep, remove, replace. Deleting
// the old blob is best-effort; uploading the new one is not, and its
// failure aborts the submission before any record write.
func (s *Service) reconcileImage(ctx context.Context, current patrimonio.Image, in *SaveInput) (patrimonio.Image, error) {
	switch {
	case len(in.ImageData) > 0:
		if current.FileName != "" {
			if err := s.images.DeleteImage(ctx, current.FileName); err != nil {
				logger.GetLogger(ctx).Warn("failed to delete replaced image",
					zap.String("fileName", current.FileName), zap.Error(err))
			}
		}
		processed, err := imaging.Process(in.ImageData)
		if err != nil {
			return patrimonio.Image{}, &ValidationError{Field: "image", Message: "imagem inválida"}
		}
		fileName, err := s.images.UploadImage(ctx, processed.Data)
		if err != nil {
			return patrimonio.Image{}, fmt.Errorf("failed to upload image: %w", err)
		}
		return patrimonio.Image{FileName: fileName, Width: processed.Width, Height: processed.Height}, nil

	case in.RemoveImage:
		if current.FileName != "" {
			if err := s.images.DeleteImage(ctx, current.FileName); err != nil {
				logger.GetLogger(ctx).Warn("failed to delete removed image",
					zap.String("fileName", current.FileName), zap.Error(err))
			}
		}
		return patrimonio.Image{}, nil

	default:
		return current, nil
	}
}

// Delete removes the image blob best-effort, then the record
// authoritatively. A failed row delete is reported, never swallowed.
func (s *Service) Delete(ctx context.Context, actorID uuid.UUID, id int64) error {
	if _, err := s.actor(ctx, actorID); err != nil {
		return err
	}

	current, err := s.patrimonios.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to fetch patrimônio: %w", err)
	}
	if current == nil {
		return ErrNotFound
	}

	resolver, err := s.access.ResolverFor(ctx, actorID)
	if err != nil {
		return err
	}
	if !resolver.CanEdit(current.OwnerID, current.ID) {
		return ErrForbidden
	}

	if current.Image.FileName != "" {
		if err := s.images.DeleteImage(ctx, current.Image.FileName); err != nil {
			logger.GetLogger(ctx).Warn("failed to delete image blob",
				zap.String("fileName", current.Image.FileName), zap.Error(err))
		}
	}

	if err := s.patrimonios.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete patrimônio: %w", err)
	}
	return nil
}
