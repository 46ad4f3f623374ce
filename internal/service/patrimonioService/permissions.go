package patrimonioService

import (
	"context"
	"fmt"

	"patrimonio-service/internal/model/patrimonio"
	"patrimonio-service/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// EditorEntry is one row of the permissions screen: a profile merged with
// its current grant state on a record.
type EditorEntry struct {
	UserID   uuid.UUID `json:"user_id"`
	Name     string    `json:"name"`
	Email    string    `json:"email"`
	IsEditor bool      `json:"is_editor"`
}

// requireOwnedRecord loads the record and verifies the actor owns it;
// grants are mutated only by the owner, never by other editors.
func (s *Service) requireOwnedRecord(ctx context.Context, actorID uuid.UUID, id int64) (*patrimonio.Patrimonio, error) {
	if actorID == uuid.Nil {
		return nil, ErrUnauthenticated
	}
	rec, err := s.patrimonios.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch patrimônio: %w", err)
	}
	if rec == nil {
		return nil, ErrNotFound
	}
	if rec.OwnerID == nil || *rec.OwnerID != actorID {
		return nil, ErrForbidden
	}
	return rec, nil
}

// ListEditors merges the full profile list with the record's specific
// grants into the checkbox view the permissions screen renders.
func (s *Service) ListEditors(ctx context.Context, actorID uuid.UUID, id int64) ([]EditorEntry, error) {
	rec, err := s.requireOwnedRecord(ctx, actorID, id)
	if err != nil {
		return nil, err
	}

	profiles, err := s.profiles.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list profiles: %w", err)
	}
	editorIDs, err := s.grants.ListEditors(ctx, rec.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list editors: %w", err)
	}

	editors := make(map[uuid.UUID]struct{}, len(editorIDs))
	for _, id := range editorIDs {
		editors[id] = struct{}{}
	}

	entries := make([]EditorEntry, 0, len(profiles))
	for _, p := range profiles {
		if p.ID == actorID {
			// the owner is implicit, not a checkbox
			continue
		}
		name := p.FullName
		if name == "" {
			name = "usuário sem nome"
		}
		_, isEditor := editors[p.ID]
		entries = append(entries, EditorEntry{
			UserID:   p.ID,
			Name:     name,
			Email:    p.Email,
			IsEditor: isEditor,
		})
	}
	return entries, nil
}

// SetEditors transactionally replaces the record's specific grants with the
// selected grantees, then drops the affected users' cached grant snapshots.
func (s *Service) SetEditors(ctx context.Context, actorID uuid.UUID, id int64, userIDs []uuid.UUID) error {
	rec, err := s.requireOwnedRecord(ctx, actorID, id)
	if err != nil {
		return err
	}

	previous, err := s.grants.ListEditors(ctx, rec.ID)
	if err != nil {
		return fmt.Errorf("failed to list editors: %w", err)
	}

	if err := s.grants.SetEditors(ctx, rec.ID, actorID, userIDs); err != nil {
		return fmt.Errorf("failed to save permissions: %w", err)
	}

	touched := make(map[uuid.UUID]struct{}, len(previous)+len(userIDs))
	for _, u := range previous {
		touched[u] = struct{}{}
	}
	for _, u := range userIDs {
		touched[u] = struct{}{}
	}
	for u := range touched {
		if err := s.access.Invalidate(ctx, u); err != nil {
			logger.GetLogger(ctx).Warn("failed to invalidate grant cache",
				zap.String("userID", u.String()), zap.Error(err))
		}
	}
	return nil
}

// GrantWildcard gives the grantee edit rights over every record the actor
// owns.
func (s *Service) GrantWildcard(ctx context.Context, actorID, granteeID uuid.UUID) error {
	if actorID == uuid.Nil {
		return ErrUnauthenticated
	}
	if granteeID == actorID {
		return &ValidationError{Field: "user_id", Message: "o dono já pode editar os próprios patrimônios"}
	}
	grantee, err := s.profiles.GetByID(ctx, granteeID)
	if err != nil {
		return fmt.Errorf("failed to load grantee: %w", err)
	}
	if grantee == nil {
		return ErrNotFound
	}
	if err := s.grants.GrantWildcard(ctx, granteeID, actorID); err != nil {
		return fmt.Errorf("failed to grant wildcard: %w", err)
	}
	if err := s.access.Invalidate(ctx, granteeID); err != nil {
		logger.GetLogger(ctx).Warn("failed to invalidate grant cache",
			zap.String("userID", granteeID.String()), zap.Error(err))
	}
	return nil
}

func (s *Service) RevokeWildcard(ctx context.Context, actorID, granteeID uuid.UUID) error {
	if actorID == uuid.Nil {
		return ErrUnauthenticated
	}
	if err := s.grants.RevokeWildcard(ctx, granteeID, actorID); err != nil {
		return fmt.Errorf("failed to revoke wildcard: %w", err)
	}
	if err := s.access.Invalidate(ctx, granteeID); err != nil {
		logger.GetLogger(ctx).Warn("failed to invalidate grant cache",
			zap.String("userID", granteeID.String()), zap.Error(err))
	}
	return nil
}
