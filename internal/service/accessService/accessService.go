package accessService

import (
	"context"
	"fmt"

	"patrimonio-service/internal/model/patrimonio"
	"patrimonio-service/internal/repository/grantCache"

	"github.com/google/uuid"
)

// GrantSource lists the grant rows where a user is grantee.
type GrantSource interface {
	ListForUser(ctx context.Context, userID uuid.UUID) ([]*patrimonio.Grant, error)
}

// SnapshotCache holds resolved grant snapshots between refreshes.
type SnapshotCache interface {
	Get(ctx context.Context, userID uuid.UUID) (*grantCache.Snapshot, bool, error)
	Set(ctx context.Context, userID uuid.UUID, snap *grantCache.Snapshot) error
	Invalidate(ctx context.Context, userID uuid.UUID) error
}

// Resolver answers edit-permission questions for one user against grant
// state fetched once. It never re-fetches; callers needing fresher state
// ask the service for a new resolver.
type Resolver struct {
	userID        uuid.UUID
	authenticated bool
	specific      map[int64]struct{}
	wildcard      map[uuid.UUID]struct{}
}

// Unauthenticated returns a resolver that denies everything.
func Unauthenticated() *Resolver {
	return &Resolver{}
}

func NewResolver(userID uuid.UUID, snap *grantCache.Snapshot) *Resolver {
	r := &Resolver{
		userID:        userID,
		authenticated: true,
		specific:      make(map[int64]struct{}, len(snap.SpecificIDs)),
		wildcard:      make(map[uuid.UUID]struct{}, len(snap.WildcardOwners)),
	}
	for _, id := range snap.SpecificIDs {
		r.specific[id] = struct{}{}
	}
	for _, owner := range snap.WildcardOwners {
		r.wildcard[owner] = struct{}{}
	}
	return r
}

// CanEdit reports whether the resolver's user may edit the given record.
// Rule order: self-ownership wins; records without an owner are closed to
// everyone; then wildcard grants; then specific grants.
func (r *Resolver) CanEdit(ownerID *uuid.UUID, patrimonioID int64) bool {
	if !r.authenticated {
		return false
	}
	if ownerID != nil && *ownerID == r.userID {
		return true
	}
	if ownerID == nil {
		return false
	}
	if _, ok := r.wildcard[*ownerID]; ok {
		return true
	}
	if _, ok := r.specific[patrimonioID]; ok {
		return true
	}
	return false
}

type AccessService struct {
	grants GrantSource
	cache  SnapshotCache
}

func New(grants GrantSource, cache SnapshotCache) *AccessService {
	return &AccessService{grants: grants, cache: cache}
}

func buildSnapshot(grants []*patrimonio.Grant) *grantCache.Snapshot {
	snap := &grantCache.Snapshot{}
	for _, g := range grants {
		if g.PatrimonioID != nil {
			snap.SpecificIDs = append(snap.SpecificIDs, *g.PatrimonioID)
		} else {
			snap.WildcardOwners = append(snap.WildcardOwners, g.OwnerID)
		}
	}
	return snap
}

// ResolverFor returns a resolver for the user, serving the cached snapshot
// when one is live and loading from the store otherwise. A cached snapshot
// may lag permission changes from other sessions until it expires or is
// explicitly refreshed.
func (s *AccessService) ResolverFor(ctx context.Context, userID uuid.UUID) (*Resolver, error) {
	if userID == uuid.Nil {
		return Unauthenticated(), nil
	}

	snap, found, err := s.cache.Get(ctx, userID)
	if err == nil && found {
		return NewResolver(userID, snap), nil
	}

	return s.Refresh(ctx, userID)
}

// Refresh reloads the user's grants from the store and repopulates the
// cache: the screen-focus refetch of the permission model.
func (s *AccessService) Refresh(ctx context.Context, userID uuid.UUID) (*Resolver, error) {
	grants, err := s.grants.ListForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch grants: %w", err)
	}
	snap := buildSnapshot(grants)
	// cache write failure is not worth failing the request over
	_ = s.cache.Set(ctx, userID, snap)
	return NewResolver(userID, snap), nil
}

// Invalidate drops a user's cached snapshot, forcing the next resolver to
// load fresh grant state.
func (s *AccessService) Invalidate(ctx context.Context, userID uuid.UUID) error {
	return s.cache.Invalidate(ctx, userID)
}
