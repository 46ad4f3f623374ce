package accessService_test

import (
	"context"
	"testing"
	"time"

	"patrimonio-service/internal/model/patrimonio"
	"patrimonio-service/internal/repository/grantCache"
	"patrimonio-service/internal/service/accessService"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGrantSource struct {
	grants []*patrimonio.Grant
	calls  int
}

func (f *fakeGrantSource) ListForUser(ctx context.Context, userID uuid.UUID) ([]*patrimonio.Grant, error) {
	f.calls++
	return f.grants, nil
}

func ptr(v int64) *int64 { return &v }

func setup(t *testing.T, grants []*patrimonio.Grant) (*accessService.AccessService, *fakeGrantSource) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	cli := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	src := &fakeGrantSource{grants: grants}
	return accessService.New(src, grantCache.New(cli, 5*time.Minute)), src
}

func TestCanEdit_SelfOwnershipAlwaysWins(t *testing.T) {
	me := uuid.New()
	// no grants at all
	svc, _ := setup(t, nil)
	r, err := svc.ResolverFor(context.Background(), me)
	require.NoError(t, err)

	assert.True(t, r.CanEdit(&me, 1))
	assert.True(t, r.CanEdit(&me, 999))
}

func TestCanEdit_NilOwnerFailsClosed(t *testing.T) {
	me := uuid.New()
	// even a specific grant on the record does not open an unowned record
	svc, _ := setup(t, []*patrimonio.Grant{
		{UserID: me, PatrimonioID: ptr(7), OwnerID: uuid.New()},
	})
	r, err := svc.ResolverFor(context.Background(), me)
	require.NoError(t, err)

	assert.False(t, r.CanEdit(nil, 7))
}

func TestCanEdit_WildcardOwner(t *testing.T) {
	me := uuid.New()
	generous := uuid.New()
	svc, _ := setup(t, []*patrimonio.Grant{
		{UserID: me, PatrimonioID: nil, OwnerID: generous},
	})
	r, err := svc.ResolverFor(context.Background(), me)
	require.NoError(t, err)

	// every record of that owner is editable
	assert.True(t, r.CanEdit(&generous, 1))
	assert.True(t, r.CanEdit(&generous, 2))

	stranger := uuid.New()
	assert.False(t, r.CanEdit(&stranger, 1))
}

func TestCanEdit_SpecificGrant(t *testing.T) {
	me := uuid.New()
	owner := uuid.New()
	svc, _ := setup(t, []*patrimonio.Grant{
		{UserID: me, PatrimonioID: ptr(15), OwnerID: owner},
	})
	r, err := svc.ResolverFor(context.Background(), me)
	require.NoError(t, err)

	assert.True(t, r.CanEdit(&owner, 15))
	assert.False(t, r.CanEdit(&owner, 16))
}

func TestCanEdit_Unauthenticated(t *testing.T) {
	owner := uuid.New()
	r := accessService.Unauthenticated()
	assert.False(t, r.CanEdit(&owner, 1))
	assert.False(t, r.CanEdit(nil, 1))
}

func TestResolverFor_UsesCacheUntilRefresh(t *testing.T) {
	me := uuid.New()
	owner := uuid.New()
	svc, src := setup(t, []*patrimonio.Grant{
		{UserID: me, PatrimonioID: ptr(1), OwnerID: owner},
	})
	ctx := context.Background()

	_, err := svc.ResolverFor(ctx, me)
	require.NoError(t, err)
	assert.Equal(t, 1, src.calls)

	// second resolve is served from the snapshot cache
	_, err = svc.ResolverFor(ctx, me)
	require.NoError(t, err)
	assert.Equal(t, 1, src.calls)

	// grant state changes elsewhere: stale until an explicit refresh
	src.grants = append(src.grants, &patrimonio.Grant{UserID: me, PatrimonioID: ptr(2), OwnerID: owner})
	r, err := svc.ResolverFor(ctx, me)
	require.NoError(t, err)
	assert.False(t, r.CanEdit(&owner, 2))

	r, err = svc.Refresh(ctx, me)
	require.NoError(t, err)
	assert.Equal(t, 2, src.calls)
	assert.True(t, r.CanEdit(&owner, 2))
}

func TestInvalidateForcesReload(t *testing.T) {
	me := uuid.New()
	svc, src := setup(t, nil)
	ctx := context.Background()

	_, err := svc.ResolverFor(ctx, me)
	require.NoError(t, err)
	require.NoError(t, svc.Invalidate(ctx, me))

	_, err = svc.ResolverFor(ctx, me)
	require.NoError(t, err)
	assert.Equal(t, 2, src.calls)
}

func TestResolverFor_NilUserDeniesAll(t *testing.T) {
	svc, _ := setup(t, nil)
	r, err := svc.ResolverFor(context.Background(), uuid.Nil)
	require.NoError(t, err)
	owner := uuid.New()
	assert.False(t, r.CanEdit(&owner, 1))
}
