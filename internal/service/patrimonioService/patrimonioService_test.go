package patrimonioService_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"sync"
	"testing"
	"time"

	"patrimonio-service/internal/model/patrimonio"
	"patrimonio-service/internal/model/profile"
	"patrimonio-service/internal/repository/grantCache"
	"patrimonio-service/internal/service/accessService"
	"patrimonio-service/internal/service/patrimonioService"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---- fakes --------------------------------------------------------------

type fakePatrimonioStore struct {
	mu      sync.Mutex
	records map[int64]*patrimonio.Patrimonio
	nextID  int64

	createCalls int
	updateCalls int
	findCalls   int
	createErr   error
	deleteErr   error

	// onFind blocks inside FindByTags, letting tests hold submissions at
	// the uniqueness check so they overlap
	onFind func()
}

func newFakePatrimonioStore() *fakePatrimonioStore {
	return &fakePatrimonioStore{records: map[int64]*patrimonio.Patrimonio{}, nextID: 1}
}

func (f *fakePatrimonioStore) Create(ctx context.Context, p *patrimonio.Patrimonio) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createCalls++
	if f.createErr != nil {
		return 0, f.createErr
	}
	id := f.nextID
	f.nextID++
	cp := *p
	cp.ID = id
	f.records[id] = &cp
	return id, nil
}

func (f *fakePatrimonioStore) GetByID(ctx context.Context, id int64) (*patrimonio.Patrimonio, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p, ok := f.records[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, nil
}

func (f *fakePatrimonioStore) Update(ctx context.Context, p *patrimonio.Patrimonio) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updateCalls++
	cp := *p
	f.records[p.ID] = &cp
	return nil
}

func (f *fakePatrimonioStore) Delete(ctx context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	delete(f.records, id)
	return nil
}

func (f *fakePatrimonioStore) FindByTags(ctx context.Context, patNum, atmNum string) ([]*patrimonio.Patrimonio, error) {
	f.mu.Lock()
	f.findCalls++
	hook := f.onFind
	f.mu.Unlock()
	if hook != nil {
		hook()
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*patrimonio.Patrimonio
	for _, p := range f.records {
		if (patNum != "" && p.PatNum == patNum) || (atmNum != "" && p.AtmNum == atmNum) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakePatrimonioStore) GetByPatNum(ctx context.Context, patNum string) (*patrimonio.Patrimonio, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.records {
		if p.PatNum == patNum && patNum != "" {
			cp := *p
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakePatrimonioStore) GetByAtmNum(ctx context.Context, atmNum string) (*patrimonio.Patrimonio, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.records {
		if p.AtmNum == atmNum && atmNum != "" {
			cp := *p
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakePatrimonioStore) ListBySala(ctx context.Context, sala string) ([]*patrimonio.Patrimonio, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*patrimonio.Patrimonio
	for _, p := range f.records {
		if p.Sala == sala {
			out = append(out, p)
		}
	}
	return out, nil
}

type fakeProfileStore struct {
	profiles map[uuid.UUID]*profile.Profile
}

func newFakeProfileStore(profiles ...*profile.Profile) *fakeProfileStore {
	f := &fakeProfileStore{profiles: map[uuid.UUID]*profile.Profile{}}
	for _, p := range profiles {
		f.profiles[p.ID] = p
	}
	return f
}

func (f *fakeProfileStore) GetByID(ctx context.Context, id uuid.UUID) (*profile.Profile, error) {
	return f.profiles[id], nil
}

func (f *fakeProfileStore) GetByEmail(ctx context.Context, email string) (*profile.Profile, error) {
	for _, p := range f.profiles {
		if p.Email == email {
			return p, nil
		}
	}
	return nil, nil
}

func (f *fakeProfileStore) List(ctx context.Context) ([]*profile.Profile, error) {
	var out []*profile.Profile
	for _, p := range f.profiles {
		out = append(out, p)
	}
	return out, nil
}

type fakeImageStore struct {
	uploads   []string
	deletes   []string
	uploadErr error
	deleteErr error
}

func (f *fakeImageStore) UploadImage(ctx context.Context, data []byte) (string, error) {
	if f.uploadErr != nil {
		return "", f.uploadErr
	}
	key := fmt.Sprintf("patPhotos/%d.jpg", len(f.uploads)+1)
	f.uploads = append(f.uploads, key)
	return key, nil
}

func (f *fakeImageStore) DeleteImage(ctx context.Context, key string) error {
	f.deletes = append(f.deletes, key)
	return f.deleteErr
}

func (f *fakeImageStore) SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	return "https://storage.local/signed/" + key, nil
}

type fakeGrantStore struct {
	grants []*patrimonio.Grant
}

func (f *fakeGrantStore) ListForUser(ctx context.Context, userID uuid.UUID) ([]*patrimonio.Grant, error) {
	var out []*patrimonio.Grant
	for _, g := range f.grants {
		if g.UserID == userID {
			out = append(out, g)
		}
	}
	return out, nil
}

func (f *fakeGrantStore) ListEditors(ctx context.Context, patrimonioID int64) ([]uuid.UUID, error) {
	var out []uuid.UUID
	for _, g := range f.grants {
		if g.PatrimonioID != nil && *g.PatrimonioID == patrimonioID {
			out = append(out, g.UserID)
		}
	}
	return out, nil
}

func (f *fakeGrantStore) SetEditors(ctx context.Context, patrimonioID int64, ownerID uuid.UUID, userIDs []uuid.UUID) error {
	kept := f.grants[:0]
	for _, g := range f.grants {
		if g.PatrimonioID == nil || *g.PatrimonioID != patrimonioID {
			kept = append(kept, g)
		}
	}
	f.grants = kept
	for _, u := range userIDs {
		if u == ownerID {
			continue
		}
		id := patrimonioID
		f.grants = append(f.grants, &patrimonio.Grant{UserID: u, PatrimonioID: &id, OwnerID: ownerID})
	}
	return nil
}

func (f *fakeGrantStore) GrantWildcard(ctx context.Context, userID, ownerID uuid.UUID) error {
	f.grants = append(f.grants, &patrimonio.Grant{UserID: userID, OwnerID: ownerID})
	return nil
}

func (f *fakeGrantStore) RevokeWildcard(ctx context.Context, userID, ownerID uuid.UUID) error {
	kept := f.grants[:0]
	for _, g := range f.grants {
		if !(g.UserID == userID && g.OwnerID == ownerID && g.PatrimonioID == nil) {
			kept = append(kept, g)
		}
	}
	f.grants = kept
	return nil
}

// ---- harness ------------------------------------------------------------

type harness struct {
	svc      *patrimonioService.Service
	store    *fakePatrimonioStore
	profiles *fakeProfileStore
	images   *fakeImageStore
	grants   *fakeGrantStore
	access   *accessService.AccessService

	owner  *profile.Profile
	editor *profile.Profile
	other  *profile.Profile
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	cli := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	h := &harness{
		store:  newFakePatrimonioStore(),
		images: &fakeImageStore{},
		grants: &fakeGrantStore{},
		owner:  &profile.Profile{ID: uuid.New(), FullName: "Dona Clara", Email: "clara@inst.br"},
		editor: &profile.Profile{ID: uuid.New(), FullName: "Eduardo", Email: "eduardo@inst.br"},
		other:  &profile.Profile{ID: uuid.New(), FullName: "Otávio", Email: "otavio@inst.br"},
	}
	h.profiles = newFakeProfileStore(h.owner, h.editor, h.other)
	h.access = accessService.New(h.grants, grantCache.New(cli, time.Minute))
	h.svc = patrimonioService.New(h.store, h.profiles, h.images, h.grants, h.access, time.Minute)
	return h
}

func validInput() patrimonioService.SaveInput {
	return patrimonioService.SaveInput{
		PatNum:      "123456789-0",
		Descricao:   "Cadeira giratória",
		Valor:       "150,00",
		Sala:        "101",
		Conservacao: patrimonio.ConservacaoBom,
		Responsavel: "clara@inst.br",
	}
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 10, 10))))
	return buf.Bytes()
}

// seed inserts a record owned by h.owner directly into the fake store.
func (h *harness) seed(t *testing.T, mutate func(p *patrimonio.Patrimonio)) *patrimonio.Patrimonio {
	t.Helper()
	ownerID := h.owner.ID
	p := &patrimonio.Patrimonio{
		PatNum:       "000000001-1",
		Descricao:    "Mesa",
		Valor:        "200",
		Sala:         "101",
		Conservacao:  patrimonio.ConservacaoBom,
		OwnerID:      &ownerID,
		LastEditedBy: h.owner.Email,
		LastEditedAt: time.Now().Add(-time.Hour),
	}
	if mutate != nil {
		mutate(p)
	}
	id, err := h.store.Create(context.Background(), p)
	require.NoError(t, err)
	h.store.createCalls = 0
	p.ID = id
	return p
}

// ---- create -------------------------------------------------------------

func TestCreate_MissingBothTagsRejectedBeforeAnyStoreCall(t *testing.T) {
	h := newHarness(t)
	in := validInput()
	in.PatNum = ""
	in.AtmNum = ""

	_, err := h.svc.Create(context.Background(), h.owner.ID, in)

	var verr *patrimonioService.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "patNum", verr.Field)
	assert.Zero(t, h.store.createCalls)
	assert.Zero(t, h.store.findCalls)
}

func TestCreate_HappyPath(t *testing.T) {
	h := newHarness(t)
	in := validInput()

	res, err := h.svc.Create(context.Background(), h.owner.ID, in)
	require.NoError(t, err)
	assert.Empty(t, res.Warning)

	// exactly one uniqueness check and one insert
	assert.Equal(t, 1, h.store.findCalls)
	assert.Equal(t, 1, h.store.createCalls)

	rec := res.Patrimonio
	assert.Equal(t, "123456789-0", rec.PatNum)
	assert.Equal(t, "", rec.AtmNum)
	assert.Equal(t, patrimonio.ConservacaoBom, rec.Conservacao)
	require.NotNil(t, rec.OwnerID)
	assert.Equal(t, h.owner.ID, *rec.OwnerID)
	assert.Equal(t, h.owner.Email, rec.LastEditedBy)
	assert.WithinDuration(t, time.Now(), rec.LastEditedAt, 5*time.Second)
}

func TestCreate_OwnerResolvedFromDifferentEmail(t *testing.T) {
	h := newHarness(t)
	in := validInput()
	in.Responsavel = h.other.Email

	res, err := h.svc.Create(context.Background(), h.owner.ID, in)
	require.NoError(t, err)
	assert.Empty(t, res.Warning)
	require.NotNil(t, res.Patrimonio.OwnerID)
	assert.Equal(t, h.other.ID, *res.Patrimonio.OwnerID)
	// audit stamp stays with the acting user
	assert.Equal(t, h.owner.Email, res.Patrimonio.LastEditedBy)
}

func TestCreate_UnknownEmailFallsBackToActorWithWarning(t *testing.T) {
	h := newHarness(t)
	in := validInput()
	in.Responsavel = "ninguem@inst.br"

	res, err := h.svc.Create(context.Background(), h.owner.ID, in)
	require.NoError(t, err)
	assert.NotEmpty(t, res.Warning)
	require.NotNil(t, res.Patrimonio.OwnerID)
	assert.Equal(t, h.owner.ID, *res.Patrimonio.OwnerID)
	assert.Equal(t, 1, h.store.createCalls)
}

func TestCreate_CollisionDistinguishesFields(t *testing.T) {
	h := newHarness(t)
	h.seed(t, func(p *patrimonio.Patrimonio) {
		p.PatNum = "123456789-0"
		p.AtmNum = "ABC 123456 7"
	})

	// patNum collision only
	in := validInput()
	_, err := h.svc.Create(context.Background(), h.owner.ID, in)
	var cerr *patrimonioService.CollisionError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "patNum", cerr.Field)

	// both collide
	in.AtmNum = "ABC-1234567"
	in.AtmEnabled = true
	_, err = h.svc.Create(context.Background(), h.owner.ID, in)
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "both", cerr.Field)

	assert.Zero(t, h.store.createCalls)
}

func TestCreate_AtmDisabledForcesEmptyAtm(t *testing.T) {
	h := newHarness(t)
	in := validInput()
	in.AtmNum = "XYZ9876543"
	in.AtmEnabled = false

	res, err := h.svc.Create(context.Background(), h.owner.ID, in)
	require.NoError(t, err)
	assert.Equal(t, "", res.Patrimonio.AtmNum)
}

func TestCreate_InvalidConservacaoRejected(t *testing.T) {
	h := newHarness(t)
	in := validInput()
	in.Conservacao = "Quebrado"

	_, err := h.svc.Create(context.Background(), h.owner.ID, in)
	var verr *patrimonioService.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "conservacao", verr.Field)
	assert.Zero(t, h.store.createCalls)
}

func TestCreate_WithImageUploadsBeforeInsert(t *testing.T) {
	h := newHarness(t)
	in := validInput()
	in.ImageData = pngBytes(t)

	res, err := h.svc.Create(context.Background(), h.owner.ID, in)
	require.NoError(t, err)
	require.Len(t, h.images.uploads, 1)
	assert.Equal(t, h.images.uploads[0], res.Patrimonio.Image.FileName)
	assert.Equal(t, 10, res.Patrimonio.Image.Width)
	assert.Equal(t, 10, res.Patrimonio.Image.Height)
}

func TestCreate_UploadFailureAbortsBeforeInsert(t *testing.T) {
	h := newHarness(t)
	h.images.uploadErr = errors.New("bucket unreachable")
	in := validInput()
	in.ImageData = pngBytes(t)

	_, err := h.svc.Create(context.Background(), h.owner.ID, in)
	require.Error(t, err)
	assert.Zero(t, h.store.createCalls)
}

func TestCreate_InsertFailureDropsFreshBlob(t *testing.T) {
	h := newHarness(t)
	h.store.createErr = errors.New("connection reset")
	in := validInput()
	in.ImageData = pngBytes(t)

	_, err := h.svc.Create(context.Background(), h.owner.ID, in)
	require.Error(t, err)
	require.Len(t, h.images.uploads, 1)
	assert.Equal(t, h.images.uploads, h.images.deletes)
}

func TestCreate_Unauthenticated(t *testing.T) {
	h := newHarness(t)
	_, err := h.svc.Create(context.Background(), uuid.Nil, validInput())
	assert.ErrorIs(t, err, patrimonioService.ErrUnauthenticated)
	assert.Zero(t, h.store.createCalls)
}

func TestCreate_SameUserDoubleSubmitCollapses(t *testing.T) {
	h := newHarness(t)

	// hold the first submission at the uniqueness check so the duplicate
	// arrives while it is still in flight
	gate := make(chan struct{})
	h.store.onFind = func() { <-gate }

	type outcome struct {
		res *patrimonioService.SaveResult
		err error
	}
	results := make(chan outcome, 2)
	for i := 0; i < 2; i++ {
		go func() {
			res, err := h.svc.Create(context.Background(), h.owner.ID, validInput())
			results <- outcome{res, err}
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(gate)

	first := <-results
	second := <-results
	require.NoError(t, first.err)
	require.NoError(t, second.err)

	// both callers share one flight: one check, one insert, one record
	assert.Equal(t, first.res.Patrimonio.ID, second.res.Patrimonio.ID)
	assert.Equal(t, 1, h.store.findCalls)
	assert.Equal(t, 1, h.store.createCalls)
	assert.Len(t, h.store.records, 1)
}

func TestCreate_ConcurrentIdenticalTagsAcrossUsersKeepOwnIdentity(t *testing.T) {
	h := newHarness(t)

	// both submissions pass the uniqueness check before either inserts
	var atCheck sync.WaitGroup
	atCheck.Add(2)
	h.store.onFind = func() {
		atCheck.Done()
		atCheck.Wait()
	}

	actors := []*profile.Profile{h.owner, h.other}
	results := make([]*patrimonioService.SaveResult, 2)
	errs := make([]error, 2)
	var done sync.WaitGroup
	done.Add(2)
	for i, actor := range actors {
		go func(i int, actor *profile.Profile) {
			defer done.Done()
			in := validInput()
			in.Responsavel = actor.Email
			results[i], errs[i] = h.svc.Create(context.Background(), actor.ID, in)
		}(i, actor)
	}
	done.Wait()

	// the users never share a flight, so neither may receive a record
	// owned by or audit-stamped with the other's identity
	assert.Equal(t, 2, h.store.findCalls)
	for i, actor := range actors {
		if errs[i] != nil {
			var cerr *patrimonioService.CollisionError
			assert.ErrorAs(t, errs[i], &cerr)
			continue
		}
		require.NotNil(t, results[i].Patrimonio.OwnerID)
		assert.Equal(t, actor.ID, *results[i].Patrimonio.OwnerID)
		assert.Equal(t, actor.Email, results[i].Patrimonio.LastEditedBy)
	}
}

// ---- update -------------------------------------------------------------

func editInput(p *patrimonio.Patrimonio, responsavel string) patrimonioService.SaveInput {
	return patrimonioService.SaveInput{
		PatNum:      p.PatNum,
		AtmNum:      p.AtmNum,
		AtmEnabled:  p.AtmNum != "",
		Descricao:   p.Descricao,
		Valor:       p.Valor,
		Sala:        p.Sala,
		Conservacao: p.Conservacao,
		Responsavel: responsavel,
	}
}

func TestUpdate_DescricaoOnlyPreservesImage(t *testing.T) {
	h := newHarness(t)
	rec := h.seed(t, func(p *patrimonio.Patrimonio) {
		p.Image = patrimonio.Image{FileName: "patPhotos/old.jpg", Width: 300, Height: 200}
	})

	in := editInput(rec, h.owner.Email)
	in.Descricao = "Mesa de reunião"

	res, err := h.svc.Update(context.Background(), h.owner.ID, rec.ID, in)
	require.NoError(t, err)

	assert.Equal(t, "Mesa de reunião", res.Patrimonio.Descricao)
	assert.Equal(t, "patPhotos/old.jpg", res.Patrimonio.Image.FileName)
	assert.Empty(t, h.images.uploads)
	assert.Empty(t, h.images.deletes)
	assert.Equal(t, 1, h.store.updateCalls)
}

func TestUpdate_RemoveImageDeletesBlobAndClearsFields(t *testing.T) {
	h := newHarness(t)
	rec := h.seed(t, func(p *patrimonio.Patrimonio) {
		p.Image = patrimonio.Image{FileName: "patPhotos/old.jpg", Width: 300, Height: 200}
	})

	in := editInput(rec, h.owner.Email)
	in.RemoveImage = true

	res, err := h.svc.Update(context.Background(), h.owner.ID, rec.ID, in)
	require.NoError(t, err)

	assert.Equal(t, patrimonio.Image{}, res.Patrimonio.Image)
	assert.Equal(t, []string{"patPhotos/old.jpg"}, h.images.deletes)
	assert.Empty(t, h.images.uploads)
	assert.Equal(t, 1, h.store.updateCalls)
}

func TestUpdate_ReplaceImageDeletesOldUploadsNew(t *testing.T) {
	h := newHarness(t)
	rec := h.seed(t, func(p *patrimonio.Patrimonio) {
		p.Image = patrimonio.Image{FileName: "patPhotos/old.jpg", Width: 300, Height: 200}
	})

	in := editInput(rec, h.owner.Email)
	in.ImageData = pngBytes(t)

	res, err := h.svc.Update(context.Background(), h.owner.ID, rec.ID, in)
	require.NoError(t, err)

	assert.Equal(t, []string{"patPhotos/old.jpg"}, h.images.deletes)
	require.Len(t, h.images.uploads, 1)
	assert.Equal(t, h.images.uploads[0], res.Patrimonio.Image.FileName)
}

func TestUpdate_UploadFailureLeavesRecordUntouched(t *testing.T) {
	h := newHarness(t)
	rec := h.seed(t, nil)
	h.images.uploadErr = errors.New("bucket unreachable")

	in := editInput(rec, h.owner.Email)
	in.ImageData = pngBytes(t)

	_, err := h.svc.Update(context.Background(), h.owner.ID, rec.ID, in)
	require.Error(t, err)
	assert.Zero(t, h.store.updateCalls)
}

func TestUpdate_UnknownOwnerEmailKeepsPreviousOwner(t *testing.T) {
	h := newHarness(t)
	rec := h.seed(t, nil)

	in := editInput(rec, "ninguem@inst.br")

	res, err := h.svc.Update(context.Background(), h.owner.ID, rec.ID, in)
	require.NoError(t, err)
	assert.NotEmpty(t, res.Warning)
	require.NotNil(t, res.Patrimonio.OwnerID)
	assert.Equal(t, h.owner.ID, *res.Patrimonio.OwnerID)
	assert.Equal(t, 1, h.store.updateCalls)
}

func TestUpdate_NonOwnerWithoutGrantForbidden(t *testing.T) {
	h := newHarness(t)
	rec := h.seed(t, nil)

	_, err := h.svc.Update(context.Background(), h.other.ID, rec.ID, editInput(rec, h.other.Email))
	assert.ErrorIs(t, err, patrimonioService.ErrForbidden)
	assert.Zero(t, h.store.updateCalls)
}

func TestUpdate_SpecificGrantAllowsEdit(t *testing.T) {
	h := newHarness(t)
	rec := h.seed(t, nil)
	recID := rec.ID
	h.grants.grants = append(h.grants.grants, &patrimonio.Grant{
		UserID: h.editor.ID, PatrimonioID: &recID, OwnerID: h.owner.ID,
	})

	in := editInput(rec, h.editor.Email)
	in.Descricao = "Editado pelo editor"

	res, err := h.svc.Update(context.Background(), h.editor.ID, rec.ID, in)
	require.NoError(t, err)
	assert.Equal(t, "Editado pelo editor", res.Patrimonio.Descricao)
	assert.Equal(t, h.editor.Email, res.Patrimonio.LastEditedBy)
	// a non-owner cannot reassign responsibility
	require.NotNil(t, res.Patrimonio.OwnerID)
	assert.Equal(t, h.owner.ID, *res.Patrimonio.OwnerID)
}

func TestUpdate_WildcardGrantAllowsEdit(t *testing.T) {
	h := newHarness(t)
	rec := h.seed(t, nil)
	h.grants.grants = append(h.grants.grants, &patrimonio.Grant{
		UserID: h.editor.ID, OwnerID: h.owner.ID,
	})

	_, err := h.svc.Update(context.Background(), h.editor.ID, rec.ID, editInput(rec, h.editor.Email))
	assert.NoError(t, err)
}

func TestUpdate_NotFound(t *testing.T) {
	h := newHarness(t)
	_, err := h.svc.Update(context.Background(), h.owner.ID, 999, validInput())
	assert.ErrorIs(t, err, patrimonioService.ErrNotFound)
}

// ---- search -------------------------------------------------------------

func TestSearch_FreeTextRoutesByContent(t *testing.T) {
	h := newHarness(t)
	byPat := h.seed(t, nil) // pat_num 000000001-1
	byAtm := h.seed(t, func(p *patrimonio.Patrimonio) {
		p.PatNum = "000000002-2"
		p.AtmNum = "ABC 123456 7"
	})
	ctx := context.Background()

	// letters in the scanned payload mean an ATM tag
	views, err := h.svc.Search(ctx, uuid.Nil, patrimonioService.SearchQuery{Query: "ABC1234567"})
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, byAtm.ID, views[0].ID)

	// pure digits normalize as a patrimony tag
	views, err = h.svc.Search(ctx, uuid.Nil, patrimonioService.SearchQuery{Query: "11"})
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, byPat.ID, views[0].ID)
}

func TestSearch_FreeTextInvalidPayloadRejected(t *testing.T) {
	h := newHarness(t)
	h.seed(t, nil)

	// letters present but not ten alphanumerics: invalid ATM payload
	_, err := h.svc.Search(context.Background(), uuid.Nil, patrimonioService.SearchQuery{Query: "ABC-123"})
	var verr *patrimonioService.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "query", verr.Field)
}

// ---- delete -------------------------------------------------------------

func TestDelete_RemovesBlobThenRecord(t *testing.T) {
	h := newHarness(t)
	rec := h.seed(t, func(p *patrimonio.Patrimonio) {
		p.Image = patrimonio.Image{FileName: "patPhotos/old.jpg"}
	})

	err := h.svc.Delete(context.Background(), h.owner.ID, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"patPhotos/old.jpg"}, h.images.deletes)
	assert.Empty(t, h.store.records)
}

func TestDelete_BlobFailureDoesNotBlockRecordDelete(t *testing.T) {
	h := newHarness(t)
	rec := h.seed(t, func(p *patrimonio.Patrimonio) {
		p.Image = patrimonio.Image{FileName: "patPhotos/old.jpg"}
	})
	h.images.deleteErr = errors.New("storage offline")

	err := h.svc.Delete(context.Background(), h.owner.ID, rec.ID)
	require.NoError(t, err)
	assert.Empty(t, h.store.records)
}

func TestDelete_RecordFailureIsReported(t *testing.T) {
	h := newHarness(t)
	rec := h.seed(t, nil)
	h.store.deleteErr = errors.New("deadlock detected")

	err := h.svc.Delete(context.Background(), h.owner.ID, rec.ID)
	assert.Error(t, err)
}

func TestDelete_NonOwnerForbidden(t *testing.T) {
	h := newHarness(t)
	rec := h.seed(t, nil)

	err := h.svc.Delete(context.Background(), h.other.ID, rec.ID)
	assert.ErrorIs(t, err, patrimonioService.ErrForbidden)
	assert.Len(t, h.store.records, 1)
}
