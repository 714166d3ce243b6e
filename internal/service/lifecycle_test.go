package service

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erazemk/najdeno/internal/asset"
	"github.com/erazemk/najdeno/internal/auth"
	"github.com/erazemk/najdeno/internal/db"
	"github.com/erazemk/najdeno/internal/model"
	"github.com/erazemk/najdeno/internal/store"
)

type testEnv struct {
	accounts *Accounts
	items    *Items
	repo     *store.Items
	assets   *asset.Store
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	database := db.NewTestDB(t)
	backend, err := asset.NewLocalBackend(t.TempDir())
	require.NoError(t, err)

	assets := asset.NewStore(backend, asset.Options{
		AllowedExtensions: []string{"png", "jpg", "jpeg", "gif"},
		MaxSize:           16 << 20,
		MaxImageDimension: 1600,
	})
	repo := store.NewItems(database)

	return &testEnv{
		accounts: NewAccounts(store.NewUsers(database), store.NewTokens(database), auth.NewTokens("secret"),
			SessionConfig{Duration: time.Hour, RememberDuration: 24 * time.Hour}),
		items:  NewItems(repo, assets),
		repo:   repo,
		assets: assets,
	}
}

func pngUpload(t *testing.T, name string) *Upload {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 4, 4))))
	return &Upload{Filename: name, Content: &buf}
}

func (e *testEnv) register(t *testing.T, username, email string) *model.Actor {
	t.Helper()
	user, err := e.accounts.Register(context.Background(), Registration{
		Username: username, Email: email, Password: "secret123",
	})
	require.NoError(t, err)
	return &model.Actor{UserID: user.ID, Username: user.Username}
}

func TestLifecycle_EndToEnd(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	alice := env.register(t, "alice", "a@x.com")

	item, err := env.items.Create(ctx, alice, model.ItemFields{Name: "Wallet", Status: model.StatusLost}, pngUpload(t, "wallet.png"))
	require.NoError(t, err)
	key := item.ImageKey()
	require.NotEmpty(t, key)

	all, err := env.repo.SearchItems(ctx, model.ItemFilter{})
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, item.ID, all[0].ID)

	_, err = env.items.Edit(ctx, alice, item.ID, EditRequest{
		Fields: model.ItemFields{Name: "Wallet", Status: model.StatusFound},
	})
	require.NoError(t, err)

	lost, err := env.repo.SearchItems(ctx, model.ItemFilter{Status: model.StatusLost})
	require.NoError(t, err)
	assert.Empty(t, lost)

	found, err := env.repo.SearchItems(ctx, model.ItemFilter{Status: model.StatusFound})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, item.ID, found[0].ID)

	require.NoError(t, env.items.Delete(ctx, alice, item.ID))

	_, err = env.repo.GetItem(ctx, item.ID)
	assert.ErrorIs(t, err, model.ErrNotFound)

	exists, err := env.assets.Exists(ctx, key)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestLifecycle_EditReplacesImage(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.register(t, "alice", "a@x.com")

	item, err := env.items.Create(ctx, alice, model.ItemFields{Name: "Scarf", Status: model.StatusFound}, pngUpload(t, "one.png"))
	require.NoError(t, err)
	k1 := item.ImageKey()

	edited, err := env.items.Edit(ctx, alice, item.ID, EditRequest{
		Fields: model.ItemFields{Name: "Scarf", Status: model.StatusFound},
		Image:  pngUpload(t, "two.PNG"),
	})
	require.NoError(t, err)
	k2 := edited.ImageKey()

	assert.NotEqual(t, k1, k2)

	exists, err := env.assets.Exists(ctx, k1)
	require.NoError(t, err)
	assert.False(t, exists, "old asset must be removed")

	exists, err = env.assets.Exists(ctx, k2)
	require.NoError(t, err)
	assert.True(t, exists, "new asset must be stored")
}

func TestLifecycle_ClaimRoundTrip(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.register(t, "alice", "a@x.com")

	original, err := env.items.Create(ctx, alice, model.ItemFields{Name: "Keys", Status: model.StatusLost}, nil)
	require.NoError(t, err)

	claimed, err := env.items.Claim(ctx, alice, original.ID)
	require.NoError(t, err)
	assert.True(t, claimed.Claimed)

	again, err := env.items.Claim(ctx, alice, original.ID)
	require.NoError(t, err)
	assert.True(t, again.Claimed)

	back, err := env.items.Unclaim(ctx, alice, original.ID)
	require.NoError(t, err)

	assert.Equal(t, original.ID, back.ID)
	assert.True(t, original.DatePosted.Equal(back.DatePosted))
	assert.Equal(t, original.Claimed, back.Claimed)
	assert.Equal(t, original.Name, back.Name)
	assert.Equal(t, original.Status, back.Status)
	assert.Equal(t, original.OwnerID, back.OwnerID)
}

func TestLifecycle_StrangerCannotTouch(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.register(t, "alice", "a@x.com")
	bob := env.register(t, "bob", "b@x.com")

	item, err := env.items.Create(ctx, alice, model.ItemFields{Name: "Keys", Status: model.StatusLost}, nil)
	require.NoError(t, err)

	_, err = env.items.Edit(ctx, bob, item.ID, EditRequest{Fields: model.ItemFields{Name: "Mine", Status: model.StatusFound}})
	assert.ErrorIs(t, err, model.ErrForbidden)
	assert.ErrorIs(t, env.items.Delete(ctx, bob, item.ID), model.ErrForbidden)
	_, err = env.items.Claim(ctx, bob, item.ID)
	assert.ErrorIs(t, err, model.ErrForbidden)

	got, err := env.repo.GetItem(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, "Keys", got.Name)
	assert.False(t, got.Claimed)
}

func TestLifecycle_RejectsExecutable(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.register(t, "alice", "a@x.com")

	_, err := env.items.Create(ctx, alice, model.ItemFields{Name: "Virus", Status: model.StatusLost},
		&Upload{Filename: "malware.exe", Content: bytes.NewReader([]byte("MZ"))})
	assert.ErrorIs(t, err, model.ErrUnsupportedAssetType)

	all, err := env.repo.SearchItems(ctx, model.ItemFilter{})
	require.NoError(t, err)
	assert.Empty(t, all)

	item, err := env.items.Create(ctx, alice, model.ItemFields{Name: "Keys", Status: model.StatusLost}, nil)
	require.NoError(t, err)

	_, err = env.items.Edit(ctx, alice, item.ID, EditRequest{
		Fields: model.ItemFields{Name: "Changed", Status: model.StatusFound},
		Image:  &Upload{Filename: "malware.exe", Content: bytes.NewReader([]byte("MZ"))},
	})
	assert.ErrorIs(t, err, model.ErrUnsupportedAssetType)

	got, err := env.repo.GetItem(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, "Keys", got.Name)
	assert.Equal(t, item.Version, got.Version)
}
