package backend

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matst80/securityapp/pkg/config"
	"github.com/matst80/securityapp/pkg/storage"
	"github.com/matst80/securityapp/pkg/types"
)

func TestOpenLocal(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Config{LocalDataDir: dir, PublicURL: "http://localhost:8080"}
	ctx := context.Background()

	b, err := Open(ctx, cfg)
	require.NoError(t, err)
	assert.IsType(t, &storage.MemoryStore{}, b.Store)
	assert.IsType(t, &storage.MemoryAuth{}, b.Auth)
	assert.NotEmpty(t, b.BlobFolder)
	assert.Nil(t, b.Cache)

	_, err = b.Store.Insert(ctx, "users", map[string]any{"user_id": "u1"})
	require.NoError(t, err)
	b.Close(ctx)

	reopened, err := Open(ctx, cfg)
	require.NoError(t, err)
	docs, err := reopened.Store.FindEqual(ctx, "users", "user_id", "u1")
	require.NoError(t, err)
	assert.Len(t, docs, 1)

	agg := reopened.Aggregator(types.DefaultSchema())
	assert.Equal(t, "u1", agg.FetchAccount(ctx, types.NewSession("u1")).ID)
}

func TestLogNotifier(t *testing.T) {
	assert.NoError(t, LogNotifier{}.NotifyLogin(context.Background(), types.Account{ID: "u1"}, types.Record{Label: "pc"}))
}
