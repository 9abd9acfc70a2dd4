package cache

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgresStore(t *testing.T) {
	dsn := os.Getenv("RESUME_INSIGHT_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("RESUME_INSIGHT_TEST_POSTGRES_DSN not set")
	}

	ctx := context.Background()
	store, err := NewPostgresStore(ctx, dsn)
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.Clear(ctx))

	key := Key("resume", "strengths")
	require.NoError(t, store.Set(ctx, Entry{Key: key, Kind: "strengths", Payload: map[string]any{"summary": "first"}}))
	require.NoError(t, store.Set(ctx, Entry{Key: key, Kind: "strengths", Payload: map[string]any{"summary": "second"}}))

	entry, ok, err := store.Get(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "second", entry.Payload["summary"])

	require.NoError(t, store.Clear(ctx))
	_, ok, err = store.Get(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)
}
