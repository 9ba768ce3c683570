package payload

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"liciel/internal/config"
	"liciel/internal/infrastructure"
)

// The store contract against real backends. Set LICIEL_TEST_POSTGRES_URL or
// LICIEL_TEST_OBJECT_ENDPOINT to run.

func checkContract(t *testing.T, s Store, clock *fakeClock) {
	t.Helper()
	ctx := context.Background()

	p := samplePayload()
	p.Meta.ID = "contract-" + time.Now().Format("150405.000000")
	put, err := s.Put(ctx, p)
	require.NoError(t, err)

	got, err := s.Get(ctx, p.Meta.ID)
	require.NoError(t, err)
	assert.Equal(t, put.ETag, got.ETag)
	assert.Equal(t, p.Rows, got.Payload.Rows)

	clock.Advance(DefaultTTL + time.Second)
	_, err = s.Get(ctx, p.Meta.ID)
	assert.ErrorIs(t, err, ErrExpired)

	require.NoError(t, s.Delete(ctx, p.Meta.ID))
	_, err = s.Get(ctx, p.Meta.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPostgresStoreContract(t *testing.T) {
	url := os.Getenv("LICIEL_TEST_POSTGRES_URL")
	if url == "" {
		t.Skip("LICIEL_TEST_POSTGRES_URL not set")
	}
	ctx := context.Background()

	pool, err := Connect(ctx, url, 2)
	require.NoError(t, err)
	defer pool.Close()
	require.NoError(t, Migrate(ctx, pool))

	clock := &fakeClock{now: time.Now()}
	checkContract(t, NewPostgresStore(pool, WithClock(clock.Now)), clock)
}

func TestObjectStoreContract(t *testing.T) {
	endpoint := os.Getenv("LICIEL_TEST_OBJECT_ENDPOINT")
	if endpoint == "" {
		t.Skip("LICIEL_TEST_OBJECT_ENDPOINT not set")
	}
	cfg := config.ObjectStorageConfig{
		Endpoint:  endpoint,
		AccessKey: os.Getenv("LICIEL_TEST_OBJECT_ACCESS_KEY"),
		SecretKey: os.Getenv("LICIEL_TEST_OBJECT_SECRET_KEY"),
		Bucket:    "liciel-test",
	}
	client, err := infrastructure.NewObjectClient(cfg)
	require.NoError(t, err)
	require.NoError(t, infrastructure.EnsureBucket(context.Background(), client, cfg.Bucket, ""))

	clock := &fakeClock{now: time.Now()}
	checkContract(t, NewObjectStore(client, cfg.Bucket, "payloads", WithClock(clock.Now)), clock)
}
