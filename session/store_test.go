package session

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exerciseSlot(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	_, ok, err := s.Get(ctx)
	require.NoError(t, err)
	assert.False(t, ok, "new slot should be empty")

	require.NoError(t, s.Set(ctx, "tok-1"))
	require.NoError(t, s.Set(ctx, "tok-2"))

	got, ok, err := s.Get(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "tok-2", got, "writes overwrite the single slot")

	require.NoError(t, s.Clear(ctx))
	require.NoError(t, s.Clear(ctx), "clear is idempotent")

	_, ok, err = s.Get(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryStoreSlot(t *testing.T) {
	exerciseSlot(t, NewMemoryStore())
}

func newRedisStoreTest(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		rdb.Close()
		mr.Close()
	})
	return NewRedisStore(rdb, "sensorauth", "", time.Hour), mr
}

func TestRedisStoreSlot(t *testing.T) {
	store, _ := newRedisStoreTest(t)
	exerciseSlot(t, store)
}

func TestRedisStoreUsesPrefixedKeyAndTTL(t *testing.T) {
	store, mr := newRedisStoreTest(t)
	require.NoError(t, store.Set(context.Background(), "tok"))

	assert.Equal(t, "sensorauth:auth-token", store.Key())
	val, err := mr.Get("sensorauth:auth-token")
	require.NoError(t, err)
	assert.Equal(t, "tok", val)
	assert.Equal(t, time.Hour, mr.TTL("sensorauth:auth-token"))

	mr.FastForward(2 * time.Hour)
	_, ok, err := store.Get(context.Background())
	require.NoError(t, err)
	assert.False(t, ok, "expired token reads as absent")
}

func TestRedisStoreUnavailable(t *testing.T) {
	store, mr := newRedisStoreTest(t)
	mr.Close()

	_, _, err := store.Get(context.Background())
	assert.True(t, errors.Is(err, ErrStoreUnavailable), "got %v", err)
}

func TestSQLiteStoreSlotSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "session.db")

	store, err := OpenSQLiteStore(path, "")
	require.NoError(t, err)
	exerciseSlot(t, store)
	require.NoError(t, store.Set(context.Background(), "persisted"))
	require.NoError(t, store.Close())

	reopened, err := OpenSQLiteStore(path, "")
	require.NoError(t, err)
	defer reopened.Close()

	got, ok, err := reopened.Get(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "persisted", got)
}
