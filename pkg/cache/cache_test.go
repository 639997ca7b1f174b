package cache

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type point struct {
	X int `json:"x"`
}

func backends(t *testing.T) map[string]Service {
	t.Helper()

	mr := miniredis.RunT(t)
	rc, err := NewRedisCache(WithRedisAddr(mr.Addr()), WithRedisPrefix("test"))
	require.NoError(t, err)

	sc, err := NewSQLiteCache(filepath.Join(t.TempDir(), "kv.db"))
	require.NoError(t, err)

	mc := NewMemoryCache(WithMemoryCleanup(time.Hour))

	all := map[string]Service{"memory": mc, "redis": rc, "sqlite": sc}
	t.Cleanup(func() {
		for _, s := range all {
			_ = s.Close()
		}
	})
	return all
}

func TestService_StringRoundTrip(t *testing.T) {
	ctx := context.Background()
	for name, svc := range backends(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, svc.Set(ctx, "token", "abc.def", 0))

			var got string
			require.NoError(t, svc.Get(ctx, "token", &got))
			assert.Equal(t, "abc.def", got)

			ok, err := svc.Exists(ctx, "token")
			require.NoError(t, err)
			assert.True(t, ok)
		})
	}
}

func TestService_StructValue(t *testing.T) {
	ctx := context.Background()
	for name, svc := range backends(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, svc.Set(ctx, "p", point{X: 7}, 0))

			var got point
			require.NoError(t, svc.Get(ctx, "p", &got))
			assert.Equal(t, 7, got.X)
		})
	}
}

func TestService_DeleteAndMiss(t *testing.T) {
	ctx := context.Background()
	for name, svc := range backends(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, svc.Set(ctx, "token", "x", 0))
			require.NoError(t, svc.Delete(ctx, "token"))

			var got string
			assert.ErrorIs(t, svc.Get(ctx, "token", &got), ErrCacheMiss)

			ok, err := svc.Exists(ctx, "token")
			require.NoError(t, err)
			assert.False(t, ok)

			// deleting an absent key is not an error
			assert.NoError(t, svc.Delete(ctx, "token"))
		})
	}
}

func TestService_Overwrite(t *testing.T) {
	ctx := context.Background()
	for name, svc := range backends(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, svc.Set(ctx, "token", "first", 0))
			require.NoError(t, svc.Set(ctx, "token", "second", 0))

			var got string
			require.NoError(t, svc.Get(ctx, "token", &got))
			assert.Equal(t, "second", got)
		})
	}
}

func TestMemoryCache_Expiry(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache()
	defer mc.Close()

	require.NoError(t, mc.Set(ctx, "k", "v", 10*time.Millisecond))
	time.Sleep(30 * time.Millisecond)

	var got string
	assert.ErrorIs(t, mc.Get(ctx, "k", &got), ErrCacheMiss)
}

func TestMemoryCache_EvictsLeastRecentlyUsed(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache(WithMemoryMaxSize(2))
	defer mc.Close()

	require.NoError(t, mc.Set(ctx, "a", "1", 0))
	time.Sleep(time.Millisecond)
	require.NoError(t, mc.Set(ctx, "b", "2", 0))
	time.Sleep(time.Millisecond)
	require.NoError(t, mc.Set(ctx, "c", "3", 0))

	ok, err := mc.Exists(ctx, "a")
	require.NoError(t, err)
	assert.False(t, ok)
	ok, err = mc.Exists(ctx, "c")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSQLiteCache_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "session.db")

	first, err := NewSQLiteCache(path)
	require.NoError(t, err)
	require.NoError(t, first.Set(ctx, "token", "persisted", 0))
	require.NoError(t, first.Close())

	second, err := NewSQLiteCache(path)
	require.NoError(t, err)
	defer second.Close()

	var got string
	require.NoError(t, second.Get(ctx, "token", &got))
	assert.Equal(t, "persisted", got)
}

func TestSQLiteCache_RejectsBadTable(t *testing.T) {
	_, err := NewSQLiteCache(filepath.Join(t.TempDir(), "x.db"), WithSQLiteTable("kv; DROP"))
	assert.Error(t, err)
}

func TestRedisCache_PrefixesKeys(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	rc, err := NewRedisCache(WithRedisAddr(mr.Addr()), WithRedisPrefix("econdash"))
	require.NoError(t, err)
	defer rc.Close()

	require.NoError(t, rc.Set(ctx, "token", "abc", 0))

	got, err := mr.Get("econdash:token")
	require.NoError(t, err)
	assert.Equal(t, "abc", got)
}
