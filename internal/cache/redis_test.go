package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/terra-clan/build-directory/internal/models"
)

func newTestRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisStoreFromClient(client, "", time.Minute, zaptest.NewLogger(t)), mr
}

func TestRedisStore_SetGet(t *testing.T) {
	ctx := context.Background()
	s, mr := newTestRedisStore(t)

	page := &models.ResultPage{
		Items:      []models.Professional{{ID: 4, FullName: "Meera Kulkarni", Profession: models.ProfessionArchitect, Rating: 4.8}},
		TotalPages: 2,
		TotalCount: 13,
	}
	require.NoError(t, s.Set(ctx, "profession=architect", page))
	assert.True(t, mr.Exists(defaultKeyPrefix+"profession=architect"))

	got, ok, err := s.Get(ctx, "profession=architect")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, page, got)

	mr.FastForward(2 * time.Minute)
	_, ok, err = s.Get(ctx, "profession=architect")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisStore_CorruptEntryIsAMiss(t *testing.T) {
	ctx := context.Background()
	s, mr := newTestRedisStore(t)

	mr.Set(defaultKeyPrefix+"page=2", "{not json")

	_, ok, err := s.Get(ctx, "page=2")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.False(t, mr.Exists(defaultKeyPrefix+"page=2"))
}

func TestRedisStore_InvalidateAllKeepsForeignKeys(t *testing.T) {
	ctx := context.Background()
	s, mr := newTestRedisStore(t)

	for _, key := range []string{"a", "b", "c"} {
		require.NoError(t, s.Set(ctx, key, models.EmptyResultPage()))
	}
	mr.Set("sessions:42", "keep")

	require.NoError(t, s.InvalidateAll(ctx))
	assert.False(t, mr.Exists(defaultKeyPrefix+"a"))
	assert.False(t, mr.Exists(defaultKeyPrefix+"b"))
	assert.False(t, mr.Exists(defaultKeyPrefix+"c"))
	assert.True(t, mr.Exists("sessions:42"))
}

func TestRedisStore_GetReportsConnectionErrors(t *testing.T) {
	s, mr := newTestRedisStore(t)
	mr.Close()

	_, _, err := s.Get(context.Background(), "x")
	assert.Error(t, err)
}
