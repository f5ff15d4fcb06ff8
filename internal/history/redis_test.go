package history

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisStore(t *testing.T, ttl time.Duration) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisStore(client, ttl), mr
}

func TestRedisStoreAppendOrder(t *testing.T) {
	ctx := context.Background()
	s, _ := newRedisStore(t, 0)

	require.NoError(t, s.Append(ctx, "u1", "s1", RoleUser, "first"))
	require.NoError(t, s.Append(ctx, "u1", "s1", RoleAssistant, "second"))
	require.NoError(t, s.Append(ctx, "u1", "s1", RoleUser, "third"))

	turns, err := s.SessionHistory(ctx, "u1", "s1")
	require.NoError(t, err)
	require.Len(t, turns, 3)
	assert.Equal(t, "first", turns[0].Content)
	assert.Equal(t, RoleAssistant, turns[1].Role)
	assert.Equal(t, "third", turns[2].Content)
	assert.False(t, turns[0].Timestamp.IsZero())
}

func TestRedisStoreEmptySession(t *testing.T) {
	s, _ := newRedisStore(t, 0)

	turns, err := s.SessionHistory(context.Background(), "nobody", "nothing")
	require.NoError(t, err)
	assert.Empty(t, turns)
}

func TestRedisStoreLastMatched(t *testing.T) {
	ctx := context.Background()
	s, _ := newRedisStore(t, 0)

	lm, err := s.LastMatched(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, lm)

	require.NoError(t, s.SetLastMatched(ctx, "u1", "Portfolio Re-balancing"))

	lm, err = s.LastMatched(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "Portfolio Re-balancing", lm)
}

func TestRedisStoreStartNewSessionClearsSiblings(t *testing.T) {
	ctx := context.Background()
	s, _ := newRedisStore(t, 0)

	require.NoError(t, s.Append(ctx, "u1", "s1", RoleUser, "q1"))
	require.NoError(t, s.Append(ctx, "u1", "sibling", RoleUser, "q2"))
	require.NoError(t, s.SetLastMatched(ctx, "u1", "Goal Planning"))

	require.NoError(t, s.StartNewSession(ctx, "u1", "s2"))

	for _, sessionID := range []string{"s1", "sibling", "s2"} {
		turns, err := s.SessionHistory(ctx, "u1", sessionID)
		require.NoError(t, err)
		assert.Empty(t, turns, "session %s should be empty", sessionID)
	}

	lm, err := s.LastMatched(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, lm)
}

func TestRedisStoreClearUserIsScopedToUser(t *testing.T) {
	ctx := context.Background()
	s, _ := newRedisStore(t, 0)

	require.NoError(t, s.Append(ctx, "u1", "s1", RoleUser, "mine"))
	require.NoError(t, s.Append(ctx, "u2", "s1", RoleUser, "theirs"))

	require.NoError(t, s.ClearUser(ctx, "u1"))

	turns, err := s.SessionHistory(ctx, "u1", "s1")
	require.NoError(t, err)
	assert.Empty(t, turns)

	turns, err = s.SessionHistory(ctx, "u2", "s1")
	require.NoError(t, err)
	assert.Len(t, turns, 1)
}

func TestRedisStoreClearSession(t *testing.T) {
	ctx := context.Background()
	s, _ := newRedisStore(t, 0)

	require.NoError(t, s.Append(ctx, "u1", "s1", RoleUser, "q"))
	require.NoError(t, s.ClearSession(ctx, "u1", "s1"))

	turns, err := s.SessionHistory(ctx, "u1", "s1")
	require.NoError(t, err)
	assert.Empty(t, turns)
}

func TestRedisStoreTTLTouchOnAppend(t *testing.T) {
	ctx := context.Background()
	s, mr := newRedisStore(t, time.Minute)

	require.NoError(t, s.Append(ctx, "u1", "s1", RoleUser, "q"))
	assert.Greater(t, mr.TTL("advisor:u1:s1:turns"), time.Duration(0))
}

func TestRedisStoreAppendFailsWhenBackendDown(t *testing.T) {
	ctx := context.Background()
	s, mr := newRedisStore(t, 0)

	mr.Close()

	err := s.Append(ctx, "u1", "s1", RoleUser, "q")
	require.Error(t, err)
}
