package history

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	errx "github.com/finadvisor-poc/server/internal/core/error"
	logx "github.com/finadvisor-poc/server/pkg/logger"
	"github.com/redis/go-redis/v9"
)

const stateFieldLastMatched = "last_matched"

// RedisStore persists conversation state in Redis: one list of JSON-encoded
// turns per (user, session), one hash per user for scratch state, and one
// set per user tracking live session ids so ClearUser and StartNewSession
// can evict every sibling session.
type RedisStore struct {
	rdb redis.Cmdable
	ttl time.Duration
}

// NewRedisStore wraps the client. A positive ttl is refreshed on every
// append so idle conversations age out.
func NewRedisStore(rdb redis.Cmdable, ttl time.Duration) *RedisStore {
	return &RedisStore{rdb: rdb, ttl: ttl}
}

func (s *RedisStore) sessionKey(userID, sessionID string) string {
	return fmt.Sprintf("advisor:%s:%s:turns", userID, sessionID)
}

func (s *RedisStore) stateKey(userID string) string {
	return fmt.Sprintf("advisor:%s:state", userID)
}

func (s *RedisStore) sessionsKey(userID string) string {
	return fmt.Sprintf("advisor:%s:sessions", userID)
}

func (s *RedisStore) Append(ctx context.Context, userID, sessionID string, role Role, content string) error {
	turn := Turn{Role: role, Content: content, Timestamp: time.Now().UTC()}
	b, err := json.Marshal(turn)
	if err != nil {
		logx.Error().Err(err).Str("user_id", userID).Str("session_id", sessionID).Msg("failed to marshal turn")
		return fmt.Errorf("marshal turn: %w", err)
	}

	key := s.sessionKey(userID, sessionID)
	if err := s.rdb.RPush(ctx, key, b).Err(); err != nil {
		logx.Error().Err(err).Str("key", key).Msg("failed to push turn to redis")
		return errx.WrapRedis(err)
	}
	if err := s.rdb.SAdd(ctx, s.sessionsKey(userID), sessionID).Err(); err != nil {
		logx.Error().Err(err).Str("user_id", userID).Msg("failed to track session id")
		return errx.WrapRedis(err)
	}
	s.touch(ctx, key, s.sessionsKey(userID))
	return nil
}

// touch extends the TTL on the given keys when expiry is configured.
func (s *RedisStore) touch(ctx context.Context, keys ...string) {
	if s.ttl <= 0 {
		return
	}
	for _, key := range keys {
		if ok, err := s.rdb.Expire(ctx, key, s.ttl).Result(); err != nil {
			logx.Error().Err(err).Str("key", key).Msg("failed to set expire")
		} else if !ok {
			logx.Warn().Str("key", key).Dur("ttl", s.ttl).Msg("failed to set TTL on key")
		}
	}
}

func (s *RedisStore) SessionHistory(ctx context.Context, userID, sessionID string) ([]Turn, error) {
	key := s.sessionKey(userID, sessionID)

	rows, err := s.rdb.LRange(ctx, key, 0, -1).Result()
	if err != nil {
		if err == redis.Nil {
			return []Turn{}, nil
		}
		logx.Error().Err(err).Str("key", key).Msg("failed to load session history from redis")
		return nil, errx.WrapRedis(err)
	}

	turns := make([]Turn, 0, len(rows))
	for i, row := range rows {
		var t Turn
		if err := json.Unmarshal([]byte(row), &t); err != nil {
			logx.Error().Err(err).Str("key", key).Int("index", i).Msg("failed to unmarshal turn")
			return nil, fmt.Errorf("unmarshal turn at index %d: %w", i, err)
		}
		turns = append(turns, t)
	}
	return turns, nil
}

func (s *RedisStore) LastMatched(ctx context.Context, userID string) (string, error) {
	v, err := s.rdb.HGet(ctx, s.stateKey(userID), stateFieldLastMatched).Result()
	if err != nil {
		if err == redis.Nil {
			return "", nil
		}
		logx.Error().Err(err).Str("user_id", userID).Msg("failed to read user state from redis")
		return "", errx.WrapRedis(err)
	}
	return v, nil
}

func (s *RedisStore) SetLastMatched(ctx context.Context, userID, category string) error {
	key := s.stateKey(userID)
	if err := s.rdb.HSet(ctx, key, stateFieldLastMatched, category).Err(); err != nil {
		logx.Error().Err(err).Str("key", key).Msg("failed to write user state to redis")
		return errx.WrapRedis(err)
	}
	s.touch(ctx, key)
	return nil
}

func (s *RedisStore) ClearUser(ctx context.Context, userID string) error {
	sessions, err := s.rdb.SMembers(ctx, s.sessionsKey(userID)).Result()
	if err != nil && err != redis.Nil {
		logx.Error().Err(err).Str("user_id", userID).Msg("failed to list user sessions")
		return errx.WrapRedis(err)
	}

	keys := make([]string, 0, len(sessions)+2)
	for _, sessionID := range sessions {
		keys = append(keys, s.sessionKey(userID, sessionID))
	}
	keys = append(keys, s.stateKey(userID), s.sessionsKey(userID))

	if err := s.rdb.Del(ctx, keys...).Err(); err != nil {
		logx.Error().Err(err).Str("user_id", userID).Msg("failed to clear user state")
		return errx.WrapRedis(err)
	}
	return nil
}

func (s *RedisStore) ClearSession(ctx context.Context, userID, sessionID string) error {
	if err := s.rdb.Del(ctx, s.sessionKey(userID, sessionID)).Err(); err != nil {
		logx.Error().Err(err).Str("user_id", userID).Str("session_id", sessionID).Msg("failed to delete session history")
		return errx.WrapRedis(err)
	}
	if err := s.rdb.SRem(ctx, s.sessionsKey(userID), sessionID).Err(); err != nil {
		logx.Error().Err(err).Str("user_id", userID).Msg("failed to untrack session id")
		return errx.WrapRedis(err)
	}
	return nil
}

func (s *RedisStore) StartNewSession(ctx context.Context, userID, sessionID string) error {
	if err := s.ClearUser(ctx, userID); err != nil {
		return err
	}
	if err := s.rdb.SAdd(ctx, s.sessionsKey(userID), sessionID).Err(); err != nil {
		logx.Error().Err(err).Str("user_id", userID).Msg("failed to register new session")
		return errx.WrapRedis(err)
	}
	s.touch(ctx, s.sessionsKey(userID))
	return nil
}

var _ Store = (*RedisStore)(nil)
