package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrRedisUnavailable wraps transport-level Redis failures so callers can
// distinguish "no session" from "backend down".
var ErrRedisUnavailable = errors.New("session redis unavailable")

// RedisStore keeps sessions in Redis for multi-instance demos. Redis TTLs
// mirror the absolute expiry so abandoned entries reap themselves; the
// decoded ExpiresAt remains authoritative on read.
type RedisStore struct {
	redis  redis.UniversalClient
	prefix string

	now func() time.Time
}

// NewRedisStore creates a [RedisStore] with the given key prefix.
func NewRedisStore(client redis.UniversalClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "sg:sess"
	}
	return &RedisStore{
		redis:  client,
		prefix: prefix,
		now:    time.Now,
	}
}

func (s *RedisStore) key(token string) string {
	return s.prefix + ":" + token
}

// Create persists sess with the given TTL.
func (s *RedisStore) Create(ctx context.Context, sess *Session, ttl time.Duration) error {
	data, err := Encode(sess)
	if err != nil {
		return err
	}

	if err := s.redis.Set(ctx, s.key(sess.Token), data, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Get returns the live session for token or [ErrNotFound]. LastActivity is
// written back with KEEPTTL so the absolute deadline is untouched.
func (s *RedisStore) Get(ctx context.Context, token string) (*Session, error) {
	key := s.key(token)

	data, err := s.redis.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	sess, err := Decode(data)
	if err != nil {
		return nil, err
	}
	sess.Token = token

	now := s.now()
	if sess.ExpiredAt(now) {
		if err := s.redis.Del(ctx, key).Err(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
		return nil, ErrNotFound
	}

	sess.LastActivity = now.UnixMilli()
	updated, err := Encode(sess)
	if err != nil {
		return nil, err
	}
	if err := s.redis.Set(ctx, key, updated, redis.KeepTTL).Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	return sess, nil
}

// Invalidate removes the session if present.
func (s *RedisStore) Invalidate(ctx context.Context, token string) (bool, error) {
	deleted, err := s.redis.Del(ctx, s.key(token)).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return deleted > 0, nil
}

// Update merges partial fields under an optimistic WATCH transaction so a
// concurrent update on another instance is not silently lost.
func (s *RedisStore) Update(ctx context.Context, token string, up Update) (bool, error) {
	const maxRetries = 4
	key := s.key(token)

	for i := 0; i < maxRetries; i++ {
		var found bool

		err := s.redis.Watch(ctx, func(tx *redis.Tx) error {
			data, err := tx.Get(ctx, key).Bytes()
			if err != nil {
				return err
			}

			sess, err := Decode(data)
			if err != nil {
				return err
			}
			sess.Token = token

			if sess.ExpiredAt(s.now()) {
				_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
					pipe.Del(ctx, key)
					return nil
				})
				return err
			}

			applyUpdate(sess, up)
			updated, err := Encode(sess)
			if err != nil {
				return err
			}

			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, key, updated, redis.KeepTTL)
				return nil
			})
			if err != nil {
				return err
			}

			found = true
			return nil
		}, key)

		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return false, nil
			}
			return false, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
		return found, nil
	}

	return false, fmt.Errorf("%w: update contention not resolved", ErrRedisUnavailable)
}

// Clear removes every key under the store prefix via SCAN. Demo and test
// use only; this is O(n) over the keyspace.
func (s *RedisStore) Clear(ctx context.Context) error {
	pattern := s.prefix + ":*"
	var cursor uint64

	for {
		keys, next, err := s.redis.Scan(ctx, cursor, pattern, 1000).Result()
		if err != nil {
			return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
		if len(keys) > 0 {
			if err := s.redis.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
			}
		}
		cursor = next
		if cursor == 0 {
			return nil
		}
	}
}
