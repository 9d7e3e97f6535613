package refresh

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const minRecordTTL = time.Second

// rotateScript applies supersede-old plus create-new as one atomic unit.
// Whichever concurrent caller's EVAL lands second finds the live key gone
// and returns 0, so at most one rotation of a given token ever succeeds.
//
// KEYS[1] live key of the old token
// KEYS[2] revoked-bucket key of the old token
// KEYS[3] live key of the new token
// KEYS[4] per-user token index set
// ARGV[1] new record JSON     ARGV[2] new record TTL (ms)
// ARGV[3] "1" to keep the old record revoked, "0" to drop it
// ARGV[4] revoked old record JSON  ARGV[5] revoked record TTL (ms)
// ARGV[6] new token value     ARGV[7] old token value
const rotateScript = `
local old = redis.call("GET", KEYS[1])
if not old then
  return 0
end
redis.call("DEL", KEYS[1])
if ARGV[3] == "1" then
  redis.call("SET", KEYS[2], ARGV[4], "PX", ARGV[5])
else
  redis.call("SREM", KEYS[4], ARGV[7])
end
redis.call("SET", KEYS[3], ARGV[1], "PX", ARGV[2])
redis.call("SADD", KEYS[4], ARGV[6])
return 1
`

var rotateLua = redis.NewScript(rotateScript)

// RedisStore is a Redis-backed Store. Live records expire via key TTL;
// records retained for reuse detection live in a separate revoked bucket
// with the remainder of their original lifetime.
type RedisStore struct {
	redis  redis.UniversalClient
	prefix string
}

// NewRedisStore returns a Store over the given client. prefix namespaces
// every key this store touches.
func NewRedisStore(client redis.UniversalClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "rt"
	}
	return &RedisStore{redis: client, prefix: prefix}
}

func (s *RedisStore) liveKey(token string) string {
	return s.prefix + ":t:" + token
}

func (s *RedisStore) revokedKey(token string) string {
	return s.prefix + ":x:" + token
}

func (s *RedisStore) userKey(userID string) string {
	return s.prefix + ":u:" + userID
}

func (s *RedisStore) Create(ctx context.Context, rec *Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	ttl := recordTTL(rec, time.Now())

	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.liveKey(rec.Token), data, ttl)
		pipe.SAdd(ctx, s.userKey(rec.UserID), rec.Token)
		pipe.Expire(ctx, s.userKey(rec.UserID), ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, token string) (*Record, error) {
	data, err := s.redis.Get(ctx, s.liveKey(token)).Bytes()
	if errors.Is(err, redis.Nil) {
		data, err = s.redis.Get(ctx, s.revokedKey(token)).Bytes()
	}
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrTokenNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	rec := &Record{}
	if err := json.Unmarshal(data, rec); err != nil {
		return nil, fmt.Errorf("%w: corrupt record for token", ErrStoreUnavailable)
	}
	return rec, nil
}

func (s *RedisStore) Rotate(ctx context.Context, oldToken string, next *Record, keepRevoked bool) error {
	old, err := s.Get(ctx, oldToken)
	if err != nil {
		return err
	}
	if old.Revoked() || old.Compromised {
		return ErrTokenNotFound
	}

	now := time.Now()
	revoked := *old
	revoked.RevokedAt = now
	revoked.ReplacedByHash = TokenHash(next.Token)
	revokedData, err := json.Marshal(&revoked)
	if err != nil {
		return err
	}
	nextData, err := json.Marshal(next)
	if err != nil {
		return err
	}

	keep := "0"
	if keepRevoked {
		keep = "1"
	}

	res, err := rotateLua.Run(ctx, s.redis,
		[]string{
			s.liveKey(oldToken),
			s.revokedKey(oldToken),
			s.liveKey(next.Token),
			s.userKey(next.UserID),
		},
		nextData,
		recordTTL(next, now).Milliseconds(),
		keep,
		revokedData,
		recordTTL(old, now).Milliseconds(),
		next.Token,
		oldToken,
	).Int64()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if res == 0 {
		return ErrTokenNotFound
	}
	return nil
}

func (s *RedisStore) MarkCompromised(ctx context.Context, token string) error {
	rec, err := s.Get(ctx, token)
	if err != nil {
		return err
	}

	now := time.Now()
	rec.Compromised = true
	if rec.RevokedAt.IsZero() {
		rec.RevokedAt = now
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}

	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.liveKey(token))
		pipe.Set(ctx, s.revokedKey(token), data, recordTTL(rec, now))
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, token string) error {
	rec, err := s.Get(ctx, token)
	if err != nil {
		if errors.Is(err, ErrTokenNotFound) {
			return nil
		}
		return err
	}

	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.liveKey(token), s.revokedKey(token))
		pipe.SRem(ctx, s.userKey(rec.UserID), token)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

func (s *RedisStore) DeleteAllForUser(ctx context.Context, userID string) (int, error) {
	tokens, err := s.redis.SMembers(ctx, s.userKey(userID)).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	var cmds []*redis.IntCmd
	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, token := range tokens {
			cmds = append(cmds, pipe.Del(ctx, s.liveKey(token), s.revokedKey(token)))
		}
		pipe.Del(ctx, s.userKey(userID))
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	count := 0
	for _, cmd := range cmds {
		if cmd.Val() > 0 {
			count++
		}
	}
	return count, nil
}

func recordTTL(rec *Record, now time.Time) time.Duration {
	ttl := rec.ExpiresAt.Sub(now)
	if ttl < minRecordTTL {
		ttl = minRecordTTL
	}
	return ttl
}
