package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"notificationRelay/internal/modules/notifications/application/port"
	"notificationRelay/internal/modules/notifications/domain"
)

const redisTokenPrefix = "notification:sse-token:"

// putScript stores a token with its expiry in one step. It returns 0 when the
// token already exists.
var putScript = redis.NewScript(`
if redis.call('HSETNX', KEYS[1], 'user', ARGV[1]) == 0 then
  return 0
end
local ttl = tonumber(ARGV[2])
if ttl > 0 then
  redis.call('PEXPIRE', KEYS[1], ttl)
end
return 1
`)

// resolveScript marks a token as resolved and returns its user, or nil when the
// token is unknown or already resolved.
var resolveScript = redis.NewScript(`
local user = redis.call('HGET', KEYS[1], 'user')
if not user then
  return false
end
if redis.call('HSETNX', KEYS[1], 'resolved', '1') == 0 then
  return {err = 'resolved'}
end
return user
`)

// RedisTokenStore shares subscription tokens between relay instances.
type RedisTokenStore struct {
	client redis.UniversalClient
	prefix string
}

func NewRedisTokenStore(client redis.UniversalClient) *RedisTokenStore {
	return &RedisTokenStore{client: client, prefix: redisTokenPrefix}
}

func (s *RedisTokenStore) key(token string) string { return s.prefix + token }

func (s *RedisTokenStore) Put(ctx context.Context, token, userID string, ttl time.Duration) error {
	created, err := putScript.Run(ctx, s.client, []string{s.key(token)}, userID, ttl.Milliseconds()).Int()
	if err != nil {
		return fmt.Errorf("redis put token: %w", err)
	}
	if created == 0 {
		return fmt.Errorf("%w: token collision", domain.ErrConflict)
	}
	return nil
}

func (s *RedisTokenStore) Resolve(ctx context.Context, token string) (string, error) {
	user, err := resolveScript.Run(ctx, s.client, []string{s.key(token)}).Text()
	switch {
	case errors.Is(err, redis.Nil):
		return "", fmt.Errorf("%w: unknown subscription token", domain.ErrNotFound)
	case err != nil && err.Error() == "resolved":
		return "", fmt.Errorf("%w: %w: subscription token already used", domain.ErrNotFound, domain.ErrConflict)
	case err != nil:
		return "", fmt.Errorf("redis resolve token: %w", err)
	}
	return user, nil
}

func (s *RedisTokenStore) Delete(ctx context.Context, token string) error {
	if err := s.client.Del(ctx, s.key(token)).Err(); err != nil {
		return fmt.Errorf("redis delete token: %w", err)
	}
	return nil
}

var _ port.TokenStore = (*RedisTokenStore)(nil)
