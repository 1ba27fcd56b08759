package rolecache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/khlpkg/gateway/encoding"
	"github.com/khlpkg/gateway/event"
)

// Cmdable is the subset of the redis client used by RedisStore.
type Cmdable interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

const DefaultKeyPrefix = "Role_"

func NewRedisStore(client Cmdable, keyPrefix string) *RedisStore {
	if keyPrefix == "" {
		keyPrefix = DefaultKeyPrefix
	}
	return &RedisStore{client: client, prefix: keyPrefix}
}

// DialRedis connects to the redis server at url, for example "redis://localhost:6379/0".
func DialRedis(ctx context.Context, url string) (*redis.Client, error) {
	options, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url. %w", err)
	}

	client := redis.NewClient(options)
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}

// RedisStore shares role lists between processes. Entries are JSON documents without a TTL.
type RedisStore struct {
	client Cmdable
	prefix string
}

var _ Store = (*RedisStore)(nil)

func (s *RedisStore) key(guildID string) string {
	return s.prefix + guildID
}

func (s *RedisStore) Get(ctx context.Context, guildID string) ([]event.Role, bool, error) {
	data, err := s.client.Get(ctx, s.key(guildID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var roles []event.Role
	if err := encoding.Unmarshal(data, &roles); err != nil {
		return nil, false, fmt.Errorf("corrupt role entry for guild %s. %w", guildID, err)
	}
	return roles, true, nil
}

func (s *RedisStore) Set(ctx context.Context, guildID string, roles []event.Role) error {
	data, err := encoding.Marshal(roles)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.key(guildID), data, 0).Err()
}

func (s *RedisStore) Delete(ctx context.Context, guildID string) error {
	return s.client.Del(ctx, s.key(guildID)).Err()
}
