package template

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/v8"
)

// RedisTemplateStore backs the Template Engine with a Redis key/value
// database instead of the embedded directory of .textfsm files — the "or
// an embedded key/value database" alternative the template store contract
// allows. Templates are stored as plain strings under keyPrefix+name, and
// their names are tracked in a companion set so Names() doesn't need a
// KEYS scan in production.
type RedisTemplateStore struct {
	client    *redis.Client
	ctx       context.Context
	keyPrefix string
	nameSet   string
}

// NewRedisTemplateStore wraps an existing Redis client. addr/DB selection
// is the caller's responsibility, mirroring the teacher's
// sonic.NewAppDBClient pattern of one client per logical database.
func NewRedisTemplateStore(client *redis.Client, keyPrefix string) *RedisTemplateStore {
	if keyPrefix == "" {
		keyPrefix = "textfsm:"
	}
	return &RedisTemplateStore{
		client:    client,
		ctx:       context.Background(),
		keyPrefix: keyPrefix,
		nameSet:   keyPrefix + "__names",
	}
}

// Put stores a template's source text and registers its name.
func (s *RedisTemplateStore) Put(name, source string) error {
	if err := s.client.Set(s.ctx, s.keyPrefix+name, source, 0).Err(); err != nil {
		return fmt.Errorf("writing template %q: %w", name, err)
	}
	if err := s.client.SAdd(s.ctx, s.nameSet, name).Err(); err != nil {
		return fmt.Errorf("registering template %q: %w", name, err)
	}
	return nil
}

func (s *RedisTemplateStore) Names() []string {
	names, err := s.client.SMembers(s.ctx, s.nameSet).Result()
	if err != nil {
		return nil
	}
	return names
}

func (s *RedisTemplateStore) Source(name string) (string, error) {
	src, err := s.client.Get(s.ctx, s.keyPrefix+name).Result()
	if err == redis.Nil {
		return "", fmt.Errorf("template %q not found", name)
	}
	if err != nil {
		return "", fmt.Errorf("reading template %q: %w", name, err)
	}
	return src, nil
}

// Connect verifies connectivity, following the teacher's AppDBClient.Connect
// shape.
func (s *RedisTemplateStore) Connect() error {
	return s.client.Ping(s.ctx).Err()
}

// Close releases the underlying Redis connection.
func (s *RedisTemplateStore) Close() error {
	return s.client.Close()
}
