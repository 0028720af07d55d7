package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/vmihailenco/msgpack/v5"
)

const sessionKeyPrefix = "audit:sess:"

// RedisSessionStore keeps sessions in redis with a server-side TTL, so expiry
// holds across restarts and multiple backend instances.
type RedisSessionStore struct {
	rdb *redis.Client
}

func NewRedisSessionStore(redisURL string) (*RedisSessionStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}

	rdb := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &RedisSessionStore{rdb: rdb}, nil
}

func (s *RedisSessionStore) Save(ctx context.Context, token string, session Session, ttl time.Duration) error {
	if session.ExpiresAt.IsZero() {
		session.ExpiresAt = time.Now().Add(ttl)
	}

	payload, err := msgpack.Marshal(&session)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, sessionKeyPrefix+token, payload, ttl).Err()
}

func (s *RedisSessionStore) Find(ctx context.Context, token string) (Session, error) {
	payload, err := s.rdb.Get(ctx, sessionKeyPrefix+token).Bytes()
	if err == redis.Nil {
		return Session{}, ErrSessionNotFound
	}
	if err != nil {
		return Session{}, err
	}

	var session Session
	if err := msgpack.Unmarshal(payload, &session); err != nil {
		return Session{}, err
	}
	if session.Expired(time.Now()) {
		return Session{}, ErrSessionNotFound
	}
	return session, nil
}

func (s *RedisSessionStore) Delete(ctx context.Context, token string) error {
	return s.rdb.Del(ctx, sessionKeyPrefix+token).Err()
}

func (s *RedisSessionStore) Close() error {
	return s.rdb.Close()
}
