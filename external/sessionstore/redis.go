package sessionstore

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/foxseedlab/tunesmith/internal/session"
	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix         = "tunesmith:session:"
	connectAttempts   = 3
	connectRetryDelay = 2 * time.Second
)

var ErrRedisNotReady = errors.New("redis did not become ready")

type RedisStore struct {
	client redis.UniversalClient
}

func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client}
}

// Connect parses a redis:// or rediss:// url and pings the server, retrying
// a few times before giving up.
func Connect(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	var pingErr error
	for attempt := 1; attempt <= connectAttempts; attempt++ {
		if pingErr = client.Ping(ctx).Err(); pingErr == nil {
			return client, nil
		}
		if attempt == connectAttempts {
			break
		}
		select {
		case <-ctx.Done():
			_ = client.Close()
			return nil, errors.Join(ErrRedisNotReady, ctx.Err())
		case <-time.After(connectRetryDelay * time.Duration(attempt)):
		}
	}
	_ = client.Close()
	return nil, errors.Join(ErrRedisNotReady, pingErr)
}

func sessionKey(userID int64) string {
	return keyPrefix + strconv.FormatInt(userID, 10)
}

func (r *RedisStore) Load(ctx context.Context, userID int64) (*session.Session, error) {
	data, err := r.client.Get(ctx, sessionKey(userID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	return session.DecodeSnapshot(data)
}

func (r *RedisStore) Save(ctx context.Context, s *session.Session) error {
	data, err := session.EncodeSnapshot(s)
	if err != nil {
		return fmt.Errorf("encode session snapshot: %w", err)
	}
	return r.client.Set(ctx, sessionKey(s.UserID), data, 0).Err()
}

func (r *RedisStore) Delete(ctx context.Context, userID int64) error {
	return r.client.Del(ctx, sessionKey(userID)).Err()
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}
