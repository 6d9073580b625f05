package sessionstore

import (
	"context"
	"fmt"
	"time"

	"github.com/foxseedlab/tunesmith/external/repository"
	"github.com/foxseedlab/tunesmith/internal/config"
	"github.com/foxseedlab/tunesmith/internal/session"
	"github.com/samber/do/v2"
)

const redisInitTimeout = 15 * time.Second

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (session.Store, error) {
		cfg := do.MustInvoke[*config.Config](i)
		switch cfg.SessionStore {
		case config.SessionStoreMemory:
			return session.NewMemoryStore(), nil
		case config.SessionStoreRedis:
			ctx, cancel := context.WithTimeout(context.Background(), redisInitTimeout)
			defer cancel()
			client, err := Connect(ctx, cfg.RedisURL)
			if err != nil {
				return nil, err
			}
			return NewRedisStore(client), nil
		case config.SessionStoreDatabase:
			return do.MustInvoke[repository.Backend](i), nil
		default:
			return nil, fmt.Errorf("unsupported session store %q", cfg.SessionStore)
		}
	})
}
