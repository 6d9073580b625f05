package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/foxseedlab/tunesmith/internal/config"
	"github.com/foxseedlab/tunesmith/internal/repository"
	"github.com/foxseedlab/tunesmith/internal/session"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/do/v2"
)

const databaseInitTimeout = 15 * time.Second

// Backend is a database that stores users, admins and session snapshots.
type Backend interface {
	repository.Repository
	session.Store
	Migrate(ctx context.Context) error
}

var (
	_ Backend = (*PostgresRepository)(nil)
	_ Backend = (*SQLiteRepository)(nil)
)

// Open connects to the database named by url. postgres:// and postgresql://
// select PostgreSQL; sqlite:// and file: select an embedded SQLite file.
func Open(ctx context.Context, url string) (Backend, error) {
	switch {
	case strings.HasPrefix(url, "postgres://"), strings.HasPrefix(url, "postgresql://"):
		p, err := pgxpool.New(ctx, url)
		if err != nil {
			return nil, fmt.Errorf("failed to connect database: %w", err)
		}
		if err := p.Ping(ctx); err != nil {
			p.Close()
			return nil, fmt.Errorf("failed to ping database: %w", err)
		}
		return NewPostgresRepository(p), nil
	case strings.HasPrefix(url, "sqlite://"):
		return OpenSQLite(ctx, strings.TrimPrefix(url, "sqlite://"))
	case strings.HasPrefix(url, "file:"):
		return OpenSQLite(ctx, url)
	default:
		return nil, fmt.Errorf("unsupported database url scheme: %q", schemeOf(url))
	}
}

func schemeOf(url string) string {
	if i := strings.Index(url, ":"); i > 0 {
		return url[:i]
	}
	return url
}

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (Backend, error) {
		cfg := do.MustInvoke[*config.Config](i)
		ctx, cancel := context.WithTimeout(context.Background(), databaseInitTimeout)
		defer cancel()

		b, err := Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := b.Migrate(ctx); err != nil {
			b.Close()
			return nil, fmt.Errorf("failed to run migration: %w", err)
		}
		return b, nil
	})
	do.Provide(injector, func(i do.Injector) (repository.Repository, error) {
		return do.MustInvoke[Backend](i), nil
	})
}
