package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/foxseedlab/tunesmith/internal/repository"
	"github.com/foxseedlab/tunesmith/internal/session"
	_ "modernc.org/sqlite"
)

const (
	sqliteBusyCode    = 5
	sqliteLockedCode  = 6
	sqliteBusyRetries = 5
	sqliteBusyBackoff = 50 * time.Millisecond
)

type SQLiteRepository struct {
	db  *sql.DB
	now func() time.Time
}

func OpenSQLite(ctx context.Context, path string) (*SQLiteRepository, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// One writer keeps SQLITE_BUSY rare; retryOnBusy covers the rest.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply %q: %w", p, err)
		}
	}
	return &SQLiteRepository{db: db, now: time.Now}, nil
}

func (r *SQLiteRepository) Migrate(ctx context.Context) error {
	return runSQLiteMigration(ctx, r.db)
}

func (r *SQLiteRepository) Close() {
	_ = r.db.Close()
}

func (r *SQLiteRepository) FindUser(ctx context.Context, userID int64) (*repository.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT user_id, number_of_files_sent, created_at, updated_at FROM users WHERE user_id = ?`,
		userID)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return u, err
}

func (r *SQLiteRepository) CreateUser(ctx context.Context, userID int64) (*repository.User, error) {
	now := r.now().Unix()
	err := r.retryOnBusy(ctx, func() error {
		_, err := r.db.ExecContext(ctx,
			`INSERT INTO users (user_id, number_of_files_sent, created_at, updated_at) VALUES (?, 0, ?, ?)
			 ON CONFLICT (user_id) DO NOTHING`,
			userID, now, now)
		return err
	})
	if err != nil {
		return nil, err
	}
	return r.FindUser(ctx, userID)
}

func (r *SQLiteRepository) CountUsers(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n)
	return n, err
}

func (r *SQLiteRepository) IncrementUsageCounter(ctx context.Context, userID int64) error {
	now := r.now().Unix()
	return r.retryOnBusy(ctx, func() error {
		_, err := r.db.ExecContext(ctx,
			`INSERT INTO users (user_id, number_of_files_sent, created_at, updated_at) VALUES (?, 1, ?, ?)
			 ON CONFLICT (user_id) DO UPDATE
			 SET number_of_files_sent = number_of_files_sent + 1, updated_at = excluded.updated_at`,
			userID, now, now)
		return err
	})
}

func (r *SQLiteRepository) ListTopUsers(ctx context.Context, limit int) ([]repository.User, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT user_id, number_of_files_sent, created_at, updated_at
		 FROM users ORDER BY number_of_files_sent DESC, user_id ASC LIMIT ?`,
		limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []repository.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *u)
	}
	return list, rows.Err()
}

func (r *SQLiteRepository) IsAdmin(ctx context.Context, userID int64) (bool, error) {
	var ok bool
	err := r.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM admins WHERE admin_user_id = ?)`, userID).Scan(&ok)
	return ok, err
}

func (r *SQLiteRepository) AddAdmin(ctx context.Context, userID int64) error {
	now := r.now().Unix()
	return r.retryOnBusy(ctx, func() error {
		_, err := r.db.ExecContext(ctx,
			`INSERT INTO admins (admin_user_id, created_at) VALUES (?, ?) ON CONFLICT DO NOTHING`,
			userID, now)
		return err
	})
}

func (r *SQLiteRepository) RemoveAdmin(ctx context.Context, userID int64) error {
	return r.retryOnBusy(ctx, func() error {
		_, err := r.db.ExecContext(ctx, `DELETE FROM admins WHERE admin_user_id = ?`, userID)
		return err
	})
}

func (r *SQLiteRepository) CountAdmins(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM admins`).Scan(&n)
	return n, err
}

func (r *SQLiteRepository) Load(ctx context.Context, userID int64) (*session.Session, error) {
	var data []byte
	err := r.db.QueryRowContext(ctx, `SELECT data FROM session_snapshots WHERE user_id = ?`, userID).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return session.DecodeSnapshot(data)
}

func (r *SQLiteRepository) Save(ctx context.Context, s *session.Session) error {
	data, err := session.EncodeSnapshot(s)
	if err != nil {
		return fmt.Errorf("encode session snapshot: %w", err)
	}
	now := r.now().Unix()
	return r.retryOnBusy(ctx, func() error {
		_, err := r.db.ExecContext(ctx,
			`INSERT INTO session_snapshots (user_id, data, updated_at) VALUES (?, ?, ?)
			 ON CONFLICT (user_id) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
			s.UserID, data, now)
		return err
	})
}

func (r *SQLiteRepository) Delete(ctx context.Context, userID int64) error {
	return r.retryOnBusy(ctx, func() error {
		_, err := r.db.ExecContext(ctx, `DELETE FROM session_snapshots WHERE user_id = ?`, userID)
		return err
	})
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*repository.User, error) {
	var (
		u                repository.User
		created, updated int64
	)
	if err := row.Scan(&u.UserID, &u.NumberOfFilesSent, &created, &updated); err != nil {
		return nil, err
	}
	u.CreatedAt = time.Unix(created, 0).UTC()
	u.UpdatedAt = time.Unix(updated, 0).UTC()
	return &u, nil
}

func (r *SQLiteRepository) retryOnBusy(ctx context.Context, op func() error) error {
	var err error
	for attempt := 0; attempt < sqliteBusyRetries; attempt++ {
		err = op()
		if err == nil || !isSQLiteBusy(err) {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(sqliteBusyBackoff * time.Duration(attempt+1)):
		}
	}
	return err
}

func isSQLiteBusy(err error) bool {
	var coder interface{ Code() int }
	if errors.As(err, &coder) {
		code := coder.Code() & 0xff
		if code == sqliteBusyCode || code == sqliteLockedCode {
			return true
		}
	}
	msg := err.Error()
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "SQLITE_BUSY")
}
