package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/foxseedlab/tunesmith/internal/repository"
	"github.com/foxseedlab/tunesmith/internal/session"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

func (r *PostgresRepository) Migrate(ctx context.Context) error {
	return runPostgresMigration(ctx, r.pool)
}

func (r *PostgresRepository) Close() {
	r.pool.Close()
}

func (r *PostgresRepository) FindUser(ctx context.Context, userID int64) (*repository.User, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT user_id, number_of_files_sent, created_at, updated_at FROM users WHERE user_id = $1`,
		userID)
	var u repository.User
	if err := row.Scan(&u.UserID, &u.NumberOfFilesSent, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

func (r *PostgresRepository) CreateUser(ctx context.Context, userID int64) (*repository.User, error) {
	row := r.pool.QueryRow(ctx,
		`INSERT INTO users (user_id) VALUES ($1)
		 ON CONFLICT (user_id) DO UPDATE SET user_id = EXCLUDED.user_id
		 RETURNING user_id, number_of_files_sent, created_at, updated_at`,
		userID)
	var u repository.User
	if err := row.Scan(&u.UserID, &u.NumberOfFilesSent, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *PostgresRepository) CountUsers(ctx context.Context) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&n)
	return n, err
}

func (r *PostgresRepository) IncrementUsageCounter(ctx context.Context, userID int64) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO users (user_id, number_of_files_sent) VALUES ($1, 1)
		 ON CONFLICT (user_id) DO UPDATE
		 SET number_of_files_sent = users.number_of_files_sent + 1, updated_at = NOW()`,
		userID)
	return err
}

func (r *PostgresRepository) ListTopUsers(ctx context.Context, limit int) ([]repository.User, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT user_id, number_of_files_sent, created_at, updated_at
		 FROM users ORDER BY number_of_files_sent DESC, user_id ASC LIMIT $1`,
		limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []repository.User
	for rows.Next() {
		var u repository.User
		if err := rows.Scan(&u.UserID, &u.NumberOfFilesSent, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, err
		}
		list = append(list, u)
	}
	return list, rows.Err()
}

func (r *PostgresRepository) IsAdmin(ctx context.Context, userID int64) (bool, error) {
	var ok bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM admins WHERE admin_user_id = $1)`, userID).Scan(&ok)
	return ok, err
}

func (r *PostgresRepository) AddAdmin(ctx context.Context, userID int64) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO admins (admin_user_id) VALUES ($1) ON CONFLICT DO NOTHING`, userID)
	return err
}

func (r *PostgresRepository) RemoveAdmin(ctx context.Context, userID int64) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM admins WHERE admin_user_id = $1`, userID)
	return err
}

func (r *PostgresRepository) CountAdmins(ctx context.Context) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM admins`).Scan(&n)
	return n, err
}

func (r *PostgresRepository) Load(ctx context.Context, userID int64) (*session.Session, error) {
	var data []byte
	err := r.pool.QueryRow(ctx, `SELECT data FROM session_snapshots WHERE user_id = $1`, userID).Scan(&data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return session.DecodeSnapshot(data)
}

func (r *PostgresRepository) Save(ctx context.Context, s *session.Session) error {
	data, err := session.EncodeSnapshot(s)
	if err != nil {
		return fmt.Errorf("encode session snapshot: %w", err)
	}
	_, err = r.pool.Exec(ctx,
		`INSERT INTO session_snapshots (user_id, data, updated_at) VALUES ($1, $2, NOW())
		 ON CONFLICT (user_id) DO UPDATE SET data = EXCLUDED.data, updated_at = NOW()`,
		s.UserID, data)
	return err
}

func (r *PostgresRepository) Delete(ctx context.Context, userID int64) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM session_snapshots WHERE user_id = $1`, userID)
	return err
}
