package repository

import (
	"context"
)

type UserRepository interface {
	// FindUser returns nil, nil when the user has never contacted the bot.
	FindUser(ctx context.Context, userID int64) (*User, error)
	CreateUser(ctx context.Context, userID int64) (*User, error)
	CountUsers(ctx context.Context) (int, error)
	IncrementUsageCounter(ctx context.Context, userID int64) error
	ListTopUsers(ctx context.Context, limit int) ([]User, error)
}

type AdminRepository interface {
	IsAdmin(ctx context.Context, userID int64) (bool, error)
	AddAdmin(ctx context.Context, userID int64) error
	RemoveAdmin(ctx context.Context, userID int64) error
	CountAdmins(ctx context.Context) (int, error)
}

type Repository interface {
	UserRepository
	AdminRepository
	Close()
}
