package repository

import "time"

type User struct {
	UserID            int64
	NumberOfFilesSent int64
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

type Admin struct {
	AdminUserID int64
	CreatedAt   time.Time
}
