// Package database defines the port interface for persistent storage.
package database

import (
	"context"

	"github.com/bandungair/udara/internal/domain/user"
)

// Store is the persistence port for user accounts and profiles.
type Store interface {
	CreateUser(ctx context.Context, u *user.User) error
	GetUser(ctx context.Context, id string) (*user.User, error)
	GetUserByEmail(ctx context.Context, email string) (*user.User, error)
	ListUsers(ctx context.Context) ([]user.User, error)
	UpdateUser(ctx context.Context, u *user.User) error
	DeleteUser(ctx context.Context, id string) error
	CountUsers(ctx context.Context) (total, admins int, err error)
}
