package repository

import (
	"context"

	"github.com/keepsake-app/keepsake/internal/model"
)

// UserRepository stores accounts for the reference backend's auth.
type UserRepository interface {
	// Create inserts a new user; ErrAlreadyExists on username collision.
	Create(ctx context.Context, u *model.User) error

	// GetByUsername selects a user by username.
	GetByUsername(ctx context.Context, username string) (*model.User, error)
}
