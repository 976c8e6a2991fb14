package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/keepsake-app/keepsake/internal/errs"
	"github.com/keepsake-app/keepsake/internal/model"
)

// UserRepo implements UserRepository using PostgreSQL.
type UserRepo struct{ db *DB }

// NewUserRepo constructs a user repository.
func NewUserRepo(db *DB) *UserRepo { return &UserRepo{db: db} }

// Create inserts a new user; ErrAlreadyExists on username collision.
func (r *UserRepo) Create(ctx context.Context, u *model.User) error {
	const ins = `
INSERT INTO users (id, username, pwd_hash, salt_auth, created_at)
VALUES ($1,$2,$3,$4,$5)`
	_, err := r.db.Pool.Exec(ctx, ins, u.ID, u.Username, u.PwdHash, u.SaltAuth, u.CreatedAt)
	if isUniqueViolation(err) {
		return errs.ErrAlreadyExists
	}
	return err
}

// GetByUsername selects a user by username.
func (r *UserRepo) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	const q = `SELECT id, username, pwd_hash, salt_auth, created_at FROM users WHERE username=$1`
	var u model.User
	err := r.db.Pool.QueryRow(ctx, q, username).
		Scan(&u.ID, &u.Username, &u.PwdHash, &u.SaltAuth, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}
