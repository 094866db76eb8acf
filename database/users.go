package database

import (
	"context"
	"perfumery_server/lib"
	"perfumery_server/structs/tables"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// UserRepository is the Postgres implementation of the user store
type UserRepository struct {
	db bun.IDB
}

func NewUserRepository(db bun.IDB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(ctx context.Context, user *tables.User) error {
	if user.Id == uuid.Nil {
		user.Id = uuid.New()
	}
	user.CreatedAt, user.UpdatedAt = stamp(user.CreatedAt)
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	if _, err := Query[tables.User](r.db).Insert(ctx, user); err != nil {
		return lib.MapPgError(err)
	}
	return nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*tables.User, error) {
	user, err := Query[tables.User](r.db).Where("email", strings.ToLower(strings.TrimSpace(email))).First(ctx)
	if err != nil {
		return nil, lib.MapPgError(err)
	}
	if user == nil {
		return nil, lib.ErrNotFound
	}
	return user, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*tables.User, error) {
	user, err := FindByID[tables.User](ctx, r.db, id)
	if err != nil {
		return nil, lib.MapPgError(err)
	}
	if user == nil {
		return nil, lib.ErrNotFound
	}
	return user, nil
}

func (r *UserRepository) UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	_, err := Query[tables.User](r.db).Where("id", id).Update(ctx, map[string]any{
		"last_login": at,
	})
	return lib.MapPgError(err)
}

// UpdateCredentials resets the password hash and role, used by admin bootstrap
func (r *UserRepository) UpdateCredentials(ctx context.Context, id uuid.UUID, passwordHash, role string) error {
	_, err := Query[tables.User](r.db).Where("id", id).Update(ctx, map[string]any{
		"password_hash": passwordHash,
		"role":          role,
		"updated_at":    time.Now().UTC(),
	})
	return lib.MapPgError(err)
}
