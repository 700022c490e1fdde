package identity

import (
	"context"

	"github.com/google/uuid"
)

// Repository persists users. GetByID and GetByEmail return the record
// regardless of lifecycle state so callers can distinguish "gone" from
// "never existed"; List returns active users only.
type Repository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	List(ctx context.Context, limit, offset int) ([]*User, int, error)
	Update(ctx context.Context, u *User) error
}
