package invitation

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, i *Invitation) error
	GetByID(ctx context.Context, id uuid.UUID) (*Invitation, error)
	GetByToken(ctx context.Context, token string) (*Invitation, error)
	List(ctx context.Context, limit, offset int) ([]*Invitation, int, error)
	Update(ctx context.Context, i *Invitation) error
}
