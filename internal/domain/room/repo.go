package room

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, r *Room) error
	GetByID(ctx context.Context, id uuid.UUID) (*Room, error)
	GetByNumber(ctx context.Context, number int) (*Room, error)
	List(ctx context.Context) ([]*Room, error)
	Update(ctx context.Context, r *Room) error
}
