package document

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, d *Document) error
	GetByID(ctx context.Context, id uuid.UUID) (*Document, error)
	List(ctx context.Context, f Filter, limit, offset int) ([]*Document, int, error)
	Update(ctx context.Context, d *Document) error
}
