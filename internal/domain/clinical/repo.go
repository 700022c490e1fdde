package clinical

import (
	"context"

	"github.com/google/uuid"
)

// NoteRepository carries no content update: a note's text is fixed at
// creation. Update persists only the lifecycle fields.
type NoteRepository interface {
	Create(ctx context.Context, n *Note) error
	GetByID(ctx context.Context, id uuid.UUID) (*Note, error)
	List(ctx context.Context, f NoteFilter, limit, offset int) ([]*Note, int, error)
	Update(ctx context.Context, n *Note) error
}

type ReportRepository interface {
	Create(ctx context.Context, r *Report) error
	GetByID(ctx context.Context, id uuid.UUID) (*Report, error)
	List(ctx context.Context, f ReportFilter, limit, offset int) ([]*Report, int, error)
	Update(ctx context.Context, r *Report) error
}
