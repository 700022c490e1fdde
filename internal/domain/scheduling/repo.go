package scheduling

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository persists appointments. ExistsOverlap asks whether any
// blocking appointment in the room intersects [start, end), optionally
// excluding one appointment (the one being rescheduled).
type Repository interface {
	Create(ctx context.Context, a *Appointment) error
	GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	List(ctx context.Context, f Filter, limit, offset int) ([]*Appointment, int, error)
	Update(ctx context.Context, a *Appointment) error
	ExistsOverlap(ctx context.Context, roomID uuid.UUID, start, end time.Time, excludeID *uuid.UUID) (bool, error)
}
