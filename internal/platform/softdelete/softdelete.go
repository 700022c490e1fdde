// Package softdelete holds the lifecycle fields shared by every entity
// that is deactivated instead of physically deleted. Embedding Fields
// gives an entity the is_active/deleted_at/deleted_by triple and the
// single implementation of the deactivation rule.
package softdelete

import (
	"time"

	"github.com/google/uuid"

	"github.com/lazos/clinic/internal/platform/apperror"
)

type Fields struct {
	IsActive  bool       `db:"is_active" json:"is_active"`
	DeletedAt *time.Time `db:"deleted_at" json:"deleted_at,omitempty"`
	DeletedBy *uuid.UUID `db:"deleted_by" json:"deleted_by,omitempty"`
}

// Active returns the Fields value of a live record.
func Active() Fields {
	return Fields{IsActive: true}
}

// Mark deactivates the record, recording when and by whom. Marking an
// already-inactive record is rejected so the original deletion stamp is
// never overwritten.
func (f *Fields) Mark(actor uuid.UUID, now time.Time) error {
	if !f.IsActive {
		return apperror.Conflict("already_deleted", "record is already deleted")
	}
	f.IsActive = false
	f.DeletedAt = &now
	f.DeletedBy = &actor
	return nil
}
