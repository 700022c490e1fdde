package scheduling

import (
	"time"

	"github.com/google/uuid"

	"github.com/lazos/clinic/internal/platform/softdelete"
)

// Appointment status values. Cancelled appointments keep their slot
// history but no longer block the room.
const (
	StatusConfirmed = "CONFIRMED"
	StatusWaiting   = "WAITING"
	StatusFinished  = "FINISHED"
	StatusCancelled = "CANCELLED"
)

// Appointment books a room for one patient and one professional over a
// half-open interval [StartAt, EndAt). Times are stored in UTC; the
// booking rules are evaluated in the clinic's local time.
type Appointment struct {
	ID             uuid.UUID `db:"id" json:"id"`
	PatientID      uuid.UUID `db:"patient_id" json:"patient_id"`
	ProfessionalID uuid.UUID `db:"professional_id" json:"professional_id"`
	RoomID         uuid.UUID `db:"room_id" json:"room_id"`
	StartAt        time.Time `db:"start_at" json:"start_at"`
	EndAt          time.Time `db:"end_at" json:"end_at"`
	Status         string    `db:"status" json:"status"`
	Reason         string    `db:"reason" json:"reason"`

	softdelete.Fields

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Blocking reports whether the appointment occupies its room. Cancelled
// and soft-deleted appointments release the slot.
func (a *Appointment) Blocking() bool {
	return a.IsActive && a.Status != StatusCancelled
}

func ValidStatus(s string) bool {
	switch s {
	case StatusConfirmed, StatusWaiting, StatusFinished, StatusCancelled:
		return true
	}
	return false
}

// Filter narrows appointment listings. From and To select every
// appointment whose [StartAt, EndAt) interval overlaps [From, To).
type Filter struct {
	PatientID      *uuid.UUID
	ProfessionalID *uuid.UUID
	RoomID         *uuid.UUID
	RoomNumber     *int
	Status         string
	From           *time.Time
	To             *time.Time
}
