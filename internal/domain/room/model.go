package room

import (
	"time"

	"github.com/google/uuid"

	"github.com/lazos/clinic/internal/platform/softdelete"
)

// MaxNumber caps the clinic at its eight physical rooms.
const MaxNumber = 8

// Room is one of the clinic's consultation rooms, identified to staff
// by its number.
type Room struct {
	ID     uuid.UUID `db:"id" json:"id"`
	Number int       `db:"number" json:"number"`
	Name   string    `db:"name" json:"name"`

	softdelete.Fields

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}
