package clinical

import (
	"time"

	"github.com/google/uuid"

	"github.com/lazos/clinic/internal/platform/softdelete"
)

// ReportEditWindow is how long a report stays editable after creation.
// Past it the report is part of the permanent record.
const ReportEditWindow = 30 * 24 * time.Hour

// Note is a clinical annotation. Its text is fixed at creation and can
// never be edited; corrections are made by writing a new note. Removal
// follows the shared soft-delete lifecycle.
type Note struct {
	ID        uuid.UUID `db:"id" json:"id"`
	PatientID uuid.UUID `db:"patient_id" json:"patient_id"`
	AuthorID  uuid.UUID `db:"author_id" json:"author_id"`
	Content   string    `db:"content" json:"content"`

	softdelete.Fields

	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// NoteFilter narrows note listings. From and To bound CreatedAt.
type NoteFilter struct {
	PatientID *uuid.UUID
	AuthorID  *uuid.UUID
	From      *time.Time
	To        *time.Time
}

// ReportFilter narrows report listings.
type ReportFilter struct {
	PatientID *uuid.UUID
	AuthorID  *uuid.UUID
}

// Report is a longer clinical document. Its author may revise it during
// the edit window; afterwards it locks.
type Report struct {
	ID        uuid.UUID `db:"id" json:"id"`
	PatientID uuid.UUID `db:"patient_id" json:"patient_id"`
	AuthorID  uuid.UUID `db:"author_id" json:"author_id"`
	Title     string    `db:"title" json:"title"`
	Content   string    `db:"content" json:"content"`

	softdelete.Fields

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Locked reports whether the edit window has closed.
func (r *Report) Locked(now time.Time) bool {
	return now.Sub(r.CreatedAt) > ReportEditWindow
}
