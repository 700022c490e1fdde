package document

import (
	"time"

	"github.com/google/uuid"

	"github.com/lazos/clinic/internal/platform/softdelete"
)

// Document is a file attached to a patient record: scans, lab results,
// referrals. The bytes live in the blob store; this row is the index.
type Document struct {
	ID          uuid.UUID `db:"id" json:"id"`
	PatientID   uuid.UUID `db:"patient_id" json:"patient_id"`
	UploadedBy  uuid.UUID `db:"uploaded_by" json:"uploaded_by"`
	FileName    string    `db:"file_name" json:"file_name"`
	ContentType string    `db:"content_type" json:"content_type"`
	Size        int64     `db:"size" json:"size"`
	StoragePath string    `db:"storage_path" json:"-"`

	softdelete.Fields

	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Filter narrows document listings. Name matches a substring of the
// file name.
type Filter struct {
	PatientID *uuid.UUID
	Name      string
}
