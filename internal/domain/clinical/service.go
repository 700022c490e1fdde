package clinical

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/lazos/clinic/internal/domain/audit"
	"github.com/lazos/clinic/internal/platform/apperror"
	"github.com/lazos/clinic/internal/platform/auth"
	"github.com/lazos/clinic/internal/platform/db"
	"github.com/lazos/clinic/internal/platform/softdelete"
)

// ErrNoteImmutable is returned for any attempt to edit a note's text.
// The method-not-allowed status tells clients the operation does not
// exist for this resource, not that it is forbidden for them.
func ErrNoteImmutable() *apperror.Error {
	return apperror.Immutable("note_not_editable", "clinical notes cannot be modified once written", http.StatusMethodNotAllowed)
}

// ErrReportLocked is returned once a report's edit window has closed.
func ErrReportLocked() *apperror.Error {
	return apperror.Immutable("report_locked", "this report can no longer be modified", http.StatusForbidden)
}

type Service struct {
	notes   NoteRepository
	reports ReportRepository
	audit   audit.Recorder
	tx      db.TxRunner
	now     func() time.Time
}

func NewService(notes NoteRepository, reports ReportRepository, recorder audit.Recorder, tx db.TxRunner) *Service {
	return &Service{
		notes:   notes,
		reports: reports,
		audit:   recorder,
		tx:      tx,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

type NoteInput struct {
	PatientID uuid.UUID `json:"patient_id"`
	Content   string    `json:"content"`
}

// CreateNote writes a note authored by the acting professional. The
// author is always the actor; notes cannot be written in someone
// else's name.
func (s *Service) CreateNote(ctx context.Context, actor auth.Actor, in NoteInput) (*Note, error) {
	content := strings.TrimSpace(in.Content)
	if content == "" {
		v := apperror.NewValidation()
		v.Add("content", "content is required")
		return nil, v.Err()
	}

	n := &Note{
		ID:        uuid.New(),
		PatientID: in.PatientID,
		AuthorID:  actor.ID,
		Content:   content,
		Fields:    softdelete.Active(),
		CreatedAt: s.now(),
	}

	err := s.tx(ctx, func(ctx context.Context) error {
		if err := s.notes.Create(ctx, n); err != nil {
			return err
		}
		return s.audit.Record(ctx, &actor, audit.ActionCreate, "note", n.ID.String(), map[string]interface{}{
			"patient_id": n.PatientID.String(),
		})
	})
	if err != nil {
		return nil, err
	}
	return n, nil
}

func (s *Service) GetNote(ctx context.Context, id uuid.UUID) (*Note, error) {
	return s.notes.GetByID(ctx, id)
}

func (s *Service) ListNotes(ctx context.Context, f NoteFilter, limit, offset int) ([]*Note, int, error) {
	return s.notes.List(ctx, f, limit, offset)
}

// DeleteNote soft-deletes a note. Only the text is immutable; the
// record itself follows the shared lifecycle.
func (s *Service) DeleteNote(ctx context.Context, actor auth.Actor, id uuid.UUID) error {
	return s.tx(ctx, func(ctx context.Context) error {
		n, err := s.notes.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if !actor.CanActOnProfessionalResource(n.AuthorID) {
			return apperror.Authorization("only the author may delete this note")
		}
		if err := n.Mark(actor.ID, s.now()); err != nil {
			return err
		}
		if err := s.notes.Update(ctx, n); err != nil {
			return err
		}
		return s.audit.Record(ctx, &actor, audit.ActionDelete, "note", n.ID.String(), nil)
	})
}

type ReportInput struct {
	PatientID uuid.UUID `json:"patient_id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
}

func validateReport(title, content string) error {
	v := apperror.NewValidation()
	if title == "" {
		v.Add("title", "title is required")
	}
	if content == "" {
		v.Add("content", "content is required")
	}
	return v.Err()
}

func (s *Service) CreateReport(ctx context.Context, actor auth.Actor, in ReportInput) (*Report, error) {
	title := strings.TrimSpace(in.Title)
	content := strings.TrimSpace(in.Content)
	if err := validateReport(title, content); err != nil {
		return nil, err
	}

	rp := &Report{
		ID:        uuid.New(),
		PatientID: in.PatientID,
		AuthorID:  actor.ID,
		Title:     title,
		Content:   content,
		Fields:    softdelete.Active(),
		CreatedAt: s.now(),
		UpdatedAt: s.now(),
	}

	err := s.tx(ctx, func(ctx context.Context) error {
		if err := s.reports.Create(ctx, rp); err != nil {
			return err
		}
		return s.audit.Record(ctx, &actor, audit.ActionCreate, "report", rp.ID.String(), map[string]interface{}{
			"patient_id": rp.PatientID.String(),
		})
	})
	if err != nil {
		return nil, err
	}
	return rp, nil
}

func (s *Service) GetReport(ctx context.Context, id uuid.UUID) (*Report, error) {
	return s.reports.GetByID(ctx, id)
}

func (s *Service) ListReports(ctx context.Context, f ReportFilter, limit, offset int) ([]*Report, int, error) {
	return s.reports.List(ctx, f, limit, offset)
}

type ReportUpdateInput struct {
	Title   *string `json:"title"`
	Content *string `json:"content"`
}

// UpdateReport revises a report. The lock is checked before anything
// else: a locked report rejects even a well-formed edit.
func (s *Service) UpdateReport(ctx context.Context, actor auth.Actor, id uuid.UUID, in ReportUpdateInput) (*Report, error) {
	var updated *Report
	err := s.tx(ctx, func(ctx context.Context) error {
		rp, err := s.reports.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if rp.Locked(s.now()) {
			return ErrReportLocked()
		}
		if !actor.CanActOnProfessionalResource(rp.AuthorID) {
			return apperror.Authorization("only the author may edit this report")
		}
		if !rp.IsActive {
			return apperror.Conflict("already_deleted", "record is already deleted")
		}

		if in.Title != nil {
			rp.Title = strings.TrimSpace(*in.Title)
		}
		if in.Content != nil {
			rp.Content = strings.TrimSpace(*in.Content)
		}
		if err := validateReport(rp.Title, rp.Content); err != nil {
			return err
		}

		rp.UpdatedAt = s.now()
		if err := s.reports.Update(ctx, rp); err != nil {
			return err
		}
		if err := s.audit.Record(ctx, &actor, audit.ActionUpdate, "report", rp.ID.String(), nil); err != nil {
			return err
		}
		updated = rp
		return nil
	})
	return updated, err
}

func (s *Service) DeleteReport(ctx context.Context, actor auth.Actor, id uuid.UUID) error {
	return s.tx(ctx, func(ctx context.Context) error {
		rp, err := s.reports.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if rp.Locked(s.now()) {
			return ErrReportLocked()
		}
		if !actor.CanActOnProfessionalResource(rp.AuthorID) {
			return apperror.Authorization("only the author may delete this report")
		}
		if err := rp.Mark(actor.ID, s.now()); err != nil {
			return err
		}
		rp.UpdatedAt = s.now()
		if err := s.reports.Update(ctx, rp); err != nil {
			return err
		}
		return s.audit.Record(ctx, &actor, audit.ActionDelete, "report", rp.ID.String(), nil)
	})
}
