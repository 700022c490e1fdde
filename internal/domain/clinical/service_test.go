package clinical

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/lazos/clinic/internal/domain/audit"
	"github.com/lazos/clinic/internal/platform/apperror"
	"github.com/lazos/clinic/internal/platform/auth"
	"github.com/lazos/clinic/internal/platform/db"
)

type mockNoteRepo struct {
	notes map[uuid.UUID]*Note
}

func (m *mockNoteRepo) Create(_ context.Context, n *Note) error {
	cp := *n
	m.notes[n.ID] = &cp
	return nil
}

func (m *mockNoteRepo) GetByID(_ context.Context, id uuid.UUID) (*Note, error) {
	n, ok := m.notes[id]
	if !ok {
		return nil, apperror.NotFound("note")
	}
	cp := *n
	return &cp, nil
}

func (m *mockNoteRepo) List(_ context.Context, f NoteFilter, limit, offset int) ([]*Note, int, error) {
	var out []*Note
	for _, n := range m.notes {
		if !n.IsActive {
			continue
		}
		if f.PatientID != nil && n.PatientID != *f.PatientID {
			continue
		}
		if f.AuthorID != nil && n.AuthorID != *f.AuthorID {
			continue
		}
		cp := *n
		out = append(out, &cp)
	}
	return out, len(out), nil
}

func (m *mockNoteRepo) Update(_ context.Context, n *Note) error {
	if _, ok := m.notes[n.ID]; !ok {
		return apperror.NotFound("note")
	}
	cp := *n
	m.notes[n.ID] = &cp
	return nil
}

type mockReportRepo struct {
	reports map[uuid.UUID]*Report
}

func (m *mockReportRepo) Create(_ context.Context, r *Report) error {
	cp := *r
	m.reports[r.ID] = &cp
	return nil
}

func (m *mockReportRepo) GetByID(_ context.Context, id uuid.UUID) (*Report, error) {
	r, ok := m.reports[id]
	if !ok {
		return nil, apperror.NotFound("report")
	}
	cp := *r
	return &cp, nil
}

func (m *mockReportRepo) List(_ context.Context, f ReportFilter, limit, offset int) ([]*Report, int, error) {
	var out []*Report
	for _, r := range m.reports {
		if !r.IsActive {
			continue
		}
		if f.PatientID != nil && r.PatientID != *f.PatientID {
			continue
		}
		if f.AuthorID != nil && r.AuthorID != *f.AuthorID {
			continue
		}
		cp := *r
		out = append(out, &cp)
	}
	return out, len(out), nil
}

func (m *mockReportRepo) Update(_ context.Context, r *Report) error {
	if _, ok := m.reports[r.ID]; !ok {
		return apperror.NotFound("report")
	}
	cp := *r
	m.reports[r.ID] = &cp
	return nil
}

type mockRecorder struct {
	actions []audit.Action
}

func (m *mockRecorder) Record(_ context.Context, _ *auth.Actor, action audit.Action, _, _ string, _ map[string]interface{}) error {
	m.actions = append(m.actions, action)
	return nil
}

func newTestService() (*Service, *mockNoteRepo, *mockReportRepo, *mockRecorder) {
	notes := &mockNoteRepo{notes: make(map[uuid.UUID]*Note)}
	reports := &mockReportRepo{reports: make(map[uuid.UUID]*Report)}
	rec := &mockRecorder{}
	svc := NewService(notes, reports, rec, db.PassthroughTx)
	return svc, notes, reports, rec
}

func professional() auth.Actor {
	return auth.Actor{ID: uuid.New(), Email: "pro@clinic.test", Role: auth.RoleProfessional}
}

func TestCreateNoteAuthorIsActor(t *testing.T) {
	svc, _, _, rec := newTestService()
	actor := professional()

	n, err := svc.CreateNote(context.Background(), actor, NoteInput{
		PatientID: uuid.New(),
		Content:   "paciente en buen estado general",
	})
	if err != nil {
		t.Fatalf("create note: %v", err)
	}
	if n.AuthorID != actor.ID {
		t.Errorf("author = %s, want actor %s", n.AuthorID, actor.ID)
	}
	if len(rec.actions) != 1 || rec.actions[0] != audit.ActionCreate {
		t.Errorf("audit actions = %v, want [CREATE]", rec.actions)
	}
}

func TestCreateNoteEmptyContent(t *testing.T) {
	svc, _, _, _ := newTestService()

	_, err := svc.CreateNote(context.Background(), professional(), NoteInput{
		PatientID: uuid.New(),
		Content:   "   ",
	})
	if apperror.KindOf(err) != apperror.KindValidation {
		t.Fatalf("err = %v, want validation error", err)
	}
}

func TestDeleteNote(t *testing.T) {
	svc, notes, _, rec := newTestService()
	actor := professional()

	n, err := svc.CreateNote(context.Background(), actor, NoteInput{
		PatientID: uuid.New(),
		Content:   "nota inicial",
	})
	if err != nil {
		t.Fatalf("create note: %v", err)
	}

	if err := svc.DeleteNote(context.Background(), actor, n.ID); err != nil {
		t.Fatalf("delete note: %v", err)
	}
	stored := notes.notes[n.ID]
	if stored.IsActive || stored.DeletedBy == nil || *stored.DeletedBy != actor.ID {
		t.Error("note not soft-deleted with stamp")
	}
	if stored.Content != "nota inicial" {
		t.Error("note content changed on delete")
	}
	if rec.actions[len(rec.actions)-1] != audit.ActionDelete {
		t.Errorf("last audit action = %v, want DELETE", rec.actions[len(rec.actions)-1])
	}

	// a professional cannot remove someone else's note
	other, err := svc.CreateNote(context.Background(), actor, NoteInput{
		PatientID: uuid.New(),
		Content:   "otra nota",
	})
	if err != nil {
		t.Fatalf("create note: %v", err)
	}
	if err := svc.DeleteNote(context.Background(), professional(), other.ID); apperror.KindOf(err) != apperror.KindAuthorization {
		t.Fatalf("foreign delete err = %v, want authorization error", err)
	}
}

func TestNoteImmutableError(t *testing.T) {
	err := ErrNoteImmutable()
	if err.Status() != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", err.Status())
	}
	if err.Code != "note_not_editable" {
		t.Errorf("code = %s, want note_not_editable", err.Code)
	}
}

func TestUpdateReportWithinWindow(t *testing.T) {
	svc, _, repo, _ := newTestService()
	actor := professional()

	rp, err := svc.CreateReport(context.Background(), actor, ReportInput{
		PatientID: uuid.New(), Title: "Evaluación inicial", Content: "detalle",
	})
	if err != nil {
		t.Fatalf("create report: %v", err)
	}

	// 29 days later the author may still edit
	svc.now = func() time.Time { return rp.CreatedAt.Add(29 * 24 * time.Hour) }

	content := "detalle corregido"
	updated, err := svc.UpdateReport(context.Background(), actor, rp.ID, ReportUpdateInput{Content: &content})
	if err != nil {
		t.Fatalf("update within window: %v", err)
	}
	if updated.Content != content {
		t.Errorf("content = %q, want %q", updated.Content, content)
	}
	if repo.reports[rp.ID].Content != content {
		t.Error("update not persisted")
	}
}

func TestUpdateReportAfterWindowLocked(t *testing.T) {
	svc, _, _, _ := newTestService()
	actor := professional()

	rp, err := svc.CreateReport(context.Background(), actor, ReportInput{
		PatientID: uuid.New(), Title: "Evaluación inicial", Content: "detalle",
	})
	if err != nil {
		t.Fatalf("create report: %v", err)
	}

	svc.now = func() time.Time { return rp.CreatedAt.Add(31 * 24 * time.Hour) }

	content := "tarde"
	_, err = svc.UpdateReport(context.Background(), actor, rp.ID, ReportUpdateInput{Content: &content})
	appErr, ok := apperror.As(err)
	if !ok || appErr.Code != "report_locked" {
		t.Fatalf("err = %v, want report_locked", err)
	}
	if appErr.Status() != http.StatusForbidden {
		t.Errorf("status = %d, want 403", appErr.Status())
	}
}

func TestLockCheckedBeforeValidation(t *testing.T) {
	svc, _, _, _ := newTestService()
	actor := professional()

	rp, err := svc.CreateReport(context.Background(), actor, ReportInput{
		PatientID: uuid.New(), Title: "Evaluación inicial", Content: "detalle",
	})
	if err != nil {
		t.Fatalf("create report: %v", err)
	}

	svc.now = func() time.Time { return rp.CreatedAt.Add(31 * 24 * time.Hour) }

	// an empty title would normally be a validation error; the lock
	// must win
	empty := ""
	_, err = svc.UpdateReport(context.Background(), actor, rp.ID, ReportUpdateInput{Title: &empty})
	appErr, ok := apperror.As(err)
	if !ok || appErr.Code != "report_locked" {
		t.Fatalf("err = %v, want report_locked before validation", err)
	}
}

func TestUpdateReportForeignAuthorForbidden(t *testing.T) {
	svc, _, _, _ := newTestService()
	author := professional()

	rp, err := svc.CreateReport(context.Background(), author, ReportInput{
		PatientID: uuid.New(), Title: "Evaluación", Content: "detalle",
	})
	if err != nil {
		t.Fatalf("create report: %v", err)
	}

	content := "ajeno"
	_, err = svc.UpdateReport(context.Background(), professional(), rp.ID, ReportUpdateInput{Content: &content})
	if apperror.KindOf(err) != apperror.KindAuthorization {
		t.Fatalf("err = %v, want authorization error", err)
	}
}

func TestDeleteReportLockedAfterWindow(t *testing.T) {
	svc, _, repo, _ := newTestService()
	actor := professional()

	rp, err := svc.CreateReport(context.Background(), actor, ReportInput{
		PatientID: uuid.New(), Title: "Evaluación", Content: "detalle",
	})
	if err != nil {
		t.Fatalf("create report: %v", err)
	}

	svc.now = func() time.Time { return rp.CreatedAt.Add(31 * 24 * time.Hour) }
	err = svc.DeleteReport(context.Background(), actor, rp.ID)
	appErr, ok := apperror.As(err)
	if !ok || appErr.Code != "report_locked" {
		t.Fatalf("err = %v, want report_locked", err)
	}

	// within the window the delete goes through and stamps the record
	svc.now = func() time.Time { return rp.CreatedAt.Add(24 * time.Hour) }
	if err := svc.DeleteReport(context.Background(), actor, rp.ID); err != nil {
		t.Fatalf("delete within window: %v", err)
	}
	stored := repo.reports[rp.ID]
	if stored.IsActive || stored.DeletedBy == nil || *stored.DeletedBy != actor.ID {
		t.Error("report not soft-deleted with stamp")
	}
}
