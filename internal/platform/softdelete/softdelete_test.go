package softdelete

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/lazos/clinic/internal/platform/apperror"
)

func TestMark(t *testing.T) {
	f := Active()
	actor := uuid.New()
	now := time.Now().UTC()

	if err := f.Mark(actor, now); err != nil {
		t.Fatalf("mark: %v", err)
	}
	if f.IsActive {
		t.Error("still active after mark")
	}
	if f.DeletedAt == nil || !f.DeletedAt.Equal(now) {
		t.Errorf("deleted_at = %v, want %v", f.DeletedAt, now)
	}
	if f.DeletedBy == nil || *f.DeletedBy != actor {
		t.Errorf("deleted_by = %v, want %v", f.DeletedBy, actor)
	}
}

func TestMarkTwicePreservesOriginalStamp(t *testing.T) {
	f := Active()
	first := uuid.New()
	firstAt := time.Now().UTC()
	if err := f.Mark(first, firstAt); err != nil {
		t.Fatalf("first mark: %v", err)
	}

	err := f.Mark(uuid.New(), firstAt.Add(time.Hour))
	appErr, ok := apperror.As(err)
	if !ok || appErr.Code != "already_deleted" {
		t.Fatalf("second mark err = %v, want already_deleted", err)
	}
	if *f.DeletedBy != first || !f.DeletedAt.Equal(firstAt) {
		t.Error("original deletion stamp was overwritten")
	}
}
