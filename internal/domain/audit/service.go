package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/lazos/clinic/internal/platform/auth"
)

// Recorder is the write-side surface other domains depend on. Every
// mutating operation appends exactly one entry; a failed append fails
// the enclosing transaction, since audit completeness is a correctness
// property rather than best-effort telemetry.
type Recorder interface {
	Record(ctx context.Context, actor *auth.Actor, action Action, targetType, targetID string, metadata map[string]interface{}) error
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Record(ctx context.Context, actor *auth.Actor, action Action, targetType, targetID string, metadata map[string]interface{}) error {
	e := &Entry{
		Action:     action,
		TargetType: targetType,
		TargetID:   targetID,
		Metadata:   metadata,
		CreatedAt:  time.Now().UTC(),
	}
	if actor != nil {
		id := actor.ID
		email := actor.Email
		e.ActorID = &id
		e.ActorEmail = &email
	}
	if e.Metadata == nil {
		e.Metadata = map[string]interface{}{}
	}
	if err := s.repo.Create(ctx, e); err != nil {
		return fmt.Errorf("append audit entry: %w", err)
	}
	return nil
}

func (s *Service) List(ctx context.Context, f Filter, limit, offset int) ([]*Entry, int, error) {
	return s.repo.List(ctx, f, limit, offset)
}
