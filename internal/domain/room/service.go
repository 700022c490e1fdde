package room

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/lazos/clinic/internal/domain/audit"
	"github.com/lazos/clinic/internal/platform/apperror"
	"github.com/lazos/clinic/internal/platform/auth"
	"github.com/lazos/clinic/internal/platform/db"
	"github.com/lazos/clinic/internal/platform/softdelete"
)

type Service struct {
	repo  Repository
	audit audit.Recorder
	tx    db.TxRunner
	now   func() time.Time
}

func NewService(repo Repository, recorder audit.Recorder, tx db.TxRunner) *Service {
	return &Service{
		repo:  repo,
		audit: recorder,
		tx:    tx,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

type Input struct {
	Number int    `json:"number"`
	Name   string `json:"name"`
}

func validate(in Input) error {
	v := apperror.NewValidation()
	if in.Number < 1 || in.Number > MaxNumber {
		v.Add("number", fmt.Sprintf("room number must be between 1 and %d", MaxNumber))
	}
	return v.Err()
}

func (s *Service) Create(ctx context.Context, actor auth.Actor, in Input) (*Room, error) {
	if err := validate(in); err != nil {
		return nil, err
	}

	rm := &Room{
		ID:        uuid.New(),
		Number:    in.Number,
		Name:      strings.TrimSpace(in.Name),
		Fields:    softdelete.Active(),
		CreatedAt: s.now(),
		UpdatedAt: s.now(),
	}
	if rm.Name == "" {
		rm.Name = fmt.Sprintf("Room %d", rm.Number)
	}

	err := s.tx(ctx, func(ctx context.Context) error {
		if err := s.repo.Create(ctx, rm); err != nil {
			return err
		}
		return s.audit.Record(ctx, &actor, audit.ActionCreate, "room", rm.ID.String(), map[string]interface{}{"number": rm.Number})
	})
	if err != nil {
		return nil, err
	}
	return rm, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Room, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context) ([]*Room, error) {
	return s.repo.List(ctx)
}

func (s *Service) Update(ctx context.Context, actor auth.Actor, id uuid.UUID, in Input) (*Room, error) {
	if err := validate(in); err != nil {
		return nil, err
	}

	var updated *Room
	err := s.tx(ctx, func(ctx context.Context) error {
		rm, err := s.repo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		rm.Number = in.Number
		if name := strings.TrimSpace(in.Name); name != "" {
			rm.Name = name
		}
		rm.UpdatedAt = s.now()
		if err := s.repo.Update(ctx, rm); err != nil {
			return err
		}
		if err := s.audit.Record(ctx, &actor, audit.ActionUpdate, "room", rm.ID.String(), nil); err != nil {
			return err
		}
		updated = rm
		return nil
	})
	return updated, err
}

func (s *Service) Delete(ctx context.Context, actor auth.Actor, id uuid.UUID) error {
	return s.tx(ctx, func(ctx context.Context) error {
		rm, err := s.repo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if err := rm.Mark(actor.ID, s.now()); err != nil {
			return err
		}
		rm.UpdatedAt = s.now()
		if err := s.repo.Update(ctx, rm); err != nil {
			return err
		}
		return s.audit.Record(ctx, &actor, audit.ActionDelete, "room", rm.ID.String(), nil)
	})
}

// Seed creates any of the clinic's eight rooms that do not exist yet.
// Safe to run repeatedly; existing rooms are left alone.
func (s *Service) Seed(ctx context.Context, logger zerolog.Logger) error {
	for n := 1; n <= MaxNumber; n++ {
		_, err := s.repo.GetByNumber(ctx, n)
		if err == nil {
			continue
		}
		if apperror.KindOf(err) != apperror.KindNotFound {
			return err
		}

		rm := &Room{
			ID:        uuid.New(),
			Number:    n,
			Name:      fmt.Sprintf("Room %d", n),
			Fields:    softdelete.Active(),
			CreatedAt: s.now(),
			UpdatedAt: s.now(),
		}
		if err := s.repo.Create(ctx, rm); err != nil {
			return fmt.Errorf("seed room %d: %w", n, err)
		}
		logger.Info().Int("number", n).Msg("room created")
	}
	return nil
}
