package patient

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

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
	FirstName string     `json:"first_name"`
	LastName  string     `json:"last_name"`
	DNI       string     `json:"dni"`
	BirthDate *time.Time `json:"birth_date"`
	Phone     string     `json:"phone"`
	Email     string     `json:"email"`
	Address   string     `json:"address"`
	Insurance string     `json:"insurance"`
}

func (in *Input) normalize() {
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.DNI = strings.TrimSpace(in.DNI)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
}

func validate(in Input) error {
	v := apperror.NewValidation()
	if in.FirstName == "" {
		v.Add("first_name", "first name is required")
	}
	if in.LastName == "" {
		v.Add("last_name", "last name is required")
	}
	if in.DNI == "" {
		v.Add("dni", "dni is required")
	}
	return v.Err()
}

func (s *Service) Create(ctx context.Context, actor auth.Actor, in Input) (*Patient, error) {
	in.normalize()
	if err := validate(in); err != nil {
		return nil, err
	}

	p := &Patient{
		ID:        uuid.New(),
		FirstName: in.FirstName,
		LastName:  in.LastName,
		DNI:       in.DNI,
		BirthDate: in.BirthDate,
		Phone:     in.Phone,
		Email:     in.Email,
		Address:   in.Address,
		Insurance: in.Insurance,
		Fields:    softdelete.Active(),
		CreatedAt: s.now(),
		UpdatedAt: s.now(),
	}

	err := s.tx(ctx, func(ctx context.Context) error {
		if err := s.repo.Create(ctx, p); err != nil {
			return err
		}
		return s.audit.Record(ctx, &actor, audit.ActionCreate, "patient", p.ID.String(), map[string]interface{}{"dni": p.DNI})
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context, f Filter, limit, offset int) ([]*Patient, int, error) {
	return s.repo.List(ctx, f, limit, offset)
}

func (s *Service) Update(ctx context.Context, actor auth.Actor, id uuid.UUID, in Input) (*Patient, error) {
	in.normalize()
	if err := validate(in); err != nil {
		return nil, err
	}

	var updated *Patient
	err := s.tx(ctx, func(ctx context.Context) error {
		p, err := s.repo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		p.FirstName = in.FirstName
		p.LastName = in.LastName
		p.DNI = in.DNI
		p.BirthDate = in.BirthDate
		p.Phone = in.Phone
		p.Email = in.Email
		p.Address = in.Address
		p.Insurance = in.Insurance
		p.UpdatedAt = s.now()
		if err := s.repo.Update(ctx, p); err != nil {
			return err
		}
		if err := s.audit.Record(ctx, &actor, audit.ActionUpdate, "patient", p.ID.String(), nil); err != nil {
			return err
		}
		updated = p
		return nil
	})
	return updated, err
}

func (s *Service) Delete(ctx context.Context, actor auth.Actor, id uuid.UUID) error {
	return s.tx(ctx, func(ctx context.Context) error {
		p, err := s.repo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if err := p.Mark(actor.ID, s.now()); err != nil {
			return err
		}
		p.UpdatedAt = s.now()
		if err := s.repo.Update(ctx, p); err != nil {
			return err
		}
		return s.audit.Record(ctx, &actor, audit.ActionDelete, "patient", p.ID.String(), nil)
	})
}
