package scheduling

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
	loc   *time.Location
	now   func() time.Time
}

// NewService wires the scheduling rules. loc is the clinic's timezone;
// the business-hour grid is evaluated there regardless of how callers
// express timestamps.
func NewService(repo Repository, recorder audit.Recorder, tx db.TxRunner, loc *time.Location) *Service {
	return &Service{
		repo:  repo,
		audit: recorder,
		tx:    tx,
		loc:   loc,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

type Input struct {
	PatientID      uuid.UUID  `json:"patient_id"`
	ProfessionalID *uuid.UUID `json:"professional_id"`
	RoomID         uuid.UUID  `json:"room_id"`
	StartAt        time.Time  `json:"start_at"`
	EndAt          time.Time  `json:"end_at"`
	Status         string     `json:"status"`
	Reason         string     `json:"reason"`
}

// resolveProfessional applies the assignment rule: the owner may book
// on behalf of any professional, everyone else books for themselves.
func resolveProfessional(actor auth.Actor, requested *uuid.UUID) uuid.UUID {
	if actor.IsOwner() && requested != nil {
		return *requested
	}
	return actor.ID
}

func (s *Service) Create(ctx context.Context, actor auth.Actor, in Input) (*Appointment, error) {
	if in.Status == "" {
		in.Status = StatusConfirmed
	}
	if !ValidStatus(in.Status) {
		v := apperror.NewValidation()
		v.Add("status", "status must be CONFIRMED, WAITING, FINISHED or CANCELLED")
		return nil, v.Err()
	}
	if err := validateSlot(in.StartAt, in.EndAt, s.loc); err != nil {
		return nil, err
	}

	a := &Appointment{
		ID:             uuid.New(),
		PatientID:      in.PatientID,
		ProfessionalID: resolveProfessional(actor, in.ProfessionalID),
		RoomID:         in.RoomID,
		StartAt:        in.StartAt.UTC(),
		EndAt:          in.EndAt.UTC(),
		Status:         in.Status,
		Reason:         strings.TrimSpace(in.Reason),
		Fields:         softdelete.Active(),
		CreatedAt:      s.now(),
		UpdatedAt:      s.now(),
	}

	err := s.tx(ctx, func(ctx context.Context) error {
		taken, err := s.repo.ExistsOverlap(ctx, a.RoomID, a.StartAt, a.EndAt, nil)
		if err != nil {
			return err
		}
		if taken {
			return apperror.Conflict("room_occupied", "the room is already booked for this time")
		}
		if err := s.repo.Create(ctx, a); err != nil {
			return err
		}
		return s.audit.Record(ctx, &actor, audit.ActionCreate, "appointment", a.ID.String(), map[string]interface{}{
			"room_id":  a.RoomID.String(),
			"start_at": a.StartAt.Format(time.RFC3339),
		})
	})
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (s *Service) Get(ctx context.Context, actor auth.Actor, id uuid.UUID) (*Appointment, error) {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.CanActOnProfessionalResource(a.ProfessionalID) {
		return nil, apperror.Authorization("you may only view your own appointments")
	}
	return a, nil
}

// List returns appointments matching the filter. Professionals see only
// their own schedule; the owner sees everything.
func (s *Service) List(ctx context.Context, actor auth.Actor, f Filter, limit, offset int) ([]*Appointment, int, error) {
	if !actor.IsOwner() {
		id := actor.ID
		f.ProfessionalID = &id
	}
	return s.repo.List(ctx, f, limit, offset)
}

type UpdateInput struct {
	PatientID      *uuid.UUID `json:"patient_id"`
	ProfessionalID *uuid.UUID `json:"professional_id"`
	RoomID         *uuid.UUID `json:"room_id"`
	StartAt        *time.Time `json:"start_at"`
	EndAt          *time.Time `json:"end_at"`
	Status         *string    `json:"status"`
	Reason         *string    `json:"reason"`
}

func (s *Service) Update(ctx context.Context, actor auth.Actor, id uuid.UUID, in UpdateInput) (*Appointment, error) {
	if in.Status != nil && !ValidStatus(*in.Status) {
		v := apperror.NewValidation()
		v.Add("status", "status must be CONFIRMED, WAITING, FINISHED or CANCELLED")
		return nil, v.Err()
	}

	var updated *Appointment
	err := s.tx(ctx, func(ctx context.Context) error {
		a, err := s.repo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if !actor.CanActOnProfessionalResource(a.ProfessionalID) {
			return apperror.Authorization("you may only modify your own appointments")
		}
		if !a.IsActive {
			return apperror.Conflict("already_deleted", "record is already deleted")
		}

		if in.PatientID != nil {
			a.PatientID = *in.PatientID
		}
		if in.ProfessionalID != nil && actor.IsOwner() {
			a.ProfessionalID = *in.ProfessionalID
		}
		if in.RoomID != nil {
			a.RoomID = *in.RoomID
		}
		if in.StartAt != nil {
			a.StartAt = in.StartAt.UTC()
		}
		if in.EndAt != nil {
			a.EndAt = in.EndAt.UTC()
		}
		if in.Status != nil {
			a.Status = *in.Status
		}
		if in.Reason != nil {
			a.Reason = strings.TrimSpace(*in.Reason)
		}

		if err := validateSlot(a.StartAt, a.EndAt, s.loc); err != nil {
			return err
		}
		if a.Blocking() {
			taken, err := s.repo.ExistsOverlap(ctx, a.RoomID, a.StartAt, a.EndAt, &a.ID)
			if err != nil {
				return err
			}
			if taken {
				return apperror.Conflict("room_occupied", "the room is already booked for this time")
			}
		}

		a.UpdatedAt = s.now()
		if err := s.repo.Update(ctx, a); err != nil {
			return err
		}
		if err := s.audit.Record(ctx, &actor, audit.ActionUpdate, "appointment", a.ID.String(), nil); err != nil {
			return err
		}
		updated = a
		return nil
	})
	return updated, err
}

func (s *Service) Delete(ctx context.Context, actor auth.Actor, id uuid.UUID) error {
	return s.tx(ctx, func(ctx context.Context) error {
		a, err := s.repo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if !actor.CanActOnProfessionalResource(a.ProfessionalID) {
			return apperror.Authorization("you may only cancel your own appointments")
		}
		if err := a.Mark(actor.ID, s.now()); err != nil {
			return err
		}
		a.UpdatedAt = s.now()
		if err := s.repo.Update(ctx, a); err != nil {
			return err
		}
		return s.audit.Record(ctx, &actor, audit.ActionDelete, "appointment", a.ID.String(), nil)
	})
}
