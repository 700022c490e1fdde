package identity

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
	repo   Repository
	audit  audit.Recorder
	tokens *auth.TokenIssuer
	tx     db.TxRunner
	now    func() time.Time
}

func NewService(repo Repository, recorder audit.Recorder, tokens *auth.TokenIssuer, tx db.TxRunner) *Service {
	return &Service{
		repo:   repo,
		audit:  recorder,
		tokens: tokens,
		tx:     tx,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// NormalizeEmail lowercases and trims an address. Applied on every path
// that looks up or stores an email so casing never splits an identity.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Login authenticates by email and password and returns a signed
// session. Unknown accounts and wrong passwords report the same code so
// the response does not reveal which emails exist.
func (s *Service) Login(ctx context.Context, email, password string) (*Session, error) {
	email = NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, apperror.Authentication("invalid_credentials", "invalid email or password")
	}

	u, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if apperror.KindOf(err) == apperror.KindNotFound {
			return nil, apperror.Authentication("invalid_credentials", "invalid email or password")
		}
		return nil, err
	}
	if !auth.VerifyPassword(password, u.PasswordHash) {
		return nil, apperror.Authentication("invalid_credentials", "invalid email or password")
	}
	if !u.IsActive {
		return nil, apperror.Authentication("account_inactive", "this account has been removed")
	}
	if !u.Enabled {
		return nil, apperror.Authentication("account_disabled", "this account is disabled")
	}

	token, expiry, err := s.tokens.Issue(u.ID, u.Email, u.Role)
	if err != nil {
		return nil, err
	}

	actor := &auth.Actor{ID: u.ID, Email: u.Email, Role: u.Role}
	if err := s.audit.Record(ctx, actor, audit.ActionLogin, "user", u.ID.String(), nil); err != nil {
		return nil, err
	}

	return &Session{Token: token, ExpiresAt: expiry, User: u}, nil
}

// Me returns the authenticated actor's own record.
func (s *Service) Me(ctx context.Context, actor auth.Actor) (*User, error) {
	return s.repo.GetByID(ctx, actor.ID)
}

type UpdateProfileInput struct {
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
}

// UpdateMe lets an actor edit their own name. Email, role and lifecycle
// state are not self-serviceable.
func (s *Service) UpdateMe(ctx context.Context, actor auth.Actor, in UpdateProfileInput) (*User, error) {
	var updated *User
	err := s.tx(ctx, func(ctx context.Context) error {
		u, err := s.repo.GetByID(ctx, actor.ID)
		if err != nil {
			return err
		}
		if in.FirstName != nil {
			u.FirstName = strings.TrimSpace(*in.FirstName)
		}
		if in.LastName != nil {
			u.LastName = strings.TrimSpace(*in.LastName)
		}
		u.UpdatedAt = s.now()
		if err := s.repo.Update(ctx, u); err != nil {
			return err
		}
		if err := s.audit.Record(ctx, &actor, audit.ActionUpdate, "user", u.ID.String(), nil); err != nil {
			return err
		}
		updated = u
		return nil
	})
	return updated, err
}

// ChangePassword verifies the current password before setting the new
// one.
func (s *Service) ChangePassword(ctx context.Context, actor auth.Actor, current, newPassword string) error {
	if len(newPassword) < auth.MinPasswordLength {
		v := apperror.NewValidation()
		v.Add("new_password", "password must be at least 8 characters")
		return v.Err()
	}

	return s.tx(ctx, func(ctx context.Context) error {
		u, err := s.repo.GetByID(ctx, actor.ID)
		if err != nil {
			return err
		}
		if !auth.VerifyPassword(current, u.PasswordHash) {
			return apperror.Authentication("invalid_credentials", "current password is incorrect")
		}
		hash, err := auth.HashPassword(newPassword)
		if err != nil {
			return err
		}
		u.PasswordHash = hash
		u.UpdatedAt = s.now()
		if err := s.repo.Update(ctx, u); err != nil {
			return err
		}
		return s.audit.Record(ctx, &actor, audit.ActionPasswordChange, "user", u.ID.String(), nil)
	})
}

type CreateUserInput struct {
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Role      string `json:"role"`
	Password  string `json:"password"`
}

// CreateUser is the owner's direct account creation, bypassing the
// invitation flow. The account is enabled immediately.
func (s *Service) CreateUser(ctx context.Context, actor auth.Actor, in CreateUserInput) (*User, error) {
	email := NormalizeEmail(in.Email)
	if in.Role == "" {
		in.Role = auth.RoleProfessional
	}

	v := apperror.NewValidation()
	if email == "" || !strings.Contains(email, "@") {
		v.Add("email", "a valid email is required")
	}
	if !ValidRole(in.Role) {
		v.Add("role", "role must be OWNER or PROFESSIONAL")
	}
	if len(in.Password) < auth.MinPasswordLength {
		v.Add("password", "password must be at least 8 characters")
	}
	if err := v.Err(); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	u := &User{
		ID:           uuid.New(),
		Email:        email,
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		Role:         in.Role,
		PasswordHash: hash,
		Enabled:      true,
		Fields:       softdelete.Active(),
		CreatedAt:    s.now(),
		UpdatedAt:    s.now(),
	}

	err = s.tx(ctx, func(ctx context.Context) error {
		if err := s.repo.Create(ctx, u); err != nil {
			return err
		}
		return s.audit.Record(ctx, &actor, audit.ActionCreate, "user", u.ID.String(), map[string]interface{}{
			"email": u.Email,
			"role":  u.Role,
		})
	})
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]*User, int, error) {
	return s.repo.List(ctx, limit, offset)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*User, error) {
	return s.repo.GetByID(ctx, id)
}

type UpdateUserInput struct {
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	Role      *string `json:"role"`
	Enabled   *bool   `json:"enabled"`
}

// UpdateUser is the owner's administrative edit of another account.
func (s *Service) UpdateUser(ctx context.Context, actor auth.Actor, id uuid.UUID, in UpdateUserInput) (*User, error) {
	if in.Role != nil && !ValidRole(*in.Role) {
		v := apperror.NewValidation()
		v.Add("role", "role must be OWNER or PROFESSIONAL")
		return nil, v.Err()
	}

	var updated *User
	err := s.tx(ctx, func(ctx context.Context) error {
		u, err := s.repo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if in.FirstName != nil {
			u.FirstName = strings.TrimSpace(*in.FirstName)
		}
		if in.LastName != nil {
			u.LastName = strings.TrimSpace(*in.LastName)
		}
		if in.Role != nil {
			u.Role = *in.Role
		}
		if in.Enabled != nil {
			u.Enabled = *in.Enabled
		}
		u.UpdatedAt = s.now()
		if err := s.repo.Update(ctx, u); err != nil {
			return err
		}
		if err := s.audit.Record(ctx, &actor, audit.ActionUpdate, "user", u.ID.String(), nil); err != nil {
			return err
		}
		updated = u
		return nil
	})
	return updated, err
}

// Delete soft-deletes a user. The record stays readable by id with its
// deletion stamp; a second delete is rejected.
func (s *Service) Delete(ctx context.Context, actor auth.Actor, id uuid.UUID) error {
	if actor.ID == id {
		return apperror.Conflict("self_delete", "you cannot delete your own account")
	}
	return s.tx(ctx, func(ctx context.Context) error {
		u, err := s.repo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if err := u.Mark(actor.ID, s.now()); err != nil {
			return err
		}
		u.UpdatedAt = s.now()
		if err := s.repo.Update(ctx, u); err != nil {
			return err
		}
		return s.audit.Record(ctx, &actor, audit.ActionDelete, "user", u.ID.String(), nil)
	})
}
