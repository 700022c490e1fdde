package invitation

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/lazos/clinic/internal/domain/audit"
	"github.com/lazos/clinic/internal/domain/identity"
	"github.com/lazos/clinic/internal/platform/apperror"
	"github.com/lazos/clinic/internal/platform/auth"
	"github.com/lazos/clinic/internal/platform/db"
	"github.com/lazos/clinic/internal/platform/mail"
	"github.com/lazos/clinic/internal/platform/softdelete"
)

type Service struct {
	repo        Repository
	users       identity.Repository
	audit       audit.Recorder
	mailer      mail.Mailer
	tx          db.TxRunner
	logger      zerolog.Logger
	frontendURL string
	now         func() time.Time
}

func NewService(repo Repository, users identity.Repository, recorder audit.Recorder,
	mailer mail.Mailer, tx db.TxRunner, logger zerolog.Logger, frontendURL string) *Service {
	return &Service{
		repo:        repo,
		users:       users,
		audit:       recorder,
		mailer:      mailer,
		tx:          tx,
		logger:      logger,
		frontendURL: strings.TrimRight(frontendURL, "/"),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

func newToken() (string, error) {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate invitation token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// Create issues an invitation for the given email and mails the accept
// link. An empty role grants PROFESSIONAL. Mail delivery is
// best-effort: the invitation exists either way and the link can be
// resent.
func (s *Service) Create(ctx context.Context, actor auth.Actor, email, role string) (*Invitation, error) {
	email = identity.NormalizeEmail(email)
	if role == "" {
		role = auth.RoleProfessional
	}

	v := apperror.NewValidation()
	if email == "" || !strings.Contains(email, "@") {
		v.Add("email", "a valid email is required")
	}
	if !identity.ValidRole(role) {
		v.Add("role", "role must be OWNER or PROFESSIONAL")
	}
	if err := v.Err(); err != nil {
		return nil, err
	}

	token, err := newToken()
	if err != nil {
		return nil, err
	}

	inv := &Invitation{
		ID:        uuid.New(),
		Email:     email,
		Role:      role,
		Token:     token,
		InvitedBy: actor.ID,
		ExpiresAt: s.now().Add(TTL),
		CreatedAt: s.now(),
	}

	err = s.tx(ctx, func(ctx context.Context) error {
		if err := s.repo.Create(ctx, inv); err != nil {
			return err
		}
		return s.audit.Record(ctx, &actor, audit.ActionCreate, "invitation", inv.ID.String(), map[string]interface{}{
			"email": inv.Email,
			"role":  inv.Role,
		})
	})
	if err != nil {
		return nil, err
	}

	link := s.frontendURL + "/?invite=" + inv.Token
	body := fmt.Sprintf("You have been invited to join the clinic.\n\n"+
		"Follow this link to create your account: %s\n\n"+
		"The link expires in 7 days and can be used once.", link)
	if err := s.mailer.Send(ctx, inv.Email, "Invitation to join the clinic", body); err != nil {
		s.logger.Warn().Err(err).Str("email", inv.Email).Msg("invitation mail not delivered")
	}

	return inv, nil
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]*Invitation, int, error) {
	return s.repo.List(ctx, limit, offset)
}

type AcceptInput struct {
	Token     string `json:"token"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Password  string `json:"password"`
}

// Accept consumes an invitation and provisions the professional's
// account. A previously removed or disabled account with the same
// email is re-enabled instead of duplicated.
func (s *Service) Accept(ctx context.Context, in AcceptInput) (*identity.User, error) {
	inv, err := s.repo.GetByToken(ctx, strings.TrimSpace(in.Token))
	if err != nil {
		if apperror.KindOf(err) == apperror.KindNotFound {
			return nil, apperror.NotFound("invitation")
		}
		return nil, err
	}
	if inv.Used() {
		return nil, apperror.Conflict("invitation_used", "this invitation has already been used")
	}
	if inv.Expired(s.now()) {
		return nil, apperror.Expired("invitation_expired", "this invitation has expired")
	}

	if len(in.Password) < auth.MinPasswordLength {
		v := apperror.NewValidation()
		v.Add("password", "password must be at least 8 characters")
		return nil, v.Err()
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	var user *identity.User
	err = s.tx(ctx, func(ctx context.Context) error {
		u, err := s.users.GetByEmail(ctx, inv.Email)
		switch {
		case err == nil:
			u.PasswordHash = hash
			u.Enabled = true
			u.Fields = softdelete.Active()
			if name := strings.TrimSpace(in.FirstName); name != "" {
				u.FirstName = name
			}
			if name := strings.TrimSpace(in.LastName); name != "" {
				u.LastName = name
			}
			u.UpdatedAt = s.now()
			if err := s.users.Update(ctx, u); err != nil {
				return err
			}
		case apperror.KindOf(err) == apperror.KindNotFound:
			role := inv.Role
			if !identity.ValidRole(role) {
				role = auth.RoleProfessional
			}
			u = &identity.User{
				ID:           uuid.New(),
				Email:        inv.Email,
				FirstName:    strings.TrimSpace(in.FirstName),
				LastName:     strings.TrimSpace(in.LastName),
				Role:         role,
				PasswordHash: hash,
				Enabled:      true,
				Fields:       softdelete.Active(),
				CreatedAt:    s.now(),
				UpdatedAt:    s.now(),
			}
			if err := s.users.Create(ctx, u); err != nil {
				return err
			}
		default:
			return err
		}

		used := s.now()
		inv.UsedAt = &used
		if err := s.repo.Update(ctx, inv); err != nil {
			return err
		}

		actor := &auth.Actor{ID: u.ID, Email: u.Email, Role: u.Role}
		if err := s.audit.Record(ctx, actor, audit.ActionInviteAccept, "invitation", inv.ID.String(), nil); err != nil {
			return err
		}
		user = u
		return nil
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}
