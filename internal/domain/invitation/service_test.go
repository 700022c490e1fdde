package invitation

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/lazos/clinic/internal/domain/audit"
	"github.com/lazos/clinic/internal/domain/identity"
	"github.com/lazos/clinic/internal/platform/apperror"
	"github.com/lazos/clinic/internal/platform/auth"
	"github.com/lazos/clinic/internal/platform/db"
	"github.com/lazos/clinic/internal/platform/mail"
)

type mockRepo struct {
	invs map[uuid.UUID]*Invitation
}

func (m *mockRepo) Create(_ context.Context, i *Invitation) error {
	cp := *i
	m.invs[i.ID] = &cp
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*Invitation, error) {
	i, ok := m.invs[id]
	if !ok {
		return nil, apperror.NotFound("invitation")
	}
	cp := *i
	return &cp, nil
}

func (m *mockRepo) GetByToken(_ context.Context, token string) (*Invitation, error) {
	for _, i := range m.invs {
		if i.Token == token {
			cp := *i
			return &cp, nil
		}
	}
	return nil, apperror.NotFound("invitation")
}

func (m *mockRepo) List(_ context.Context, limit, offset int) ([]*Invitation, int, error) {
	var out []*Invitation
	for _, i := range m.invs {
		cp := *i
		out = append(out, &cp)
	}
	return out, len(out), nil
}

func (m *mockRepo) Update(_ context.Context, i *Invitation) error {
	if _, ok := m.invs[i.ID]; !ok {
		return apperror.NotFound("invitation")
	}
	cp := *i
	m.invs[i.ID] = &cp
	return nil
}

type mockUserRepo struct {
	users map[uuid.UUID]*identity.User
}

func (m *mockUserRepo) Create(_ context.Context, u *identity.User) error {
	cp := *u
	m.users[u.ID] = &cp
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id uuid.UUID) (*identity.User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, apperror.NotFound("user")
	}
	cp := *u
	return &cp, nil
}

func (m *mockUserRepo) GetByEmail(_ context.Context, email string) (*identity.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, apperror.NotFound("user")
}

func (m *mockUserRepo) List(_ context.Context, limit, offset int) ([]*identity.User, int, error) {
	return nil, 0, nil
}

func (m *mockUserRepo) Update(_ context.Context, u *identity.User) error {
	if _, ok := m.users[u.ID]; !ok {
		return apperror.NotFound("user")
	}
	cp := *u
	m.users[u.ID] = &cp
	return nil
}

type mockRecorder struct {
	actions []audit.Action
}

func (m *mockRecorder) Record(_ context.Context, _ *auth.Actor, action audit.Action, _, _ string, _ map[string]interface{}) error {
	m.actions = append(m.actions, action)
	return nil
}

func newTestService() (*Service, *mockRepo, *mockUserRepo, *mail.Mock, *mockRecorder) {
	repo := &mockRepo{invs: make(map[uuid.UUID]*Invitation)}
	users := &mockUserRepo{users: make(map[uuid.UUID]*identity.User)}
	mailer := &mail.Mock{}
	rec := &mockRecorder{}
	svc := NewService(repo, users, rec, mailer, db.PassthroughTx, zerolog.Nop(), "https://clinic.test")
	return svc, repo, users, mailer, rec
}

func ownerActor() auth.Actor {
	return auth.Actor{ID: uuid.New(), Email: "owner@clinic.test", Role: auth.RoleOwner}
}

func TestCreateInvitation(t *testing.T) {
	svc, _, _, mailer, rec := newTestService()
	before := time.Now().UTC()

	inv, err := svc.Create(context.Background(), ownerActor(), " Pro@Clinic.Test ", "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if inv.Email != "pro@clinic.test" {
		t.Errorf("email = %q, want normalized", inv.Email)
	}
	if inv.Role != auth.RoleProfessional {
		t.Errorf("role = %q, want default PROFESSIONAL", inv.Role)
	}
	if len(inv.Token) != 48 {
		t.Errorf("token length = %d, want 48", len(inv.Token))
	}
	wantExpiry := before.Add(TTL)
	if inv.ExpiresAt.Before(wantExpiry.Add(-time.Minute)) || inv.ExpiresAt.After(wantExpiry.Add(time.Minute)) {
		t.Errorf("expires_at = %v, want about %v", inv.ExpiresAt, wantExpiry)
	}

	sent := mailer.Sent()
	if len(sent) != 1 {
		t.Fatalf("sent %d mails, want 1", len(sent))
	}
	if sent[0].To != "pro@clinic.test" {
		t.Errorf("mail to = %q", sent[0].To)
	}
	if !strings.Contains(sent[0].Body, "https://clinic.test/?invite="+inv.Token) {
		t.Error("mail body missing accept link")
	}
	if len(rec.actions) != 1 || rec.actions[0] != audit.ActionCreate {
		t.Errorf("audit actions = %v, want [CREATE]", rec.actions)
	}
}

func TestCreateInvitationMailFailureIsNotFatal(t *testing.T) {
	svc, repo, _, mailer, _ := newTestService()
	mailer.ShouldFail = true

	inv, err := svc.Create(context.Background(), ownerActor(), "pro@clinic.test", "")
	if err != nil {
		t.Fatalf("create with failing mailer: %v", err)
	}
	if _, ok := repo.invs[inv.ID]; !ok {
		t.Error("invitation not persisted despite mail failure")
	}
}

func TestCreateInvitationInvalidEmail(t *testing.T) {
	svc, _, _, _, _ := newTestService()

	_, err := svc.Create(context.Background(), ownerActor(), "not-an-email", "")
	if apperror.KindOf(err) != apperror.KindValidation {
		t.Fatalf("err = %v, want validation error", err)
	}

	_, err = svc.Create(context.Background(), ownerActor(), "pro@clinic.test", "SUPERUSER")
	if apperror.KindOf(err) != apperror.KindValidation {
		t.Fatalf("bad role err = %v, want validation error", err)
	}
}

func TestAcceptCreatesProfessional(t *testing.T) {
	svc, repo, users, _, rec := newTestService()

	inv, err := svc.Create(context.Background(), ownerActor(), "pro@clinic.test", "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	u, err := svc.Accept(context.Background(), AcceptInput{
		Token:     inv.Token,
		FirstName: "Laura",
		LastName:  "Diaz",
		Password:  "segura-123",
	})
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	if u.Role != auth.RoleProfessional {
		t.Errorf("role = %s, want PROFESSIONAL", u.Role)
	}
	if !u.Enabled || !u.IsActive {
		t.Error("new account must be enabled and active")
	}
	if !auth.VerifyPassword("segura-123", users.users[u.ID].PasswordHash) {
		t.Error("password not set")
	}
	if repo.invs[inv.ID].UsedAt == nil {
		t.Error("invitation not marked used")
	}
	if rec.actions[len(rec.actions)-1] != audit.ActionInviteAccept {
		t.Errorf("last audit action = %v, want INVITE_ACCEPT", rec.actions[len(rec.actions)-1])
	}
}

func TestAcceptHonorsGrantedRole(t *testing.T) {
	svc, _, _, _, _ := newTestService()

	inv, err := svc.Create(context.Background(), ownerActor(), "admin@clinic.test", auth.RoleOwner)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	u, err := svc.Accept(context.Background(), AcceptInput{Token: inv.Token, Password: "segura-123"})
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	if u.Role != auth.RoleOwner {
		t.Errorf("role = %s, want granted OWNER", u.Role)
	}
}

func TestAcceptSecondUseRejected(t *testing.T) {
	svc, _, _, _, _ := newTestService()

	inv, err := svc.Create(context.Background(), ownerActor(), "pro@clinic.test", "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.Accept(context.Background(), AcceptInput{Token: inv.Token, Password: "segura-123"}); err != nil {
		t.Fatalf("first accept: %v", err)
	}

	_, err = svc.Accept(context.Background(), AcceptInput{Token: inv.Token, Password: "otra-clave-99"})
	appErr, ok := apperror.As(err)
	if !ok || appErr.Code != "invitation_used" {
		t.Fatalf("second accept err = %v, want invitation_used", err)
	}
}

func TestAcceptExpired(t *testing.T) {
	svc, _, _, _, _ := newTestService()

	inv, err := svc.Create(context.Background(), ownerActor(), "pro@clinic.test", "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	svc.now = func() time.Time { return inv.CreatedAt.Add(TTL + time.Hour) }

	_, err = svc.Accept(context.Background(), AcceptInput{Token: inv.Token, Password: "segura-123"})
	appErr, ok := apperror.As(err)
	if !ok || appErr.Code != "invitation_expired" {
		t.Fatalf("err = %v, want invitation_expired", err)
	}
}

func TestAcceptUnknownToken(t *testing.T) {
	svc, _, _, _, _ := newTestService()

	_, err := svc.Accept(context.Background(), AcceptInput{Token: "deadbeef", Password: "segura-123"})
	if apperror.KindOf(err) != apperror.KindNotFound {
		t.Fatalf("err = %v, want not found", err)
	}
}

func TestAcceptShortPassword(t *testing.T) {
	svc, _, _, _, _ := newTestService()

	inv, err := svc.Create(context.Background(), ownerActor(), "pro@clinic.test", "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	_, err = svc.Accept(context.Background(), AcceptInput{Token: inv.Token, Password: "corta"})
	if apperror.KindOf(err) != apperror.KindValidation {
		t.Fatalf("err = %v, want validation error", err)
	}
}

func TestAcceptReenablesExistingAccount(t *testing.T) {
	svc, _, users, _, _ := newTestService()

	deletedAt := time.Now().UTC()
	deletedBy := uuid.New()
	existing := &identity.User{
		ID:        uuid.New(),
		Email:     "pro@clinic.test",
		FirstName: "Laura",
		LastName:  "Diaz",
		Role:      auth.RoleProfessional,
		Enabled:   false,
		CreatedAt: deletedAt.Add(-time.Hour),
		UpdatedAt: deletedAt,
	}
	existing.IsActive = false
	existing.DeletedAt = &deletedAt
	existing.DeletedBy = &deletedBy
	users.users[existing.ID] = existing

	inv, err := svc.Create(context.Background(), ownerActor(), "pro@clinic.test", "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	u, err := svc.Accept(context.Background(), AcceptInput{Token: inv.Token, Password: "segura-123"})
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	if u.ID != existing.ID {
		t.Errorf("accept created a duplicate account")
	}
	stored := users.users[existing.ID]
	if !stored.Enabled || !stored.IsActive {
		t.Error("existing account not re-enabled")
	}
	if stored.DeletedAt != nil || stored.DeletedBy != nil {
		t.Error("deletion stamp not cleared on re-enable")
	}
}
