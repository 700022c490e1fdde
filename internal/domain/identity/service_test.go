package identity

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/lazos/clinic/internal/domain/audit"
	"github.com/lazos/clinic/internal/platform/apperror"
	"github.com/lazos/clinic/internal/platform/auth"
	"github.com/lazos/clinic/internal/platform/db"
)

type mockRepo struct {
	users map[uuid.UUID]*User
}

func newMockRepo() *mockRepo {
	return &mockRepo{users: make(map[uuid.UUID]*User)}
}

func (m *mockRepo) Create(_ context.Context, u *User) error {
	for _, existing := range m.users {
		if existing.Email == u.Email {
			return apperror.Conflict("email_taken", "a user with this email already exists")
		}
	}
	cp := *u
	m.users[u.ID] = &cp
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, apperror.NotFound("user")
	}
	cp := *u
	return &cp, nil
}

func (m *mockRepo) GetByEmail(_ context.Context, email string) (*User, error) {
	for _, u := range m.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, apperror.NotFound("user")
}

func (m *mockRepo) List(_ context.Context, limit, offset int) ([]*User, int, error) {
	var out []*User
	for _, u := range m.users {
		if u.IsActive {
			cp := *u
			out = append(out, &cp)
		}
	}
	return out, len(out), nil
}

func (m *mockRepo) Update(_ context.Context, u *User) error {
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

func newTestService(t *testing.T) (*Service, *mockRepo, *mockRecorder) {
	t.Helper()
	repo := newMockRepo()
	rec := &mockRecorder{}
	issuer := auth.NewTokenIssuer([]byte("test-secret"), "clinic-test", time.Hour)
	svc := NewService(repo, rec, issuer, db.PassthroughTx)
	return svc, repo, rec
}

func seedUser(t *testing.T, repo *mockRepo, email, password, role string) *User {
	t.Helper()
	hash, err := auth.HashPassword(password)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	u := &User{
		ID:           uuid.New(),
		Email:        email,
		FirstName:    "Ana",
		LastName:     "Gomez",
		Role:         role,
		PasswordHash: hash,
		Enabled:      true,
		CreatedAt:    time.Now().UTC(),
		UpdatedAt:    time.Now().UTC(),
	}
	u.IsActive = true
	if err := repo.Create(context.Background(), u); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return u
}

func TestCreateUser(t *testing.T) {
	svc, repo, rec := newTestService(t)
	owner := auth.Actor{ID: uuid.New(), Email: "owner@clinic.test", Role: auth.RoleOwner}

	u, err := svc.CreateUser(context.Background(), owner, CreateUserInput{
		Email:     " Nueva@Clinic.Test ",
		FirstName: "Nueva",
		LastName:  "Profesional",
		Password:  "segura-123",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if u.Email != "nueva@clinic.test" {
		t.Errorf("email = %q, want normalized", u.Email)
	}
	if u.Role != auth.RoleProfessional {
		t.Errorf("role = %s, want default PROFESSIONAL", u.Role)
	}
	if !u.Enabled || !u.IsActive {
		t.Error("new account must be enabled and active")
	}
	if !auth.VerifyPassword("segura-123", repo.users[u.ID].PasswordHash) {
		t.Error("password not stored hashed")
	}
	if len(rec.actions) != 1 || rec.actions[0] != audit.ActionCreate {
		t.Errorf("audit actions = %v, want [CREATE]", rec.actions)
	}
}

func TestCreateUserRejectsBadInput(t *testing.T) {
	svc, _, _ := newTestService(t)
	owner := auth.Actor{ID: uuid.New(), Email: "owner@clinic.test", Role: auth.RoleOwner}

	_, err := svc.CreateUser(context.Background(), owner, CreateUserInput{
		Email: "not-an-email", Role: "SUPERUSER", Password: "corta",
	})
	appErr, ok := apperror.As(err)
	if !ok || appErr.Kind != apperror.KindValidation {
		t.Fatalf("err = %v, want validation error", err)
	}
	for _, field := range []string{"email", "role", "password"} {
		if _, found := appErr.Fields[field]; !found {
			t.Errorf("missing message for %s in %v", field, appErr.Fields)
		}
	}
}

func TestLoginSuccess(t *testing.T) {
	svc, repo, rec := newTestService(t)
	u := seedUser(t, repo, "ana@clinic.test", "secret-pass", auth.RoleProfessional)

	session, err := svc.Login(context.Background(), "  Ana@Clinic.Test ", "secret-pass")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if session.Token == "" {
		t.Error("expected a session token")
	}
	if session.User.ID != u.ID {
		t.Errorf("session user = %s, want %s", session.User.ID, u.ID)
	}
	if len(rec.actions) != 1 || rec.actions[0] != audit.ActionLogin {
		t.Errorf("audit actions = %v, want [LOGIN]", rec.actions)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	svc, repo, _ := newTestService(t)
	seedUser(t, repo, "ana@clinic.test", "secret-pass", auth.RoleProfessional)

	_, err := svc.Login(context.Background(), "ana@clinic.test", "wrong")
	appErr, ok := apperror.As(err)
	if !ok || appErr.Code != "invalid_credentials" {
		t.Fatalf("err = %v, want invalid_credentials", err)
	}
}

func TestLoginUnknownEmailSameCode(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.Login(context.Background(), "nobody@clinic.test", "whatever")
	appErr, ok := apperror.As(err)
	if !ok || appErr.Code != "invalid_credentials" {
		t.Fatalf("err = %v, want invalid_credentials", err)
	}
}

func TestLoginDisabledAccount(t *testing.T) {
	svc, repo, _ := newTestService(t)
	u := seedUser(t, repo, "ana@clinic.test", "secret-pass", auth.RoleProfessional)
	u.Enabled = false
	repo.users[u.ID] = u

	_, err := svc.Login(context.Background(), "ana@clinic.test", "secret-pass")
	appErr, ok := apperror.As(err)
	if !ok || appErr.Code != "account_disabled" {
		t.Fatalf("err = %v, want account_disabled", err)
	}
}

func TestLoginDeletedAccount(t *testing.T) {
	svc, repo, _ := newTestService(t)
	u := seedUser(t, repo, "ana@clinic.test", "secret-pass", auth.RoleProfessional)
	u.IsActive = false
	repo.users[u.ID] = u

	_, err := svc.Login(context.Background(), "ana@clinic.test", "secret-pass")
	appErr, ok := apperror.As(err)
	if !ok || appErr.Code != "account_inactive" {
		t.Fatalf("err = %v, want account_inactive", err)
	}
}

func TestChangePassword(t *testing.T) {
	svc, repo, rec := newTestService(t)
	u := seedUser(t, repo, "ana@clinic.test", "old-password", auth.RoleProfessional)
	actor := auth.Actor{ID: u.ID, Email: u.Email, Role: u.Role}

	if err := svc.ChangePassword(context.Background(), actor, "old-password", "new-password"); err != nil {
		t.Fatalf("change password: %v", err)
	}
	if !auth.VerifyPassword("new-password", repo.users[u.ID].PasswordHash) {
		t.Error("new password does not verify against stored hash")
	}
	if len(rec.actions) != 1 || rec.actions[0] != audit.ActionPasswordChange {
		t.Errorf("audit actions = %v, want [PASSWORD_CHANGE]", rec.actions)
	}
}

func TestChangePasswordWrongCurrent(t *testing.T) {
	svc, repo, _ := newTestService(t)
	u := seedUser(t, repo, "ana@clinic.test", "old-password", auth.RoleProfessional)
	actor := auth.Actor{ID: u.ID, Email: u.Email, Role: u.Role}

	err := svc.ChangePassword(context.Background(), actor, "not-it", "new-password")
	if apperror.KindOf(err) != apperror.KindAuthentication {
		t.Fatalf("err = %v, want authentication error", err)
	}
}

func TestChangePasswordTooShort(t *testing.T) {
	svc, repo, _ := newTestService(t)
	u := seedUser(t, repo, "ana@clinic.test", "old-password", auth.RoleProfessional)
	actor := auth.Actor{ID: u.ID, Email: u.Email, Role: u.Role}

	err := svc.ChangePassword(context.Background(), actor, "old-password", "short")
	if apperror.KindOf(err) != apperror.KindValidation {
		t.Fatalf("err = %v, want validation error", err)
	}
}

func TestDeleteUser(t *testing.T) {
	svc, repo, rec := newTestService(t)
	owner := seedUser(t, repo, "owner@clinic.test", "owner-pass", auth.RoleOwner)
	victim := seedUser(t, repo, "pro@clinic.test", "pro-pass", auth.RoleProfessional)
	actor := auth.Actor{ID: owner.ID, Email: owner.Email, Role: owner.Role}

	if err := svc.Delete(context.Background(), actor, victim.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	stored := repo.users[victim.ID]
	if stored.IsActive {
		t.Error("user still active after delete")
	}
	if stored.DeletedAt == nil || stored.DeletedBy == nil || *stored.DeletedBy != owner.ID {
		t.Error("deletion stamp not recorded")
	}
	if len(rec.actions) != 1 || rec.actions[0] != audit.ActionDelete {
		t.Errorf("audit actions = %v, want [DELETE]", rec.actions)
	}

	// a second delete must not overwrite the original stamp
	err := svc.Delete(context.Background(), actor, victim.ID)
	appErr, ok := apperror.As(err)
	if !ok || appErr.Code != "already_deleted" {
		t.Fatalf("second delete err = %v, want already_deleted", err)
	}
}

func TestDeleteSelfRejected(t *testing.T) {
	svc, repo, _ := newTestService(t)
	owner := seedUser(t, repo, "owner@clinic.test", "owner-pass", auth.RoleOwner)
	actor := auth.Actor{ID: owner.ID, Email: owner.Email, Role: owner.Role}

	err := svc.Delete(context.Background(), actor, owner.ID)
	appErr, ok := apperror.As(err)
	if !ok || appErr.Code != "self_delete" {
		t.Fatalf("err = %v, want self_delete", err)
	}
}

func TestUpdateUserInvalidRole(t *testing.T) {
	svc, repo, _ := newTestService(t)
	owner := seedUser(t, repo, "owner@clinic.test", "owner-pass", auth.RoleOwner)
	pro := seedUser(t, repo, "pro@clinic.test", "pro-pass", auth.RoleProfessional)
	actor := auth.Actor{ID: owner.ID, Email: owner.Email, Role: owner.Role}

	bad := "SUPERUSER"
	_, err := svc.UpdateUser(context.Background(), actor, pro.ID, UpdateUserInput{Role: &bad})
	if apperror.KindOf(err) != apperror.KindValidation {
		t.Fatalf("err = %v, want validation error", err)
	}
}
