package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestIssueAndParse(t *testing.T) {
	issuer := NewTokenIssuer([]byte("secret"), "clinic-test", time.Hour)
	userID := uuid.New()

	token, expiry, err := issuer.Issue(userID, "ana@clinic.test", RoleProfessional)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if time.Until(expiry) < 55*time.Minute {
		t.Errorf("expiry = %v, want about an hour out", expiry)
	}

	claims, err := issuer.Parse(token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.Subject != userID.String() {
		t.Errorf("subject = %s, want %s", claims.Subject, userID)
	}
	if claims.Email != "ana@clinic.test" || claims.Role != RoleProfessional {
		t.Errorf("claims = %+v", claims)
	}
}

func TestParseRejectsWrongSecret(t *testing.T) {
	a := NewTokenIssuer([]byte("secret-a"), "clinic-test", time.Hour)
	b := NewTokenIssuer([]byte("secret-b"), "clinic-test", time.Hour)

	token, _, err := a.Issue(uuid.New(), "ana@clinic.test", RoleOwner)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := b.Parse(token); err == nil {
		t.Error("token signed with another secret was accepted")
	}
}

func TestParseRejectsExpired(t *testing.T) {
	issuer := NewTokenIssuer([]byte("secret"), "clinic-test", -time.Minute)

	token, _, err := issuer.Issue(uuid.New(), "ana@clinic.test", RoleOwner)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := issuer.Parse(token); err == nil {
		t.Error("expired token was accepted")
	}
}

func TestParseRejectsWrongIssuer(t *testing.T) {
	a := NewTokenIssuer([]byte("secret"), "someone-else", time.Hour)
	b := NewTokenIssuer([]byte("secret"), "clinic-test", time.Hour)

	token, _, err := a.Issue(uuid.New(), "ana@clinic.test", RoleOwner)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := b.Parse(token); err == nil {
		t.Error("token from another issuer was accepted")
	}
}

func TestPasswordRoundTrip(t *testing.T) {
	hash, err := HashPassword("clave-segura")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if hash == "clave-segura" {
		t.Fatal("password stored in plaintext")
	}
	if !VerifyPassword("clave-segura", hash) {
		t.Error("correct password rejected")
	}
	if VerifyPassword("otra", hash) {
		t.Error("wrong password accepted")
	}
}

func TestCanActOnProfessionalResource(t *testing.T) {
	other := uuid.New()

	ownerActor := Actor{ID: uuid.New(), Role: RoleOwner}
	if !ownerActor.CanActOnProfessionalResource(other) {
		t.Error("owner must act on any record")
	}

	pro := Actor{ID: uuid.New(), Role: RoleProfessional}
	if pro.CanActOnProfessionalResource(other) {
		t.Error("professional acted on a foreign record")
	}
	if !pro.CanActOnProfessionalResource(pro.ID) {
		t.Error("professional refused on their own record")
	}
}
