package identity

import (
	"time"

	"github.com/google/uuid"

	"github.com/lazos/clinic/internal/platform/auth"
	"github.com/lazos/clinic/internal/platform/softdelete"
)

// User is a clinic staff account. Professionals are created through the
// invitation flow; the owner account is provisioned out of band.
type User struct {
	ID           uuid.UUID `db:"id" json:"id"`
	Email        string    `db:"email" json:"email"`
	FirstName    string    `db:"first_name" json:"first_name"`
	LastName     string    `db:"last_name" json:"last_name"`
	Role         string    `db:"role" json:"role"`
	PasswordHash string    `db:"password_hash" json:"-"`

	// Enabled gates login without touching the soft-delete lifecycle:
	// a disabled account still appears in listings.
	Enabled bool `db:"enabled" json:"enabled"`

	softdelete.Fields

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

func (u *User) FullName() string {
	if u.FirstName == "" {
		return u.LastName
	}
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

// Session is the result of a successful login.
type Session struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	User      *User     `json:"user"`
}

// ValidRole reports whether r is one of the known roles.
func ValidRole(r string) bool {
	return r == auth.RoleOwner || r == auth.RoleProfessional
}
