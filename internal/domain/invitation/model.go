package invitation

import (
	"time"

	"github.com/google/uuid"
)

// TTL is how long an invitation stays valid.
const TTL = 7 * 24 * time.Hour

// Invitation is a one-time link letting a professional create their
// account. It is consumed on first acceptance.
type Invitation struct {
	ID        uuid.UUID  `db:"id" json:"id"`
	Email     string     `db:"email" json:"email"`
	Role      string     `db:"role" json:"role"`
	Token     string     `db:"token" json:"-"`
	InvitedBy uuid.UUID  `db:"invited_by" json:"invited_by"`
	ExpiresAt time.Time  `db:"expires_at" json:"expires_at"`
	UsedAt    *time.Time `db:"used_at" json:"used_at,omitempty"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
}

// Used reports whether the invitation has already been consumed.
func (i *Invitation) Used() bool { return i.UsedAt != nil }

// Expired reports whether the invitation is past its validity window.
func (i *Invitation) Expired(now time.Time) bool { return now.After(i.ExpiresAt) }
