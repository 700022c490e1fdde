package audit

import (
	"time"

	"github.com/google/uuid"
)

// Action identifies the kind of mutation an entry records.
type Action string

const (
	ActionCreate         Action = "CREATE"
	ActionUpdate         Action = "UPDATE"
	ActionDelete         Action = "DELETE"
	ActionLogin          Action = "LOGIN"
	ActionPasswordChange Action = "PASSWORD_CHANGE"
	ActionInviteAccept   Action = "INVITE_ACCEPT"
)

// Entry is one append-only audit record. The actor reference is
// nullable so history survives actor deletion; the email snapshot keeps
// the entry readable after the fact.
type Entry struct {
	ID         uuid.UUID              `db:"id" json:"id"`
	ActorID    *uuid.UUID             `db:"actor_id" json:"actor_id,omitempty"`
	ActorEmail *string                `db:"actor_email" json:"actor_email,omitempty"`
	Action     Action                 `db:"action" json:"action"`
	TargetType string                 `db:"target_type" json:"target_type"`
	TargetID   string                 `db:"target_id" json:"target_id"`
	Metadata   map[string]interface{} `db:"metadata" json:"metadata"`
	CreatedAt  time.Time              `db:"created_at" json:"created_at"`
}

// Filter narrows audit listings.
type Filter struct {
	ActorID    *uuid.UUID
	Action     Action
	TargetType string
}
