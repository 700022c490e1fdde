package patient

import (
	"time"

	"github.com/google/uuid"

	"github.com/lazos/clinic/internal/platform/softdelete"
)

// Patient is a person receiving care at the clinic. The DNI (national
// identity number) is the natural key staff search by.
type Patient struct {
	ID        uuid.UUID  `db:"id" json:"id"`
	FirstName string     `db:"first_name" json:"first_name"`
	LastName  string     `db:"last_name" json:"last_name"`
	DNI       string     `db:"dni" json:"dni"`
	BirthDate *time.Time `db:"birth_date" json:"birth_date,omitempty"`
	Phone     string     `db:"phone" json:"phone"`
	Email     string     `db:"email" json:"email"`
	Address   string     `db:"address" json:"address"`
	Insurance string     `db:"insurance" json:"insurance"`

	softdelete.Fields

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

func (p *Patient) FullName() string {
	return p.LastName + ", " + p.FirstName
}

// Filter narrows patient listings. Search matches name or DNI.
type Filter struct {
	Search string
}
