package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Project is a tenant of the platform. Email holds the sending address
// whose domain backs the project's identity; a nil Email means no domain
// has been attached yet.
type Project struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Email     *string   `json:"email" db:"email"`
	Verified  bool      `json:"verified" db:"verified"`
	Secret    string    `json:"-" db:"secret"`
	Public    string    `json:"public" db:"public"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// SendingDomain returns the domain part of the project's sending address,
// or "" when no address is attached.
func (p *Project) SendingDomain() string {
	if p.Email == nil {
		return ""
	}
	return DomainOf(*p.Email)
}

// DomainOf extracts the domain from an email address. A bare domain is
// returned unchanged, so callers may pass either form.
func DomainOf(email string) string {
	if at := strings.LastIndex(email, "@"); at >= 0 {
		return strings.ToLower(email[at+1:])
	}
	return strings.ToLower(email)
}
