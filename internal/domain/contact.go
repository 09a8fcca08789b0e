package domain

import (
	"time"

	"github.com/google/uuid"
)

// Contact is a recipient belonging to a project. Subscribed only ever
// transitions true -> false (bounce, complaint, unsubscribe); there is no
// automatic re-subscribe.
type Contact struct {
	ID         uuid.UUID `json:"id" db:"id"`
	ProjectID  uuid.UUID `json:"project_id" db:"project_id"`
	Email      string    `json:"email" db:"email"`
	Subscribed bool      `json:"subscribed" db:"subscribed"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"`
}
