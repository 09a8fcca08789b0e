package domain

import (
	"time"

	"github.com/google/uuid"
)

// User is a dashboard account. Only identity matters here; profile and
// credential management live outside this service.
type User struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Email     string    `json:"email" db:"email"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
