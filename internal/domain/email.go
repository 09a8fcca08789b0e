package domain

import (
	"time"

	"github.com/google/uuid"
)

// EmailStatus enumerates the delivery states of a sent message. The status
// reflects the most recent provider event; transitions are last-write-wins
// and deliberately unordered (a bounce may arrive after a delivery).
type EmailStatus string

const (
	EmailPending   EmailStatus = "PENDING"
	EmailDelivered EmailStatus = "DELIVERED"
	EmailBounced   EmailStatus = "BOUNCED"
	EmailOpened    EmailStatus = "OPENED"
	EmailComplaint EmailStatus = "COMPLAINT"
)

// Email is a record of a single sent message. MessageID is the provider's
// correlation key and is how webhook events find their way back here.
type Email struct {
	ID         uuid.UUID   `json:"id" db:"id"`
	MessageID  string      `json:"message_id" db:"message_id"`
	Status     EmailStatus `json:"status" db:"status"`
	Subject    string      `json:"subject" db:"subject"`
	ContactID  uuid.UUID   `json:"contact_id" db:"contact_id"`
	ActionID   *uuid.UUID  `json:"action_id" db:"action_id"`
	CampaignID *uuid.UUID  `json:"campaign_id" db:"campaign_id"`
	CreatedAt  time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at" db:"updated_at"`
}

// Click is an append-only record of a tracked link click on an email.
type Click struct {
	ID        uuid.UUID `json:"id" db:"id"`
	EmailID   uuid.UUID `json:"email_id" db:"email_id"`
	Link      string    `json:"link" db:"link"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
