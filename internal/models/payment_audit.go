package models

import (
	"time"

	"github.com/google/uuid"
)

// PaymentEventType represents the type of payment event
type PaymentEventType string

const (
	PaymentEventRecorded        PaymentEventType = "payment_recorded"
	PaymentEventMarkedPaid      PaymentEventType = "marked_paid"
	PaymentEventMarkedUnpaid    PaymentEventType = "marked_unpaid"
	PaymentEventReset           PaymentEventType = "payment_state_reset"
	PaymentEventIntentCreated   PaymentEventType = "payment_intent_created"
	PaymentEventWebhookReceived PaymentEventType = "webhook_received"
	PaymentEventWebhookRejected PaymentEventType = "webhook_rejected"
	PaymentEventError           PaymentEventType = "error"
)

// PaymentAudit represents an immutable audit log entry for payment events
type PaymentAudit struct {
	ID         uuid.UUID              `json:"id" db:"id"`
	FacilityID string                 `json:"facility_id" db:"facility_id"`
	Month      *string                `json:"month,omitempty" db:"month"`
	EventType  PaymentEventType       `json:"event_type" db:"event_type"`
	Amount     *float64               `json:"amount,omitempty" db:"amount"`
	Reference  *string                `json:"reference,omitempty" db:"reference"`
	ActorID    *uuid.UUID             `json:"actor_id,omitempty" db:"actor_id"`
	IPAddress  string                 `json:"ip_address" db:"ip_address"`
	UserAgent  string                 `json:"user_agent" db:"user_agent"`
	Details    map[string]interface{} `json:"details,omitempty" db:"-"`
	CreatedAt  time.Time              `json:"created_at" db:"created_at"`
}
