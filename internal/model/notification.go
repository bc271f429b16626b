package model

import (
	"time"

	"github.com/google/uuid"
)

type NotificationType string

const (
	NotificationCreated   NotificationType = "created"
	NotificationCancelled NotificationType = "cancelled"
	NotificationUpdated   NotificationType = "updated"
)

// NotificationEvent is the outbound record emitted on every successful
// appointment state transition. Storage and delivery past the outbox
// are external collaborators.
type NotificationEvent struct {
	ID            uuid.UUID        `json:"id"`
	Type          NotificationType `json:"type"`
	AppointmentID uuid.UUID        `json:"appointment_id"`
	RecipientID   uuid.UUID        `json:"recipient_id"`
	Message       string           `json:"message"`
	CreatedAt     time.Time        `json:"created_at"`
}
