package entity

import (
	"time"

	"github.com/google/uuid"
)

// ProcessedNotification is the append-only idempotency log. Existence of a
// key means the notification was already handled.
type ProcessedNotification struct {
	Key         string
	ProcessedAt time.Time
	Payload     map[string]interface{}
}

// PendingNotification holds payloads that could not be routed to any order.
// They wait for manual reconciliation and are never dropped.
type PendingNotification struct {
	Id         uuid.UUID
	Reason     string
	Payload    map[string]interface{}
	ReceivedAt time.Time
}

// WebhookErrorRecord captures persistence failures inside the deferred
// processing path, since there is no caller left to surface them to.
type WebhookErrorRecord struct {
	Id        uuid.UUID
	Stage     string
	Error     string
	Payload   map[string]interface{}
	CreatedAt time.Time
}
