package contract

import (
	"context"

	"tbank-billing-be/internal/entity"
)

type NotificationRepository interface {
	// CreateProcessed is the idempotency gate: an atomic check-and-create on
	// the notification key. Returns false when the key already existed.
	CreateProcessed(ctx context.Context, notification *entity.ProcessedNotification) (bool, error)

	CreatePending(ctx context.Context, notification *entity.PendingNotification) error
	CreateErrorRecord(ctx context.Context, record *entity.WebhookErrorRecord) error
}
