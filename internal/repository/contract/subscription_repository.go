package contract

import (
	"context"
	"time"

	"tbank-billing-be/internal/entity"
	"tbank-billing-be/internal/repository/specification"

	"github.com/google/uuid"
)

type SubscriptionRepository interface {
	Create(ctx context.Context, sub *entity.Subscription) error
	Update(ctx context.Context, sub *entity.Subscription) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Subscription, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Subscription, error)

	// AppendPayment adds a history entry unless an entry with the same
	// payment id is already present. Returns whether the entry was appended.
	AppendPayment(ctx context.Context, id uuid.UUID, rec entity.PaymentRecord) (bool, error)
	AppendFailure(ctx context.Context, id uuid.UUID, rec entity.FailureRecord) error

	// IncrementTotalPaid atomically adds amount to the running total.
	IncrementTotalPaid(ctx context.Context, id uuid.UUID, amount int64) error

	UpdateStatus(ctx context.Context, id uuid.UUID, status entity.SubscriptionStatus, reason string) error

	// AdvanceBillingCycle moves nextPaymentDate forward and stamps the last
	// successful payment time.
	AdvanceBillingCycle(ctx context.Context, id uuid.UUID, next time.Time, paidAt time.Time) error
}
