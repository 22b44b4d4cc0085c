package entity

import (
	"time"

	"github.com/google/uuid"
)

type SubscriptionStatus string

const (
	SubscriptionStatusActive            SubscriptionStatus = "active"
	SubscriptionStatusPaymentFailed     SubscriptionStatus = "payment_failed"
	SubscriptionStatusCancelled         SubscriptionStatus = "cancelled"
	SubscriptionStatusCancelledBySystem SubscriptionStatus = "cancelled_by_system"
)

// Cancellation reasons recorded on system-driven cancellations.
const (
	CancelReasonMultipleActive    = "multiple_active_subscriptions"
	CancelReasonMultipleOnRestart = "multiple_subscriptions_on_restart"
	CancelReasonNewPaymentMethod  = "replaced_by_new_payment_method"
)

// PaymentRecord is one entry of a subscription's payment history.
type PaymentRecord struct {
	Date      time.Time `json:"date"`
	Amount    int64     `json:"amount"`
	PaymentId string    `json:"payment_id"`
	OrderId   string    `json:"order_id"`
	Status    string    `json:"status"`
}

// FailureRecord is one entry of a subscription's failure history.
type FailureRecord struct {
	Date  time.Time `json:"date"`
	Error string    `json:"error"`
}

// Subscription is the recurring-billing ledger record. Amounts are in major
// currency units. At most one subscription per user may be active at a time;
// violations are repaired by keeping the most recently created one.
type Subscription struct {
	Id                    uuid.UUID
	UserId                string
	RebillToken           string
	CardId                string
	CardLastDigits        string
	Status                SubscriptionStatus
	Amount                int64
	InitialPaymentDate    time.Time
	NextPaymentDate       time.Time
	LastSuccessfulPayment *time.Time
	TotalPaid             int64
	PaymentHistory        []PaymentRecord
	PaymentFailures       []FailureRecord
	CancellationReason    string
	CancelledAt           *time.Time
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

func (s *Subscription) IsActive() bool {
	return s.Status == SubscriptionStatusActive
}

// HasPayment reports whether the given gateway payment id is already present
// in the payment history. Used to reject webhook replays racing the dedup
// check.
func (s *Subscription) HasPayment(paymentId string) bool {
	for _, rec := range s.PaymentHistory {
		if rec.PaymentId == paymentId {
			return true
		}
	}
	return false
}
