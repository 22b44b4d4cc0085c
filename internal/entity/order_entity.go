package entity

import (
	"time"

	"github.com/google/uuid"
)

// OrderMapping routes a gateway order id back to the internal (user, order)
// pair. Written once when a payment is initiated, never mutated.
type OrderMapping struct {
	GatewayOrderId  string
	UserId          string
	InternalOrderId string
	CreatedAt       time.Time
}

// Order is a locally tracked payment order. Its gateway fields are filled in
// from webhook notifications.
type Order struct {
	Id             string
	UserId         string
	Email          string
	Type           string
	Amount         int64
	PaymentId      string
	RebillId       string
	CardId         string
	CardLastDigits string
	Status         string
	Success        bool
	PaidAt         *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Charge attempt kinds.
const (
	ChargeKindWebhook   = "webhook"
	ChargeKindRecurrent = "recurrent_auto"
	ChargeKindManual    = "manual"
)

// ChargeAttempt is the immutable record of a single charge execution against
// the gateway, scheduled or manual.
type ChargeAttempt struct {
	Id             uuid.UUID
	OrderId        string
	PaymentId      string
	RebillId       string
	Amount         int64
	Status         string
	Success        bool
	SubscriptionId uuid.UUID
	Kind           string
	FinishedAt     time.Time
}
