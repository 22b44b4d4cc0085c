package dto

import (
	"time"

	"github.com/google/uuid"
)

type PaymentRecordResponse struct {
	Date      time.Time `json:"date"`
	Amount    int64     `json:"amount"`
	PaymentId string    `json:"payment_id"`
	OrderId   string    `json:"order_id"`
	Status    string    `json:"status"`
}

type FailureRecordResponse struct {
	Date  time.Time `json:"date"`
	Error string    `json:"error"`
}

type SubscriptionResponse struct {
	SubscriptionId        uuid.UUID               `json:"subscription_id"`
	UserId                string                  `json:"user_id"`
	Status                string                  `json:"status"`
	Amount                int64                   `json:"amount"`
	CardLastDigits        string                  `json:"card_last_digits,omitempty"`
	InitialPaymentDate    time.Time               `json:"initial_payment_date"`
	NextPaymentDate       time.Time               `json:"next_payment_date"`
	LastSuccessfulPayment *time.Time              `json:"last_successful_payment,omitempty"`
	TotalPaid             int64                   `json:"total_paid"`
	PaymentHistory        []PaymentRecordResponse `json:"payment_history"`
	PaymentFailures       []FailureRecordResponse `json:"payment_failures,omitempty"`
	CancellationReason    string                  `json:"cancellation_reason,omitempty"`
}

type CancelSubscriptionRequest struct {
	UserId         string `json:"user_id" validate:"required"`
	SubscriptionId string `json:"subscription_id" validate:"required,uuid"`
}

type ForceChargeRequest struct {
	UserId string `json:"user_id" validate:"required"`
}

type ForceChargeResponse struct {
	Success   bool   `json:"success"`
	PaymentId string `json:"payment_id,omitempty"`
	Status    string `json:"status,omitempty"`
}

type ChargeStateResponse struct {
	PaymentId string `json:"payment_id"`
	OrderId   string `json:"order_id,omitempty"`
	Status    string `json:"status"`
	Success   bool   `json:"success"`
	RebillId  string `json:"rebill_id,omitempty"`
	CardId    string `json:"card_id,omitempty"`
	Amount    int64  `json:"amount"`
	ErrorCode string `json:"error_code,omitempty"`
	Message   string `json:"message,omitempty"`
}
