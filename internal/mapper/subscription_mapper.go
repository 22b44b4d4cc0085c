package mapper

import (
	"encoding/json"

	"tbank-billing-be/internal/entity"
	"tbank-billing-be/internal/model"

	"gorm.io/datatypes"
)

type SubscriptionMapper struct{}

func NewSubscriptionMapper() *SubscriptionMapper {
	return &SubscriptionMapper{}
}

func (m *SubscriptionMapper) ToEntity(s *model.Subscription) *entity.Subscription {
	if s == nil {
		return nil
	}

	var history []entity.PaymentRecord
	if len(s.PaymentHistory) > 0 {
		// A corrupt column should not make the subscription unreadable.
		_ = json.Unmarshal(s.PaymentHistory, &history)
	}
	var failures []entity.FailureRecord
	if len(s.PaymentFailures) > 0 {
		_ = json.Unmarshal(s.PaymentFailures, &failures)
	}

	return &entity.Subscription{
		Id:                    s.Id,
		UserId:                s.UserId,
		RebillToken:           s.RebillToken,
		CardId:                s.CardId,
		CardLastDigits:        s.CardLastDigits,
		Status:                entity.SubscriptionStatus(s.Status),
		Amount:                s.Amount,
		InitialPaymentDate:    s.InitialPaymentDate,
		NextPaymentDate:       s.NextPaymentDate,
		LastSuccessfulPayment: s.LastSuccessfulPayment,
		TotalPaid:             s.TotalPaid,
		PaymentHistory:        history,
		PaymentFailures:       failures,
		CancellationReason:    s.CancellationReason,
		CancelledAt:           s.CancelledAt,
		CreatedAt:             s.CreatedAt,
		UpdatedAt:             s.UpdatedAt,
	}
}

func (m *SubscriptionMapper) ToModel(s *entity.Subscription) *model.Subscription {
	if s == nil {
		return nil
	}

	history, _ := json.Marshal(s.PaymentHistory)
	failures, _ := json.Marshal(s.PaymentFailures)

	return &model.Subscription{
		Id:                    s.Id,
		UserId:                s.UserId,
		RebillToken:           s.RebillToken,
		CardId:                s.CardId,
		CardLastDigits:        s.CardLastDigits,
		Status:                string(s.Status),
		Amount:                s.Amount,
		InitialPaymentDate:    s.InitialPaymentDate,
		NextPaymentDate:       s.NextPaymentDate,
		LastSuccessfulPayment: s.LastSuccessfulPayment,
		TotalPaid:             s.TotalPaid,
		PaymentHistory:        datatypes.JSON(history),
		PaymentFailures:       datatypes.JSON(failures),
		CancellationReason:    s.CancellationReason,
		CancelledAt:           s.CancelledAt,
		CreatedAt:             s.CreatedAt,
		UpdatedAt:             s.UpdatedAt,
	}
}
