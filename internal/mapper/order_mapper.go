package mapper

import (
	"tbank-billing-be/internal/entity"
	"tbank-billing-be/internal/model"
)

type OrderMapper struct{}

func NewOrderMapper() *OrderMapper {
	return &OrderMapper{}
}

func (m *OrderMapper) MappingToEntity(o *model.OrderMapping) *entity.OrderMapping {
	if o == nil {
		return nil
	}
	return &entity.OrderMapping{
		GatewayOrderId:  o.GatewayOrderId,
		UserId:          o.UserId,
		InternalOrderId: o.InternalOrderId,
		CreatedAt:       o.CreatedAt,
	}
}

func (m *OrderMapper) MappingToModel(o *entity.OrderMapping) *model.OrderMapping {
	if o == nil {
		return nil
	}
	return &model.OrderMapping{
		GatewayOrderId:  o.GatewayOrderId,
		UserId:          o.UserId,
		InternalOrderId: o.InternalOrderId,
		CreatedAt:       o.CreatedAt,
	}
}

func (m *OrderMapper) OrderToEntity(o *model.Order) *entity.Order {
	if o == nil {
		return nil
	}
	return &entity.Order{
		Id:             o.Id,
		UserId:         o.UserId,
		Email:          o.Email,
		Type:           o.Type,
		Amount:         o.Amount,
		PaymentId:      o.PaymentId,
		RebillId:       o.RebillId,
		CardId:         o.CardId,
		CardLastDigits: o.CardLastDigits,
		Status:         o.Status,
		Success:        o.Success,
		PaidAt:         o.PaidAt,
		CreatedAt:      o.CreatedAt,
		UpdatedAt:      o.UpdatedAt,
	}
}

func (m *OrderMapper) OrderToModel(o *entity.Order) *model.Order {
	if o == nil {
		return nil
	}
	return &model.Order{
		Id:             o.Id,
		UserId:         o.UserId,
		Email:          o.Email,
		Type:           o.Type,
		Amount:         o.Amount,
		PaymentId:      o.PaymentId,
		RebillId:       o.RebillId,
		CardId:         o.CardId,
		CardLastDigits: o.CardLastDigits,
		Status:         o.Status,
		Success:        o.Success,
		PaidAt:         o.PaidAt,
		CreatedAt:      o.CreatedAt,
		UpdatedAt:      o.UpdatedAt,
	}
}

func (m *OrderMapper) AttemptToEntity(a *model.ChargeAttempt) *entity.ChargeAttempt {
	if a == nil {
		return nil
	}
	return &entity.ChargeAttempt{
		Id:             a.Id,
		OrderId:        a.OrderId,
		PaymentId:      a.PaymentId,
		RebillId:       a.RebillId,
		Amount:         a.Amount,
		Status:         a.Status,
		Success:        a.Success,
		SubscriptionId: a.SubscriptionId,
		Kind:           a.Kind,
		FinishedAt:     a.FinishedAt,
	}
}

func (m *OrderMapper) AttemptToModel(a *entity.ChargeAttempt) *model.ChargeAttempt {
	if a == nil {
		return nil
	}
	return &model.ChargeAttempt{
		Id:             a.Id,
		OrderId:        a.OrderId,
		PaymentId:      a.PaymentId,
		RebillId:       a.RebillId,
		Amount:         a.Amount,
		Status:         a.Status,
		Success:        a.Success,
		SubscriptionId: a.SubscriptionId,
		Kind:           a.Kind,
		FinishedAt:     a.FinishedAt,
	}
}
