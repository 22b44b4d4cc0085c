package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"tbank-billing-be/internal/config"
	"tbank-billing-be/internal/dto"
	"tbank-billing-be/internal/entity"
	"tbank-billing-be/internal/pkg/logger"
	"tbank-billing-be/internal/repository/specification"
	"tbank-billing-be/internal/repository/unitofwork"
	"tbank-billing-be/pkg/events"
	"tbank-billing-be/pkg/tbank"
)

// EventPublisher is the outbound event bus contract.
type EventPublisher interface {
	Publish(ctx context.Context, event events.Event) error
}

// ChargeResult reports a successful gateway charge.
type ChargeResult struct {
	PaymentId string
	OrderId   string
	Amount    int64
	Status    string
}

type IChargeService interface {
	// Execute runs a full Init+Charge cycle against the gateway for an active
	// subscription and records the outcome in the ledger. A declined or
	// timed-out charge returns a *GatewayError and moves the subscription to
	// payment_failed.
	Execute(ctx context.Context, subscriptionId uuid.UUID, kind string) (*ChargeResult, error)

	// GetChargeState passes a payment state query through to the gateway.
	GetChargeState(ctx context.Context, paymentId string) (*dto.ChargeStateResponse, error)
}

type ChargeService struct {
	uowFactory unitofwork.RepositoryFactory
	gateway    tbank.Gateway
	publisher  EventPublisher
	cfg        *config.Config
	log        logger.ILogger
}

func NewChargeService(uowFactory unitofwork.RepositoryFactory, gateway tbank.Gateway, publisher EventPublisher, cfg *config.Config, log logger.ILogger) IChargeService {
	return &ChargeService{
		uowFactory: uowFactory,
		gateway:    gateway,
		publisher:  publisher,
		cfg:        cfg,
		log:        log,
	}
}

func (s *ChargeService) Execute(ctx context.Context, subscriptionId uuid.UUID, kind string) (*ChargeResult, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	subRepo := uow.SubscriptionRepository()

	sub, err := subRepo.FindOne(ctx, specification.ByID{ID: subscriptionId})
	if err != nil {
		return nil, fmt.Errorf("load subscription: %w", err)
	}
	if sub == nil {
		return nil, ErrSubscriptionNotFound
	}
	if !sub.IsActive() {
		return nil, ErrSubscriptionNotActive
	}

	orderId := fmt.Sprintf("%s-%d-%s", kind, time.Now().UnixMilli(), sub.UserId)

	order := &entity.Order{
		Id:        orderId,
		UserId:    sub.UserId,
		Type:      kind,
		Amount:    sub.Amount,
		Status:    "NEW",
		CreatedAt: time.Now(),
	}
	if err := uow.OrderRepository().CreateOrder(ctx, order); err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}
	mapping := &entity.OrderMapping{
		GatewayOrderId:  orderId,
		UserId:          sub.UserId,
		InternalOrderId: orderId,
		CreatedAt:       time.Now(),
	}
	// Without the mapping the webhook this charge triggers loses its primary
	// routing key, so a failed write must stay visible.
	s.persistAudit(ctx, uow, "save_mapping", map[string]interface{}{
		"order_id": orderId,
		"user_id":  sub.UserId,
	}, func() error {
		return uow.OrderRepository().SaveMapping(ctx, mapping)
	})

	initResp, err := s.gateway.Init(ctx, &tbank.InitRequest{
		Amount:      sub.Amount * 100,
		OrderID:     orderId,
		Description: "Monthly subscription renewal",
		CustomerKey: sub.UserId,
		Receipt:     s.buildReceipt(sub.Amount),
	})
	if err != nil {
		return nil, s.recordFailure(ctx, uow, sub, orderId, "", kind, &GatewayError{Message: "init request failed", Err: err})
	}
	if !initResp.Success {
		return nil, s.recordFailure(ctx, uow, sub, orderId, initResp.PaymentID, kind, &GatewayError{Code: initResp.ErrorCode, Message: initResp.Message})
	}

	chargeResp, err := s.gateway.Charge(ctx, initResp.PaymentID, sub.RebillToken)
	if err != nil {
		return nil, s.recordFailure(ctx, uow, sub, orderId, initResp.PaymentID, kind, &GatewayError{Message: "charge request failed", Err: err})
	}
	if !chargeResp.Success {
		return nil, s.recordFailure(ctx, uow, sub, orderId, initResp.PaymentID, kind, &GatewayError{Code: chargeResp.ErrorCode, Message: chargeResp.Message})
	}

	now := time.Now()
	attempt := &entity.ChargeAttempt{
		Id:             uuid.New(),
		OrderId:        orderId,
		PaymentId:      chargeResp.PaymentID,
		RebillId:       sub.RebillToken,
		Amount:         sub.Amount,
		Status:         chargeResp.Status,
		Success:        true,
		SubscriptionId: sub.Id,
		Kind:           kind,
		FinishedAt:     now,
	}
	s.persistAudit(ctx, uow, "charge_attempt", map[string]interface{}{
		"order_id":   orderId,
		"payment_id": chargeResp.PaymentID,
	}, func() error {
		return uow.OrderRepository().CreateChargeAttempt(ctx, attempt)
	})

	order.PaymentId = chargeResp.PaymentID
	order.Status = chargeResp.Status
	order.Success = true
	order.PaidAt = &now
	s.persistAudit(ctx, uow, "order_update", map[string]interface{}{
		"order_id":   orderId,
		"payment_id": chargeResp.PaymentID,
	}, func() error {
		return uow.OrderRepository().UpdateOrder(ctx, order)
	})

	appended, err := subRepo.AppendPayment(ctx, sub.Id, entity.PaymentRecord{
		Date:      now,
		Amount:    sub.Amount,
		PaymentId: chargeResp.PaymentID,
		OrderId:   orderId,
		Status:    "success",
	})
	if err != nil {
		return nil, fmt.Errorf("append payment record: %w", err)
	}
	if appended {
		if err := subRepo.IncrementTotalPaid(ctx, sub.Id, sub.Amount); err != nil {
			return nil, fmt.Errorf("increment total paid: %w", err)
		}
	}

	s.publish(ctx, events.TypeSubscriptionRenewed, map[string]interface{}{
		"user_id":         sub.UserId,
		"subscription_id": sub.Id.String(),
		"payment_id":      chargeResp.PaymentID,
		"amount":          sub.Amount,
		"kind":            kind,
	})

	s.log.Info("charge", "recurring charge succeeded", map[string]interface{}{
		"user_id":    sub.UserId,
		"order_id":   orderId,
		"payment_id": chargeResp.PaymentID,
		"amount":     sub.Amount,
	})

	return &ChargeResult{
		PaymentId: chargeResp.PaymentID,
		OrderId:   orderId,
		Amount:    sub.Amount,
		Status:    chargeResp.Status,
	}, nil
}

func (s *ChargeService) GetChargeState(ctx context.Context, paymentId string) (*dto.ChargeStateResponse, error) {
	resp, err := s.gateway.GetState(ctx, paymentId)
	if err != nil {
		return nil, &GatewayError{Message: "get state request failed", Err: err}
	}
	return &dto.ChargeStateResponse{
		PaymentId: resp.PaymentID,
		OrderId:   resp.OrderID,
		Status:    resp.Status,
		Success:   resp.Success,
		RebillId:  resp.RebillID,
		CardId:    resp.CardID,
		Amount:    resp.Amount / 100,
		ErrorCode: resp.ErrorCode,
		Message:   resp.Message,
	}, nil
}

// recordFailure writes the failure history entry, flips the subscription to
// payment_failed and emits the failure event. Always returns gwErr.
func (s *ChargeService) recordFailure(ctx context.Context, uow unitofwork.UnitOfWork, sub *entity.Subscription, orderId, paymentId, kind string, gwErr *GatewayError) error {
	now := time.Now()
	subRepo := uow.SubscriptionRepository()

	if err := subRepo.AppendFailure(ctx, sub.Id, entity.FailureRecord{
		Date:  now,
		Error: gwErr.Error(),
	}); err != nil {
		s.log.Error("charge", "failed to append failure record", map[string]interface{}{
			"subscription_id": sub.Id.String(),
			"error":           err.Error(),
		})
	}
	if err := subRepo.UpdateStatus(ctx, sub.Id, entity.SubscriptionStatusPaymentFailed, ""); err != nil {
		s.log.Error("charge", "failed to mark subscription payment_failed", map[string]interface{}{
			"subscription_id": sub.Id.String(),
			"error":           err.Error(),
		})
	}

	attempt := &entity.ChargeAttempt{
		Id:             uuid.New(),
		OrderId:        orderId,
		PaymentId:      paymentId,
		RebillId:       sub.RebillToken,
		Amount:         sub.Amount,
		Status:         tbank.StatusRejected,
		Success:        false,
		SubscriptionId: sub.Id,
		Kind:           kind,
		FinishedAt:     now,
	}
	s.persistAudit(ctx, uow, "charge_attempt", map[string]interface{}{
		"order_id":   orderId,
		"payment_id": paymentId,
	}, func() error {
		return uow.OrderRepository().CreateChargeAttempt(ctx, attempt)
	})

	s.publish(ctx, events.TypePaymentFailed, map[string]interface{}{
		"user_id":         sub.UserId,
		"subscription_id": sub.Id.String(),
		"order_id":        orderId,
		"error":           gwErr.Error(),
	})

	s.log.Warn("charge", "recurring charge failed", map[string]interface{}{
		"user_id":  sub.UserId,
		"order_id": orderId,
		"error":    gwErr.Error(),
	})

	return gwErr
}

// persistAudit runs an audit write with one inline retry. A write that still
// fails is logged and stored as an error record for manual reconciliation;
// the charge itself is never failed over it.
func (s *ChargeService) persistAudit(ctx context.Context, uow unitofwork.UnitOfWork, stage string, details map[string]interface{}, write func() error) {
	err := write()
	if err == nil {
		return
	}
	s.log.Warn("charge", "audit write failed, retrying once", map[string]interface{}{
		"stage": stage,
		"error": err.Error(),
	})
	if err = write(); err == nil {
		return
	}

	details["error"] = err.Error()
	s.log.Error("charge", "audit write failed after retry", details)
	recErr := uow.NotificationRepository().CreateErrorRecord(ctx, &entity.WebhookErrorRecord{
		Id:        uuid.New(),
		Stage:     stage,
		Error:     err.Error(),
		Payload:   details,
		CreatedAt: time.Now(),
	})
	if recErr != nil {
		s.log.Error("charge", "failed to persist error record", map[string]interface{}{
			"stage": stage,
			"error": recErr.Error(),
		})
	}
}

func (s *ChargeService) buildReceipt(amount int64) *tbank.Receipt {
	if s.cfg.TBank.ReceiptEmail == "" {
		return nil
	}
	return &tbank.Receipt{
		Email:    s.cfg.TBank.ReceiptEmail,
		Taxation: s.cfg.TBank.Taxation,
		Items: []tbank.ReceiptItem{
			{
				Name:          "Monthly subscription",
				Price:         amount * 100,
				Quantity:      1,
				Amount:        amount * 100,
				Tax:           "none",
				PaymentMethod: "full_payment",
				PaymentObject: "service",
			},
		},
	}
}

func (s *ChargeService) publish(ctx context.Context, eventType string, data map[string]interface{}) {
	if s.publisher == nil {
		return
	}
	evt := events.BaseEvent{Type: eventType, Data: data, OccurredAt: time.Now()}
	if err := s.publisher.Publish(ctx, evt); err != nil {
		s.log.Warn("charge", "failed to publish billing event", map[string]interface{}{
			"event": eventType,
			"error": err.Error(),
		})
	}
}
