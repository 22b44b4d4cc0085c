package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"tbank-billing-be/internal/dto"
	"tbank-billing-be/internal/entity"
	"tbank-billing-be/internal/pkg/logger"
	"tbank-billing-be/internal/repository/unitofwork"
)

type IWebhookService interface {
	// Process reconciles one raw gateway notification. The HTTP 200 has
	// already been sent by the time this runs, so every failure is terminal
	// for this delivery: outcomes are logged and persisted, never re-queued.
	Process(ctx context.Context, body []byte) error
}

type WebhookService struct {
	uowFactory          unitofwork.RepositoryFactory
	orderResolver       IOrderResolverService
	subscriptionService ISubscriptionService
	log                 logger.ILogger
}

func NewWebhookService(uowFactory unitofwork.RepositoryFactory, orderResolver IOrderResolverService, subscriptionService ISubscriptionService, log logger.ILogger) IWebhookService {
	return &WebhookService{
		uowFactory:          uowFactory,
		orderResolver:       orderResolver,
		subscriptionService: subscriptionService,
		log:                 log,
	}
}

func (s *WebhookService) Process(ctx context.Context, body []byte) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	n, err := dto.ParseNotification(body)
	if err != nil {
		s.log.Error("webhook", "unparseable notification payload", map[string]interface{}{
			"error": err.Error(),
			"body":  string(body),
		})
		s.recordError(ctx, uow, "parse", err.Error(), map[string]interface{}{"body": string(body)})
		return nil
	}

	s.log.Info("webhook", "notification received", map[string]interface{}{
		"order_id":   n.OrderId,
		"payment_id": n.PaymentId,
		"status":     n.Status,
		"kind":       string(n.Kind()),
	})

	created, err := uow.NotificationRepository().CreateProcessed(ctx, &entity.ProcessedNotification{
		Key:         n.DedupKey(),
		ProcessedAt: time.Now(),
		Payload:     n.Raw,
	})
	if err != nil {
		s.log.Error("webhook", "idempotency gate unavailable", map[string]interface{}{
			"key":   n.DedupKey(),
			"error": err.Error(),
		})
		s.recordError(ctx, uow, "dedup", err.Error(), n.Raw)
		return err
	}
	if !created {
		s.log.Info("webhook", "duplicate notification skipped", map[string]interface{}{
			"key": n.DedupKey(),
		})
		return nil
	}

	resolved, err := s.route(ctx, n)
	if err != nil {
		s.recordError(ctx, uow, "route", err.Error(), n.Raw)
		return err
	}
	if resolved == nil {
		s.quarantine(ctx, uow, n)
		return nil
	}

	s.orderResolver.Record(ctx, n.OrderId, resolved.UserId, resolved.InternalOrderId)

	if err := s.applyToOrder(ctx, uow, n, resolved); err != nil {
		s.recordError(ctx, uow, "apply_order", err.Error(), n.Raw)
		return err
	}

	if n.Kind() == dto.KindRecurrent && n.Success && n.IsConfirmed() {
		if _, err := s.subscriptionService.Upsert(ctx, resolved.UserId, n, resolved.InternalOrderId); err != nil {
			s.log.Error("webhook", "subscription upsert failed", map[string]interface{}{
				"user_id":    resolved.UserId,
				"payment_id": n.PaymentId,
				"error":      err.Error(),
			})
			s.recordError(ctx, uow, "apply_subscription", err.Error(), n.Raw)
			return err
		}
	}

	s.log.Info("webhook", "notification applied", map[string]interface{}{
		"user_id":    resolved.UserId,
		"order_id":   resolved.InternalOrderId,
		"payment_id": n.PaymentId,
		"status":     n.Status,
	})
	return nil
}

// route finds the owning user for a notification. Resolution order: the
// persisted order-id mapping, then a bounded scan by payment id, then the
// latest order for the customer email (recurrent confirmations only).
func (s *WebhookService) route(ctx context.Context, n *dto.GatewayNotification) (*ResolvedOrder, error) {
	resolved, err := s.orderResolver.Resolve(ctx, n.OrderId)
	if err != nil {
		return nil, err
	}
	if resolved != nil {
		return resolved, nil
	}

	resolved, err = s.orderResolver.ResolveByPaymentID(ctx, n.PaymentId)
	if err != nil {
		return nil, err
	}
	if resolved != nil {
		return resolved, nil
	}

	if n.Kind() == dto.KindRecurrent && n.IsConfirmed() && n.Email != "" {
		resolved, err = s.orderResolver.ResolveByEmail(ctx, n.Email)
		if err != nil {
			return nil, err
		}
		if resolved != nil {
			s.log.Warn("webhook", "notification routed by email fallback", map[string]interface{}{
				"order_id": n.OrderId,
				"email":    n.Email,
			})
			return resolved, nil
		}
	}

	return nil, nil
}

func (s *WebhookService) applyToOrder(ctx context.Context, uow unitofwork.UnitOfWork, n *dto.GatewayNotification, resolved *ResolvedOrder) error {
	repo := uow.OrderRepository()

	order, err := repo.FindOrder(ctx, resolved.InternalOrderId)
	if err != nil {
		return err
	}

	now := time.Now()
	if order == nil {
		order = &entity.Order{
			Id:        resolved.InternalOrderId,
			UserId:    resolved.UserId,
			Type:      string(n.Kind()),
			CreatedAt: now,
		}
		if err := repo.CreateOrder(ctx, order); err != nil {
			return err
		}
	}

	order.PaymentId = n.PaymentId
	order.RebillId = n.RebillId
	order.CardId = n.CardId
	order.CardLastDigits = n.CardLastDigits()
	order.Status = n.Status
	order.Success = n.Success
	order.Amount = n.AmountMajor()
	if n.Email != "" {
		order.Email = n.Email
	}
	if n.IsConfirmed() {
		order.PaidAt = &now
	}
	order.UpdatedAt = now

	// One inline retry before giving up and writing an error record.
	if err := repo.UpdateOrder(ctx, order); err != nil {
		s.log.Warn("webhook", "order update failed, retrying once", map[string]interface{}{
			"order_id": order.Id,
			"error":    err.Error(),
		})
		return repo.UpdateOrder(ctx, order)
	}
	return nil
}

// quarantine stores an unroutable notification for manual reconciliation.
func (s *WebhookService) quarantine(ctx context.Context, uow unitofwork.UnitOfWork, n *dto.GatewayNotification) {
	s.log.Warn("webhook", "unroutable notification quarantined", map[string]interface{}{
		"order_id":   n.OrderId,
		"payment_id": n.PaymentId,
		"status":     n.Status,
	})
	err := uow.NotificationRepository().CreatePending(ctx, &entity.PendingNotification{
		Id:         uuid.New(),
		Reason:     "unroutable_order",
		Payload:    n.Raw,
		ReceivedAt: time.Now(),
	})
	if err != nil {
		s.log.Error("webhook", "failed to quarantine notification", map[string]interface{}{
			"order_id": n.OrderId,
			"error":    err.Error(),
		})
	}
}

func (s *WebhookService) recordError(ctx context.Context, uow unitofwork.UnitOfWork, stage, message string, payload map[string]interface{}) {
	err := uow.NotificationRepository().CreateErrorRecord(ctx, &entity.WebhookErrorRecord{
		Id:        uuid.New(),
		Stage:     stage,
		Error:     message,
		Payload:   payload,
		CreatedAt: time.Now(),
	})
	if err != nil {
		s.log.Error("webhook", "failed to persist error record", map[string]interface{}{
			"stage": stage,
			"error": err.Error(),
		})
	}
}
