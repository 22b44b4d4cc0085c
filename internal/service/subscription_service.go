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
)

type ISubscriptionService interface {
	// Upsert applies a confirmed rebill notification to the ledger: it
	// extends the user's subscription when the rebill token matches, replaces
	// it when the user paid with a new card, and creates one when none is
	// active. The single-active invariant is repaired here if violated.
	Upsert(ctx context.Context, userId string, n *dto.GatewayNotification, internalOrderId string) (*entity.Subscription, error)

	// Cancel is the user-requested cancellation.
	Cancel(ctx context.Context, userId string, subscriptionId uuid.UUID) error

	// GetByUser returns the user's most recent subscription in any status.
	GetByUser(ctx context.Context, userId string) (*dto.SubscriptionResponse, error)

	ListActive(ctx context.Context) ([]*dto.SubscriptionResponse, error)

	// ForceCharge runs an out-of-cycle manual charge for the user's active
	// subscription and advances the billing cycle from now.
	ForceCharge(ctx context.Context, userId string) (*dto.ForceChargeResponse, error)
}

type SubscriptionService struct {
	uowFactory    unitofwork.RepositoryFactory
	scheduler     ISchedulerService
	chargeService IChargeService
	publisher     EventPublisher
	cfg           *config.Config
	log           logger.ILogger
}

func NewSubscriptionService(uowFactory unitofwork.RepositoryFactory, scheduler ISchedulerService, chargeService IChargeService, publisher EventPublisher, cfg *config.Config, log logger.ILogger) ISubscriptionService {
	return &SubscriptionService{
		uowFactory:    uowFactory,
		scheduler:     scheduler,
		chargeService: chargeService,
		publisher:     publisher,
		cfg:           cfg,
		log:           log,
	}
}

func (s *SubscriptionService) Upsert(ctx context.Context, userId string, n *dto.GatewayNotification, internalOrderId string) (*entity.Subscription, error) {
	amount := n.AmountMajor()
	if amount == 0 {
		amount = s.cfg.Billing.RecurringAmount
	}
	orderId := internalOrderId
	if orderId == "" {
		orderId = n.OrderId
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	repo := uow.SubscriptionRepository()

	active, err := repo.FindAll(ctx,
		specification.ByUserID{UserID: userId},
		specification.ByStatus{Status: string(entity.SubscriptionStatusActive)},
		specification.OrderBy{Field: "created_at", Desc: true},
	)
	if err != nil {
		return nil, fmt.Errorf("load active subscriptions: %w", err)
	}

	// Invariant repair: keep only the newest active subscription.
	if len(active) > 1 {
		for _, stale := range active[1:] {
			s.scheduler.CancelTimer(userId, stale.Id)
			if err := repo.UpdateStatus(ctx, stale.Id, entity.SubscriptionStatusCancelledBySystem, entity.CancelReasonMultipleActive); err != nil {
				s.log.Error("subscription", "failed to cancel duplicate subscription", map[string]interface{}{
					"user_id":         userId,
					"subscription_id": stale.Id.String(),
					"error":           err.Error(),
				})
			}
		}
	}

	now := time.Now()
	next := now.AddDate(0, 1, 0)

	if len(active) > 0 {
		current := active[0]
		if current.RebillToken == n.RebillId {
			return s.renew(ctx, uow, current, n, amount, orderId, now, next)
		}

		// User paid with a different card: the old subscription is replaced.
		s.scheduler.CancelTimer(userId, current.Id)
		if err := repo.UpdateStatus(ctx, current.Id, entity.SubscriptionStatusCancelled, entity.CancelReasonNewPaymentMethod); err != nil {
			return nil, fmt.Errorf("cancel replaced subscription: %w", err)
		}
		s.publish(ctx, events.TypeSubscriptionCancelled, map[string]interface{}{
			"user_id":         userId,
			"subscription_id": current.Id.String(),
			"reason":          entity.CancelReasonNewPaymentMethod,
		})
	}

	sub := &entity.Subscription{
		Id:                    uuid.New(),
		UserId:                userId,
		RebillToken:           n.RebillId,
		CardId:                n.CardId,
		CardLastDigits:        n.CardLastDigits(),
		Status:                entity.SubscriptionStatusActive,
		Amount:                amount,
		InitialPaymentDate:    now,
		NextPaymentDate:       next,
		LastSuccessfulPayment: &now,
		TotalPaid:             amount,
		PaymentHistory: []entity.PaymentRecord{
			{Date: now, Amount: amount, PaymentId: n.PaymentId, OrderId: orderId, Status: "success"},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := repo.Create(ctx, sub); err != nil {
		return nil, fmt.Errorf("create subscription: %w", err)
	}

	s.scheduler.Schedule(userId, sub.Id, next)
	s.publish(ctx, events.TypeSubscriptionCreated, map[string]interface{}{
		"user_id":         userId,
		"subscription_id": sub.Id.String(),
		"amount":          amount,
		"next_due":        next.Format(time.RFC3339),
	})

	s.log.Info("subscription", "subscription created", map[string]interface{}{
		"user_id":         userId,
		"subscription_id": sub.Id.String(),
		"amount":          amount,
	})
	return sub, nil
}

func (s *SubscriptionService) renew(ctx context.Context, uow unitofwork.UnitOfWork, current *entity.Subscription, n *dto.GatewayNotification, amount int64, orderId string, now, next time.Time) (*entity.Subscription, error) {
	repo := uow.SubscriptionRepository()

	appended, err := repo.AppendPayment(ctx, current.Id, entity.PaymentRecord{
		Date:      now,
		Amount:    amount,
		PaymentId: n.PaymentId,
		OrderId:   orderId,
		Status:    "success",
	})
	if err != nil {
		return nil, fmt.Errorf("append payment record: %w", err)
	}
	if !appended {
		// The payment id is already in the history: a replay raced past the
		// dedup gate. Nothing else to apply.
		s.log.Warn("subscription", "payment already recorded, skipping renewal", map[string]interface{}{
			"user_id":    current.UserId,
			"payment_id": n.PaymentId,
		})
		return current, nil
	}

	if err := repo.IncrementTotalPaid(ctx, current.Id, amount); err != nil {
		return nil, fmt.Errorf("increment total paid: %w", err)
	}
	if err := repo.AdvanceBillingCycle(ctx, current.Id, next, now); err != nil {
		return nil, fmt.Errorf("advance billing cycle: %w", err)
	}

	s.scheduler.Schedule(current.UserId, current.Id, next)
	s.publish(ctx, events.TypeSubscriptionRenewed, map[string]interface{}{
		"user_id":         current.UserId,
		"subscription_id": current.Id.String(),
		"payment_id":      n.PaymentId,
		"amount":          amount,
		"next_due":        next.Format(time.RFC3339),
	})

	s.log.Info("subscription", "subscription renewed", map[string]interface{}{
		"user_id":         current.UserId,
		"subscription_id": current.Id.String(),
		"payment_id":      n.PaymentId,
	})
	return current, nil
}

func (s *SubscriptionService) Cancel(ctx context.Context, userId string, subscriptionId uuid.UUID) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	sub, err := uow.SubscriptionRepository().FindOne(ctx, specification.ByID{ID: subscriptionId})
	if err != nil {
		return fmt.Errorf("load subscription: %w", err)
	}
	if sub == nil || sub.UserId != userId {
		return ErrSubscriptionNotFound
	}

	if err := s.scheduler.Cancel(ctx, userId, subscriptionId); err != nil {
		return err
	}

	s.publish(ctx, events.TypeSubscriptionCancelled, map[string]interface{}{
		"user_id":         userId,
		"subscription_id": subscriptionId.String(),
		"reason":          "user_request",
	})
	return nil
}

func (s *SubscriptionService) GetByUser(ctx context.Context, userId string) (*dto.SubscriptionResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	sub, err := uow.SubscriptionRepository().FindOne(ctx,
		specification.ByUserID{UserID: userId},
		specification.OrderBy{Field: "created_at", Desc: true},
	)
	if err != nil {
		return nil, fmt.Errorf("load subscription: %w", err)
	}
	if sub == nil {
		return nil, ErrSubscriptionNotFound
	}
	return toSubscriptionResponse(sub), nil
}

func (s *SubscriptionService) ListActive(ctx context.Context) ([]*dto.SubscriptionResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	subs, err := uow.SubscriptionRepository().FindAll(ctx,
		specification.ByStatus{Status: string(entity.SubscriptionStatusActive)},
		specification.OrderBy{Field: "created_at", Desc: true},
	)
	if err != nil {
		return nil, fmt.Errorf("list active subscriptions: %w", err)
	}

	out := make([]*dto.SubscriptionResponse, 0, len(subs))
	for _, sub := range subs {
		out = append(out, toSubscriptionResponse(sub))
	}
	return out, nil
}

func (s *SubscriptionService) ForceCharge(ctx context.Context, userId string) (*dto.ForceChargeResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	sub, err := uow.SubscriptionRepository().FindOne(ctx,
		specification.ByUserID{UserID: userId},
		specification.ByStatus{Status: string(entity.SubscriptionStatusActive)},
		specification.OrderBy{Field: "created_at", Desc: true},
	)
	if err != nil {
		return nil, fmt.Errorf("load subscription: %w", err)
	}
	if sub == nil {
		return nil, ErrNoActiveSubscription
	}

	result, err := s.chargeService.Execute(ctx, sub.Id, entity.ChargeKindManual)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	next := now.AddDate(0, 1, 0)
	if err := uow.SubscriptionRepository().AdvanceBillingCycle(ctx, sub.Id, next, now); err != nil {
		return nil, fmt.Errorf("advance billing cycle: %w", err)
	}
	s.scheduler.Schedule(userId, sub.Id, next)

	return &dto.ForceChargeResponse{
		Success:   true,
		PaymentId: result.PaymentId,
		Status:    result.Status,
	}, nil
}

func (s *SubscriptionService) publish(ctx context.Context, eventType string, data map[string]interface{}) {
	if s.publisher == nil {
		return
	}
	evt := events.BaseEvent{Type: eventType, Data: data, OccurredAt: time.Now()}
	if err := s.publisher.Publish(ctx, evt); err != nil {
		s.log.Warn("subscription", "failed to publish billing event", map[string]interface{}{
			"event": eventType,
			"error": err.Error(),
		})
	}
}

func toSubscriptionResponse(sub *entity.Subscription) *dto.SubscriptionResponse {
	history := make([]dto.PaymentRecordResponse, 0, len(sub.PaymentHistory))
	for _, rec := range sub.PaymentHistory {
		history = append(history, dto.PaymentRecordResponse{
			Date:      rec.Date,
			Amount:    rec.Amount,
			PaymentId: rec.PaymentId,
			OrderId:   rec.OrderId,
			Status:    rec.Status,
		})
	}
	failures := make([]dto.FailureRecordResponse, 0, len(sub.PaymentFailures))
	for _, rec := range sub.PaymentFailures {
		failures = append(failures, dto.FailureRecordResponse{Date: rec.Date, Error: rec.Error})
	}
	return &dto.SubscriptionResponse{
		SubscriptionId:        sub.Id,
		UserId:                sub.UserId,
		Status:                string(sub.Status),
		Amount:                sub.Amount,
		CardLastDigits:        sub.CardLastDigits,
		InitialPaymentDate:    sub.InitialPaymentDate,
		NextPaymentDate:       sub.NextPaymentDate,
		LastSuccessfulPayment: sub.LastSuccessfulPayment,
		TotalPaid:             sub.TotalPaid,
		PaymentHistory:        history,
		PaymentFailures:       failures,
		CancellationReason:    sub.CancellationReason,
	}
}
