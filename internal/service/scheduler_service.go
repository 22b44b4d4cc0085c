package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"tbank-billing-be/internal/entity"
	"tbank-billing-be/internal/pkg/logger"
	"tbank-billing-be/internal/repository/specification"
	"tbank-billing-be/internal/repository/unitofwork"
)

type ISchedulerService interface {
	// Schedule arms a timer that fires the recurring charge at due. A due
	// date in the past is rejected. Re-scheduling an already scheduled
	// subscription replaces the previous timer, so at most one timer exists
	// per subscription.
	Schedule(userId string, subscriptionId uuid.UUID, due time.Time) bool

	// CancelTimer disarms the timer for a subscription if one exists.
	CancelTimer(userId string, subscriptionId uuid.UUID) bool

	// Cancel disarms the timer and marks the subscription cancelled.
	Cancel(ctx context.Context, userId string, subscriptionId uuid.UUID) error

	// Restore rebuilds the in-memory timer set from persisted subscriptions
	// after a process restart. When a user has several future dated active
	// subscriptions the newest one survives and the rest are cancelled by
	// the system; past due ones are left active without a timer.
	Restore(ctx context.Context) error

	// LiveTimers reports how many timers are currently armed.
	LiveTimers() int

	Stop()
}

type SchedulerService struct {
	uowFactory    unitofwork.RepositoryFactory
	chargeService IChargeService
	log           logger.ILogger

	mu     sync.Mutex
	timers map[string]*time.Timer
}

func NewSchedulerService(uowFactory unitofwork.RepositoryFactory, chargeService IChargeService, log logger.ILogger) ISchedulerService {
	return &SchedulerService{
		uowFactory:    uowFactory,
		chargeService: chargeService,
		log:           log,
		timers:        make(map[string]*time.Timer),
	}
}

func jobKey(userId string, subscriptionId uuid.UUID) string {
	return fmt.Sprintf("sub_%s_%s", userId, subscriptionId)
}

func (s *SchedulerService) Schedule(userId string, subscriptionId uuid.UUID, due time.Time) bool {
	delay := time.Until(due)
	if delay <= 0 {
		s.log.Warn("scheduler", "refusing to schedule charge in the past", map[string]interface{}{
			"user_id":         userId,
			"subscription_id": subscriptionId.String(),
			"due":             due.Format(time.RFC3339),
		})
		return false
	}

	key := jobKey(userId, subscriptionId)

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.timers[key]; ok {
		existing.Stop()
	}
	s.timers[key] = time.AfterFunc(delay, func() {
		s.fire(userId, subscriptionId, due)
	})

	s.log.Info("scheduler", "charge scheduled", map[string]interface{}{
		"user_id":         userId,
		"subscription_id": subscriptionId.String(),
		"due":             due.Format(time.RFC3339),
	})
	return true
}

func (s *SchedulerService) CancelTimer(userId string, subscriptionId uuid.UUID) bool {
	key := jobKey(userId, subscriptionId)

	s.mu.Lock()
	defer s.mu.Unlock()

	timer, ok := s.timers[key]
	if !ok {
		return false
	}
	timer.Stop()
	delete(s.timers, key)
	return true
}

func (s *SchedulerService) Cancel(ctx context.Context, userId string, subscriptionId uuid.UUID) error {
	s.CancelTimer(userId, subscriptionId)

	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.SubscriptionRepository().UpdateStatus(ctx, subscriptionId, entity.SubscriptionStatusCancelled, ""); err != nil {
		return fmt.Errorf("cancel subscription: %w", err)
	}

	s.log.Info("scheduler", "subscription cancelled", map[string]interface{}{
		"user_id":         userId,
		"subscription_id": subscriptionId.String(),
	})
	return nil
}

func (s *SchedulerService) Restore(ctx context.Context) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	repo := uow.SubscriptionRepository()

	subs, err := repo.FindAll(ctx,
		specification.ByStatus{Status: string(entity.SubscriptionStatusActive)},
	)
	if err != nil {
		return fmt.Errorf("load active subscriptions: %w", err)
	}

	// Only future dated subscriptions compete for the single timer slot. A
	// past due one stays active for manual follow-up and never evicts a
	// future dated sibling.
	now := time.Now()
	byUser := make(map[string][]*entity.Subscription)
	for _, sub := range subs {
		if !sub.NextPaymentDate.After(now) {
			s.log.Warn("scheduler", "subscription past due after restart, not rescheduled", map[string]interface{}{
				"user_id":         sub.UserId,
				"subscription_id": sub.Id.String(),
				"due":             sub.NextPaymentDate.Format(time.RFC3339),
			})
			continue
		}
		byUser[sub.UserId] = append(byUser[sub.UserId], sub)
	}

	restored := 0
	for userId, userSubs := range byUser {
		sort.Slice(userSubs, func(i, j int) bool {
			return userSubs[i].CreatedAt.After(userSubs[j].CreatedAt)
		})

		survivor := userSubs[0]
		for _, stale := range userSubs[1:] {
			if err := repo.UpdateStatus(ctx, stale.Id, entity.SubscriptionStatusCancelledBySystem, entity.CancelReasonMultipleOnRestart); err != nil {
				s.log.Error("scheduler", "failed to cancel duplicate subscription on restart", map[string]interface{}{
					"user_id":         userId,
					"subscription_id": stale.Id.String(),
					"error":           err.Error(),
				})
				continue
			}
			s.log.Warn("scheduler", "cancelled duplicate active subscription on restart", map[string]interface{}{
				"user_id":         userId,
				"subscription_id": stale.Id.String(),
			})
		}

		if s.Schedule(userId, survivor.Id, survivor.NextPaymentDate) {
			restored++
		}
	}

	s.log.Info("scheduler", "timer set restored", map[string]interface{}{
		"active_subscriptions": len(subs),
		"timers":               restored,
	})
	return nil
}

func (s *SchedulerService) LiveTimers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

func (s *SchedulerService) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, timer := range s.timers {
		timer.Stop()
		delete(s.timers, key)
	}
}

// fire runs when a timer elapses. The charge outcome decides whether the
// next cycle gets scheduled: success advances the billing cycle one month
// from the due date, failure leaves the subscription in payment_failed with
// no timer.
func (s *SchedulerService) fire(userId string, subscriptionId uuid.UUID, due time.Time) {
	key := jobKey(userId, subscriptionId)
	s.mu.Lock()
	delete(s.timers, key)
	s.mu.Unlock()

	ctx := context.Background()

	// Re-check the single-active invariant before touching the gateway. A
	// concurrent webhook or admin action may have replaced this subscription
	// since the timer was armed.
	uowCheck := s.uowFactory.NewUnitOfWork(ctx)
	others, err := uowCheck.SubscriptionRepository().FindAll(ctx,
		specification.ByUserID{UserID: userId},
		specification.ByStatus{Status: string(entity.SubscriptionStatusActive)},
	)
	if err != nil {
		s.log.Error("scheduler", "failed to verify subscription before charge", map[string]interface{}{
			"subscription_id": subscriptionId.String(),
			"error":           err.Error(),
		})
		return
	}
	for _, other := range others {
		if other.Id != subscriptionId {
			s.log.Warn("scheduler", "another active subscription exists, skipping charge", map[string]interface{}{
				"user_id":         userId,
				"subscription_id": subscriptionId.String(),
				"conflicting_id":  other.Id.String(),
			})
			return
		}
	}

	result, err := s.chargeService.Execute(ctx, subscriptionId, entity.ChargeKindRecurrent)
	if err != nil {
		s.log.Warn("scheduler", "scheduled charge failed", map[string]interface{}{
			"user_id":         userId,
			"subscription_id": subscriptionId.String(),
			"error":           err.Error(),
		})
		return
	}

	next := due.AddDate(0, 1, 0)
	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.SubscriptionRepository().AdvanceBillingCycle(ctx, subscriptionId, next, time.Now()); err != nil {
		s.log.Error("scheduler", "failed to advance billing cycle", map[string]interface{}{
			"subscription_id": subscriptionId.String(),
			"error":           err.Error(),
		})
		return
	}

	s.Schedule(userId, subscriptionId, next)

	s.log.Info("scheduler", "billing cycle advanced", map[string]interface{}{
		"user_id":         userId,
		"subscription_id": subscriptionId.String(),
		"payment_id":      result.PaymentId,
		"next_due":        next.Format(time.RFC3339),
	})
}
