package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"tbank-billing-be/internal/dto"
	"tbank-billing-be/internal/entity"
	"tbank-billing-be/internal/repository/contract"
	"tbank-billing-be/internal/repository/specification"
	"tbank-billing-be/internal/repository/unitofwork"
	"tbank-billing-be/pkg/events"
	"tbank-billing-be/pkg/tbank"
)

type nopLogger struct{}

func (nopLogger) Debug(module, message string, details map[string]interface{}) {}
func (nopLogger) Info(module, message string, details map[string]interface{})  {}
func (nopLogger) Warn(module, message string, details map[string]interface{})  {}
func (nopLogger) Error(module, message string, details map[string]interface{}) {}
func (nopLogger) Sync() error                                                  { return nil }

// fakeSubscriptionRepo is an in-memory SubscriptionRepository good enough to
// drive the ledger and scheduler logic in tests.
type fakeSubscriptionRepo struct {
	mu   sync.Mutex
	subs map[uuid.UUID]*entity.Subscription

	advanceCalls []advanceCall
}

type advanceCall struct {
	id   uuid.UUID
	next time.Time
}

func newFakeSubscriptionRepo() *fakeSubscriptionRepo {
	return &fakeSubscriptionRepo{subs: make(map[uuid.UUID]*entity.Subscription)}
}

func (r *fakeSubscriptionRepo) put(sub *entity.Subscription) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *sub
	r.subs[sub.Id] = &cp
}

func (r *fakeSubscriptionRepo) get(id uuid.UUID) *entity.Subscription {
	r.mu.Lock()
	defer r.mu.Unlock()
	sub, ok := r.subs[id]
	if !ok {
		return nil
	}
	cp := *sub
	return &cp
}

func (r *fakeSubscriptionRepo) Create(ctx context.Context, sub *entity.Subscription) error {
	r.put(sub)
	return nil
}

func (r *fakeSubscriptionRepo) Update(ctx context.Context, sub *entity.Subscription) error {
	r.put(sub)
	return nil
}

// matches applies the subset of specifications the services actually use.
func (r *fakeSubscriptionRepo) matches(sub *entity.Subscription, specs []specification.Specification) bool {
	for _, spec := range specs {
		switch s := spec.(type) {
		case specification.ByID:
			if sub.Id != s.ID {
				return false
			}
		case specification.ByUserID:
			if sub.UserId != s.UserID {
				return false
			}
		case specification.ByStatus:
			if string(sub.Status) != s.Status {
				return false
			}
		}
	}
	return true
}

func (r *fakeSubscriptionRepo) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*entity.Subscription
	for _, sub := range r.subs {
		if r.matches(sub, specs) {
			cp := *sub
			out = append(out, &cp)
		}
	}
	// Newest first, mirroring the created_at DESC ordering used in queries.
	for i := 0; i < len(out); i++ {
		for j := i + 1; j < len(out); j++ {
			if out[j].CreatedAt.After(out[i].CreatedAt) {
				out[i], out[j] = out[j], out[i]
			}
		}
	}
	return out, nil
}

func (r *fakeSubscriptionRepo) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Subscription, error) {
	all, _ := r.FindAll(ctx, specs...)
	if len(all) == 0 {
		return nil, nil
	}
	return all[0], nil
}

func (r *fakeSubscriptionRepo) AppendPayment(ctx context.Context, id uuid.UUID, rec entity.PaymentRecord) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sub, ok := r.subs[id]
	if !ok {
		return false, fmt.Errorf("subscription %s not found", id)
	}
	if sub.HasPayment(rec.PaymentId) {
		return false, nil
	}
	sub.PaymentHistory = append(sub.PaymentHistory, rec)
	return true, nil
}

func (r *fakeSubscriptionRepo) AppendFailure(ctx context.Context, id uuid.UUID, rec entity.FailureRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	sub, ok := r.subs[id]
	if !ok {
		return fmt.Errorf("subscription %s not found", id)
	}
	sub.PaymentFailures = append(sub.PaymentFailures, rec)
	return nil
}

func (r *fakeSubscriptionRepo) IncrementTotalPaid(ctx context.Context, id uuid.UUID, amount int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	sub, ok := r.subs[id]
	if !ok {
		return fmt.Errorf("subscription %s not found", id)
	}
	sub.TotalPaid += amount
	return nil
}

func (r *fakeSubscriptionRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status entity.SubscriptionStatus, reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	sub, ok := r.subs[id]
	if !ok {
		return fmt.Errorf("subscription %s not found", id)
	}
	sub.Status = status
	sub.CancellationReason = reason
	if status == entity.SubscriptionStatusCancelled || status == entity.SubscriptionStatusCancelledBySystem {
		now := time.Now()
		sub.CancelledAt = &now
	}
	return nil
}

func (r *fakeSubscriptionRepo) AdvanceBillingCycle(ctx context.Context, id uuid.UUID, next time.Time, paidAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	sub, ok := r.subs[id]
	if !ok {
		return fmt.Errorf("subscription %s not found", id)
	}
	sub.NextPaymentDate = next
	sub.LastSuccessfulPayment = &paidAt
	r.advanceCalls = append(r.advanceCalls, advanceCall{id: id, next: next})
	return nil
}

func (r *fakeSubscriptionRepo) advances() []advanceCall {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]advanceCall, len(r.advanceCalls))
	copy(out, r.advanceCalls)
	return out
}

type fakeOrderRepo struct {
	mu       sync.Mutex
	mappings map[string]*entity.OrderMapping
	orders   map[string]*entity.Order
	attempts []*entity.ChargeAttempt

	mappingErr error
	resolveHit int

	// Transient failure injection: the next N calls fail, then recover.
	updateErrs   int
	attemptErrs  int
	updateCalls  int
	attemptCalls int
}

func newFakeOrderRepo() *fakeOrderRepo {
	return &fakeOrderRepo{
		mappings: make(map[string]*entity.OrderMapping),
		orders:   make(map[string]*entity.Order),
	}
}

func (r *fakeOrderRepo) SaveMapping(ctx context.Context, mapping *entity.OrderMapping) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.mappingErr != nil {
		return r.mappingErr
	}
	if _, exists := r.mappings[mapping.GatewayOrderId]; !exists {
		r.mappings[mapping.GatewayOrderId] = mapping
	}
	return nil
}

func (r *fakeOrderRepo) FindMappingByGatewayOrderID(ctx context.Context, gatewayOrderId string) (*entity.OrderMapping, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resolveHit++
	return r.mappings[gatewayOrderId], nil
}

func (r *fakeOrderRepo) CreateOrder(ctx context.Context, order *entity.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *order
	r.orders[order.Id] = &cp
	return nil
}

func (r *fakeOrderRepo) UpdateOrder(ctx context.Context, order *entity.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updateCalls++
	if r.updateErrs > 0 {
		r.updateErrs--
		return fmt.Errorf("transient store failure")
	}
	cp := *order
	r.orders[order.Id] = &cp
	return nil
}

func (r *fakeOrderRepo) FindOrder(ctx context.Context, id string) (*entity.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	order, ok := r.orders[id]
	if !ok {
		return nil, nil
	}
	cp := *order
	return &cp, nil
}

func (r *fakeOrderRepo) FindOrderByPaymentID(ctx context.Context, paymentId string, limit int) (*entity.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, order := range r.orders {
		if order.PaymentId == paymentId {
			cp := *order
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakeOrderRepo) FindLatestOrderByEmail(ctx context.Context, email string) (*entity.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var latest *entity.Order
	for _, order := range r.orders {
		if order.Email != email {
			continue
		}
		if latest == nil || order.CreatedAt.After(latest.CreatedAt) {
			latest = order
		}
	}
	if latest == nil {
		return nil, nil
	}
	cp := *latest
	return &cp, nil
}

func (r *fakeOrderRepo) CreateChargeAttempt(ctx context.Context, attempt *entity.ChargeAttempt) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.attemptCalls++
	if r.attemptErrs > 0 {
		r.attemptErrs--
		return fmt.Errorf("transient store failure")
	}
	r.attempts = append(r.attempts, attempt)
	return nil
}

type fakeNotificationRepo struct {
	mu        sync.Mutex
	processed map[string]*entity.ProcessedNotification
	pending   []*entity.PendingNotification
	errors    []*entity.WebhookErrorRecord
}

func newFakeNotificationRepo() *fakeNotificationRepo {
	return &fakeNotificationRepo{processed: make(map[string]*entity.ProcessedNotification)}
}

func (r *fakeNotificationRepo) CreateProcessed(ctx context.Context, n *entity.ProcessedNotification) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.processed[n.Key]; exists {
		return false, nil
	}
	r.processed[n.Key] = n
	return true, nil
}

func (r *fakeNotificationRepo) CreatePending(ctx context.Context, n *entity.PendingNotification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pending = append(r.pending, n)
	return nil
}

func (r *fakeNotificationRepo) CreateErrorRecord(ctx context.Context, rec *entity.WebhookErrorRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errors = append(r.errors, rec)
	return nil
}

// fakeUnitOfWork hands out the shared fake repositories.
type fakeUnitOfWork struct {
	subs   *fakeSubscriptionRepo
	orders *fakeOrderRepo
	notifs *fakeNotificationRepo
}

func (u *fakeUnitOfWork) Begin(ctx context.Context) error { return nil }
func (u *fakeUnitOfWork) Commit() error                   { return nil }
func (u *fakeUnitOfWork) Rollback() error                 { return nil }

func (u *fakeUnitOfWork) SubscriptionRepository() contract.SubscriptionRepository { return u.subs }
func (u *fakeUnitOfWork) OrderRepository() contract.OrderRepository               { return u.orders }
func (u *fakeUnitOfWork) NotificationRepository() contract.NotificationRepository { return u.notifs }

type fakeFactory struct {
	uow *fakeUnitOfWork
}

func newFakeFactory() *fakeFactory {
	return &fakeFactory{uow: &fakeUnitOfWork{
		subs:   newFakeSubscriptionRepo(),
		orders: newFakeOrderRepo(),
		notifs: newFakeNotificationRepo(),
	}}
}

func (f *fakeFactory) NewUnitOfWork(ctx context.Context) unitofwork.UnitOfWork { return f.uow }

// fakeGateway scripts Init/Charge outcomes.
type fakeGateway struct {
	mu          sync.Mutex
	initCalls   int
	chargeCalls int

	failInit   bool
	failCharge bool
	state      *tbank.StateResponse
}

func (g *fakeGateway) Init(ctx context.Context, req *tbank.InitRequest) (*tbank.InitResponse, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.initCalls++
	if g.failInit {
		return &tbank.InitResponse{Success: false, ErrorCode: "9999", Message: "terminal blocked"}, nil
	}
	return &tbank.InitResponse{
		Success:   true,
		Status:    "NEW",
		PaymentID: fmt.Sprintf("pay-%d", g.initCalls),
		OrderID:   req.OrderID,
		Amount:    req.Amount,
	}, nil
}

func (g *fakeGateway) Charge(ctx context.Context, paymentID, rebillID string) (*tbank.ChargeResponse, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.chargeCalls++
	if g.failCharge {
		return &tbank.ChargeResponse{Success: false, ErrorCode: "103", Message: "insufficient funds", Status: tbank.StatusRejected, PaymentID: paymentID}, nil
	}
	return &tbank.ChargeResponse{Success: true, Status: tbank.StatusConfirmed, PaymentID: paymentID}, nil
}

func (g *fakeGateway) GetState(ctx context.Context, paymentID string) (*tbank.StateResponse, error) {
	if g.state != nil {
		return g.state, nil
	}
	return &tbank.StateResponse{Success: true, Status: tbank.StatusConfirmed, PaymentID: paymentID}, nil
}

type fakePublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *fakePublisher) Publish(ctx context.Context, event events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *fakePublisher) typesSeen() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.EventType())
	}
	return out
}

// fakeChargeService scripts charge outcomes for scheduler tests.
type fakeChargeService struct {
	mu    sync.Mutex
	calls []uuid.UUID
	fail  bool

	done chan struct{}
}

func (s *fakeChargeService) Execute(ctx context.Context, subscriptionId uuid.UUID, kind string) (*ChargeResult, error) {
	s.mu.Lock()
	s.calls = append(s.calls, subscriptionId)
	fail := s.fail
	s.mu.Unlock()
	if s.done != nil {
		defer func() { s.done <- struct{}{} }()
	}
	if fail {
		return nil, &GatewayError{Code: "103", Message: "insufficient funds"}
	}
	return &ChargeResult{PaymentId: "pay-sched", Status: tbank.StatusConfirmed}, nil
}

func (s *fakeChargeService) GetChargeState(ctx context.Context, paymentId string) (*dto.ChargeStateResponse, error) {
	return &dto.ChargeStateResponse{PaymentId: paymentId, Status: tbank.StatusConfirmed, Success: true}, nil
}

// fakeScheduler records calls without arming real timers.
type fakeScheduler struct {
	mu        sync.Mutex
	scheduled []uuid.UUID
	cancelled []uuid.UUID
}

func (s *fakeScheduler) Schedule(userId string, subscriptionId uuid.UUID, due time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scheduled = append(s.scheduled, subscriptionId)
	return true
}

func (s *fakeScheduler) CancelTimer(userId string, subscriptionId uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelled = append(s.cancelled, subscriptionId)
	return true
}

func (s *fakeScheduler) Cancel(ctx context.Context, userId string, subscriptionId uuid.UUID) error {
	s.CancelTimer(userId, subscriptionId)
	return nil
}

func (s *fakeScheduler) Restore(ctx context.Context) error { return nil }
func (s *fakeScheduler) LiveTimers() int                   { return 0 }
func (s *fakeScheduler) Stop()                             {}
