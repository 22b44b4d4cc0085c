package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tbank-billing-be/internal/entity"
)

type webhookFixture struct {
	factory   *fakeFactory
	scheduler *fakeScheduler
	publisher *fakePublisher
	svc       IWebhookService
}

func newWebhookFixture() *webhookFixture {
	factory := newFakeFactory()
	scheduler := &fakeScheduler{}
	publisher := &fakePublisher{}
	resolver := NewOrderResolverService(factory, nopLogger{}, 200)
	subscriptions := NewSubscriptionService(factory, scheduler, &fakeChargeService{}, publisher, testBillingConfig(), nopLogger{})
	return &webhookFixture{
		factory:   factory,
		scheduler: scheduler,
		publisher: publisher,
		svc:       NewWebhookService(factory, resolver, subscriptions, nopLogger{}),
	}
}

func (f *webhookFixture) knownOrder(gatewayOrderId, userId string) {
	f.factory.uow.orders.mappings[gatewayOrderId] = &entity.OrderMapping{
		GatewayOrderId:  gatewayOrderId,
		UserId:          userId,
		InternalOrderId: gatewayOrderId,
		CreatedAt:       time.Now(),
	}
}

func TestProcessUnparseablePayloadIsRecorded(t *testing.T) {
	f := newWebhookFixture()

	err := f.svc.Process(context.Background(), []byte(`{"Status": `))
	require.NoError(t, err)

	require.Len(t, f.factory.uow.notifs.errors, 1)
	assert.Equal(t, "parse", f.factory.uow.notifs.errors[0].Stage)
	assert.Empty(t, f.factory.uow.notifs.processed)
}

func TestProcessQuarantinesUnroutableNotification(t *testing.T) {
	f := newWebhookFixture()

	body := []byte(`{"OrderId": "order-unknown", "PaymentId": 42, "Status": "CONFIRMED", "Success": true}`)
	require.NoError(t, f.svc.Process(context.Background(), body))

	require.Len(t, f.factory.uow.notifs.pending, 1)
	assert.Equal(t, "unroutable_order", f.factory.uow.notifs.pending[0].Reason)
	// The delivery still counts as processed so replays do not pile up.
	assert.Len(t, f.factory.uow.notifs.processed, 1)
}

func TestProcessRetriesOrderUpdateOnce(t *testing.T) {
	f := newWebhookFixture()
	f.knownOrder("order-1", "user-1")
	f.factory.uow.orders.updateErrs = 1

	body := []byte(`{"OrderId": "order-1", "PaymentId": 42, "Status": "CONFIRMED", "Success": true, "Amount": 39000}`)
	require.NoError(t, f.svc.Process(context.Background(), body))

	// One transient failure is absorbed by the inline retry.
	assert.Equal(t, 2, f.factory.uow.orders.updateCalls)
	assert.Empty(t, f.factory.uow.notifs.errors)

	order, err := f.factory.uow.orders.FindOrder(context.Background(), "order-1")
	require.NoError(t, err)
	require.NotNil(t, order)
	assert.Equal(t, "42", order.PaymentId)
}

func TestProcessAppliesPaymentToOrder(t *testing.T) {
	f := newWebhookFixture()
	f.knownOrder("order-1", "user-1")

	body := []byte(`{"OrderId": "order-1", "PaymentId": 42, "Status": "CONFIRMED", "Success": true, "Amount": 39000, "Email": "u@example.com"}`)
	require.NoError(t, f.svc.Process(context.Background(), body))

	order, err := f.factory.uow.orders.FindOrder(context.Background(), "order-1")
	require.NoError(t, err)
	require.NotNil(t, order)
	assert.Equal(t, "42", order.PaymentId)
	assert.Equal(t, "CONFIRMED", order.Status)
	assert.True(t, order.Success)
	assert.Equal(t, int64(390), order.Amount)
	require.NotNil(t, order.PaidAt)

	// A plain payment without a rebill id never touches subscriptions.
	subs, _ := f.factory.uow.subs.FindAll(context.Background())
	assert.Empty(t, subs)
}

func TestProcessSkipsDuplicateDelivery(t *testing.T) {
	f := newWebhookFixture()
	f.knownOrder("order-1", "user-1")

	body := []byte(`{"OrderId": "order-1", "PaymentId": 42, "Status": "CONFIRMED", "Success": true}`)
	require.NoError(t, f.svc.Process(context.Background(), body))

	// Drop the applied order. A redelivery of the same key must not recreate it.
	delete(f.factory.uow.orders.orders, "order-1")
	require.NoError(t, f.svc.Process(context.Background(), body))

	order, _ := f.factory.uow.orders.FindOrder(context.Background(), "order-1")
	assert.Nil(t, order)
	assert.Len(t, f.factory.uow.notifs.processed, 1)
}

func TestProcessRecurrentConfirmationUpsertsSubscription(t *testing.T) {
	f := newWebhookFixture()
	f.knownOrder("order-1", "user-1")

	body := []byte(`{"OrderId": "order-1", "PaymentId": 42, "RebillId": 777, "CardId": "c-1", "Pan": "430000******0777", "Status": "CONFIRMED", "Success": true, "Amount": 39000}`)
	require.NoError(t, f.svc.Process(context.Background(), body))

	subs, _ := f.factory.uow.subs.FindAll(context.Background())
	require.Len(t, subs, 1)
	sub := subs[0]
	assert.Equal(t, "user-1", sub.UserId)
	assert.Equal(t, "777", sub.RebillToken)
	assert.Equal(t, entity.SubscriptionStatusActive, sub.Status)
	assert.Equal(t, int64(390), sub.TotalPaid)
	assert.Contains(t, f.scheduler.scheduled, sub.Id)
}

func TestProcessRejectedRecurrentDoesNotTouchLedger(t *testing.T) {
	f := newWebhookFixture()
	f.knownOrder("order-1", "user-1")

	body := []byte(`{"OrderId": "order-1", "PaymentId": 42, "RebillId": 777, "Status": "REJECTED", "Success": false}`)
	require.NoError(t, f.svc.Process(context.Background(), body))

	subs, _ := f.factory.uow.subs.FindAll(context.Background())
	assert.Empty(t, subs)

	order, _ := f.factory.uow.orders.FindOrder(context.Background(), "order-1")
	require.NotNil(t, order)
	assert.Equal(t, "REJECTED", order.Status)
	assert.Nil(t, order.PaidAt)
}

func TestProcessRoutesByPaymentIDFallback(t *testing.T) {
	f := newWebhookFixture()
	f.factory.uow.orders.orders["int-7"] = &entity.Order{
		Id:        "int-7",
		UserId:    "user-7",
		PaymentId: "42",
		CreatedAt: time.Now(),
	}

	// The gateway order id is unknown but the payment id matches a local order.
	body := []byte(`{"OrderId": "foreign-order", "PaymentId": 42, "Status": "CONFIRMED", "Success": true}`)
	require.NoError(t, f.svc.Process(context.Background(), body))

	assert.Empty(t, f.factory.uow.notifs.pending)
	order, _ := f.factory.uow.orders.FindOrder(context.Background(), "int-7")
	require.NotNil(t, order)
	assert.Equal(t, "CONFIRMED", order.Status)
}

func TestProcessConcurrentDuplicatesApplyOnce(t *testing.T) {
	f := newWebhookFixture()
	f.knownOrder("order-1", "user-1")

	body := []byte(`{"OrderId": "order-1", "PaymentId": 42, "RebillId": 777, "Status": "CONFIRMED", "Success": true, "Amount": 39000}`)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = f.svc.Process(context.Background(), body)
		}()
	}
	wg.Wait()

	subs, _ := f.factory.uow.subs.FindAll(context.Background())
	require.Len(t, subs, 1)
	assert.Len(t, subs[0].PaymentHistory, 1)
	assert.Equal(t, int64(390), subs[0].TotalPaid)
	assert.Len(t, f.factory.uow.notifs.processed, 1)
}
