package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tbank-billing-be/internal/config"
	"tbank-billing-be/internal/entity"
	"tbank-billing-be/pkg/events"
	"tbank-billing-be/pkg/tbank"
)

func newTestChargeService(factory *fakeFactory, gateway *fakeGateway, publisher *fakePublisher) IChargeService {
	cfg := &config.Config{
		Billing: config.BillingConfig{RecurringAmount: 390},
		TBank:   config.TBankConfig{ReceiptEmail: "receipts@example.com", Taxation: "usn_income"},
	}
	return NewChargeService(factory, gateway, publisher, cfg, nopLogger{})
}

func TestExecuteChargesActiveSubscription(t *testing.T) {
	factory := newFakeFactory()
	gateway := &fakeGateway{}
	publisher := &fakePublisher{}
	svc := newTestChargeService(factory, gateway, publisher)

	sub := activeSubscription("user-1", time.Now(), time.Now().Add(time.Hour))
	factory.uow.subs.put(sub)

	result, err := svc.Execute(context.Background(), sub.Id, entity.ChargeKindRecurrent)
	require.NoError(t, err)

	assert.Equal(t, tbank.StatusConfirmed, result.Status)
	assert.NotEmpty(t, result.PaymentId)
	assert.Equal(t, int64(390), result.Amount)
	assert.Equal(t, 1, gateway.initCalls)
	assert.Equal(t, 1, gateway.chargeCalls)

	stored := factory.uow.subs.get(sub.Id)
	require.Len(t, stored.PaymentHistory, 1)
	assert.Equal(t, result.PaymentId, stored.PaymentHistory[0].PaymentId)
	assert.Equal(t, int64(390), stored.TotalPaid)
	assert.Equal(t, entity.SubscriptionStatusActive, stored.Status)

	require.Len(t, factory.uow.orders.attempts, 1)
	attempt := factory.uow.orders.attempts[0]
	assert.True(t, attempt.Success)
	assert.Equal(t, entity.ChargeKindRecurrent, attempt.Kind)
	assert.Equal(t, sub.Id, attempt.SubscriptionId)

	assert.Contains(t, publisher.typesSeen(), events.TypeSubscriptionRenewed)
}

func TestExecuteRejectsMissingSubscription(t *testing.T) {
	svc := newTestChargeService(newFakeFactory(), &fakeGateway{}, &fakePublisher{})

	_, err := svc.Execute(context.Background(), uuid.New(), entity.ChargeKindManual)
	assert.ErrorIs(t, err, ErrSubscriptionNotFound)
}

func TestExecuteRejectsInactiveSubscription(t *testing.T) {
	factory := newFakeFactory()
	svc := newTestChargeService(factory, &fakeGateway{}, &fakePublisher{})

	sub := activeSubscription("user-1", time.Now(), time.Now().Add(time.Hour))
	sub.Status = entity.SubscriptionStatusCancelled
	factory.uow.subs.put(sub)

	_, err := svc.Execute(context.Background(), sub.Id, entity.ChargeKindManual)
	assert.ErrorIs(t, err, ErrSubscriptionNotActive)
}

func TestExecuteDeclinedChargeMarksPaymentFailed(t *testing.T) {
	factory := newFakeFactory()
	gateway := &fakeGateway{failCharge: true}
	publisher := &fakePublisher{}
	svc := newTestChargeService(factory, gateway, publisher)

	sub := activeSubscription("user-1", time.Now(), time.Now().Add(time.Hour))
	factory.uow.subs.put(sub)

	_, err := svc.Execute(context.Background(), sub.Id, entity.ChargeKindRecurrent)
	require.Error(t, err)

	var gwErr *GatewayError
	require.ErrorAs(t, err, &gwErr)
	assert.Equal(t, "103", gwErr.Code)

	stored := factory.uow.subs.get(sub.Id)
	assert.Equal(t, entity.SubscriptionStatusPaymentFailed, stored.Status)
	assert.Empty(t, stored.PaymentHistory)
	require.Len(t, stored.PaymentFailures, 1)
	assert.Contains(t, stored.PaymentFailures[0].Error, "insufficient funds")

	require.Len(t, factory.uow.orders.attempts, 1)
	assert.False(t, factory.uow.orders.attempts[0].Success)

	assert.Contains(t, publisher.typesSeen(), events.TypePaymentFailed)
}

func TestExecuteFailedInitMarksPaymentFailed(t *testing.T) {
	factory := newFakeFactory()
	gateway := &fakeGateway{failInit: true}
	svc := newTestChargeService(factory, gateway, &fakePublisher{})

	sub := activeSubscription("user-1", time.Now(), time.Now().Add(time.Hour))
	factory.uow.subs.put(sub)

	_, err := svc.Execute(context.Background(), sub.Id, entity.ChargeKindRecurrent)
	require.Error(t, err)

	assert.Equal(t, 0, gateway.chargeCalls)
	assert.Equal(t, entity.SubscriptionStatusPaymentFailed, factory.uow.subs.get(sub.Id).Status)
}

func TestExecuteMappingWriteFailureIsRecorded(t *testing.T) {
	factory := newFakeFactory()
	factory.uow.orders.mappingErr = errors.New("connection reset")
	publisher := &fakePublisher{}
	svc := newTestChargeService(factory, &fakeGateway{}, publisher)

	sub := activeSubscription("user-1", time.Now(), time.Now().Add(time.Hour))
	factory.uow.subs.put(sub)

	// The charge itself still goes through.
	result, err := svc.Execute(context.Background(), sub.Id, entity.ChargeKindRecurrent)
	require.NoError(t, err)
	assert.Equal(t, tbank.StatusConfirmed, result.Status)

	records := factory.uow.notifs.errors
	require.Len(t, records, 1)
	assert.Equal(t, "save_mapping", records[0].Stage)
	assert.Contains(t, records[0].Error, "connection reset")
}

func TestExecuteRetriesAttemptWriteOnce(t *testing.T) {
	factory := newFakeFactory()
	factory.uow.orders.attemptErrs = 1
	svc := newTestChargeService(factory, &fakeGateway{}, &fakePublisher{})

	sub := activeSubscription("user-1", time.Now(), time.Now().Add(time.Hour))
	factory.uow.subs.put(sub)

	_, err := svc.Execute(context.Background(), sub.Id, entity.ChargeKindRecurrent)
	require.NoError(t, err)

	assert.Equal(t, 2, factory.uow.orders.attemptCalls)
	require.Len(t, factory.uow.orders.attempts, 1)
	assert.Empty(t, factory.uow.notifs.errors)
}

func TestExecuteAttemptWriteFailureIsRecorded(t *testing.T) {
	factory := newFakeFactory()
	factory.uow.orders.attemptErrs = 2
	svc := newTestChargeService(factory, &fakeGateway{}, &fakePublisher{})

	sub := activeSubscription("user-1", time.Now(), time.Now().Add(time.Hour))
	factory.uow.subs.put(sub)

	_, err := svc.Execute(context.Background(), sub.Id, entity.ChargeKindRecurrent)
	require.NoError(t, err)

	assert.Equal(t, 2, factory.uow.orders.attemptCalls)
	assert.Empty(t, factory.uow.orders.attempts)

	records := factory.uow.notifs.errors
	require.Len(t, records, 1)
	assert.Equal(t, "charge_attempt", records[0].Stage)
}

func TestGetChargeStatePassthrough(t *testing.T) {
	gateway := &fakeGateway{state: &tbank.StateResponse{
		Success:   true,
		Status:    "REFUNDED",
		PaymentID: "pay-7",
		RebillID:  "rebill-7",
		Amount:    39000,
	}}
	svc := newTestChargeService(newFakeFactory(), gateway, &fakePublisher{})

	state, err := svc.GetChargeState(context.Background(), "pay-7")
	require.NoError(t, err)
	assert.Equal(t, "REFUNDED", state.Status)
	assert.Equal(t, "rebill-7", state.RebillId)
	assert.Equal(t, int64(390), state.Amount)
}
