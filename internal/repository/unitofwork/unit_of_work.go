package unitofwork

import (
	"context"

	"tbank-billing-be/internal/repository/contract"
)

type UnitOfWork interface {
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error

	SubscriptionRepository() contract.SubscriptionRepository
	OrderRepository() contract.OrderRepository
	NotificationRepository() contract.NotificationRepository
}
