package unitofwork

import (
	"context"
	"fmt"

	"tbank-billing-be/internal/repository/contract"
	"tbank-billing-be/internal/repository/implementation"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type UnitOfWorkImpl struct {
	db  *gorm.DB
	rdb *redis.Client
	tx  *gorm.DB
}

func NewUnitOfWork(db *gorm.DB, rdb *redis.Client) UnitOfWork {
	return &UnitOfWorkImpl{
		db:  db,
		rdb: rdb,
	}
}

func (u *UnitOfWorkImpl) getDB() *gorm.DB {
	if u.tx != nil {
		return u.tx
	}
	return u.db
}

func (u *UnitOfWorkImpl) Begin(ctx context.Context) error {
	if u.tx != nil {
		return fmt.Errorf("transaction already started")
	}
	u.tx = u.db.WithContext(ctx).Begin()
	return u.tx.Error
}

func (u *UnitOfWorkImpl) Commit() error {
	if u.tx == nil {
		return fmt.Errorf("no transaction to commit")
	}
	err := u.tx.Commit().Error
	u.tx = nil
	return err
}

func (u *UnitOfWorkImpl) Rollback() error {
	if u.tx == nil {
		return fmt.Errorf("no transaction to rollback")
	}
	err := u.tx.Rollback().Error
	u.tx = nil
	return err
}

// Repository Accessors

func (u *UnitOfWorkImpl) SubscriptionRepository() contract.SubscriptionRepository {
	return implementation.NewSubscriptionRepository(u.getDB())
}

func (u *UnitOfWorkImpl) OrderRepository() contract.OrderRepository {
	return implementation.NewOrderRepository(u.getDB())
}

func (u *UnitOfWorkImpl) NotificationRepository() contract.NotificationRepository {
	return implementation.NewNotificationRepository(u.getDB(), u.rdb)
}
