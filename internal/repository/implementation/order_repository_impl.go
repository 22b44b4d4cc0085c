package implementation

import (
	"context"
	"errors"

	"tbank-billing-be/internal/entity"
	"tbank-billing-be/internal/mapper"
	"tbank-billing-be/internal/model"
	"tbank-billing-be/internal/repository/contract"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type OrderRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.OrderMapper
}

func NewOrderRepository(db *gorm.DB) contract.OrderRepository {
	return &OrderRepositoryImpl{
		db:     db,
		mapper: mapper.NewOrderMapper(),
	}
}

func (r *OrderRepositoryImpl) SaveMapping(ctx context.Context, mapping *entity.OrderMapping) error {
	m := r.mapper.MappingToModel(mapping)
	// Mappings are immutable; re-recording the same gateway order id is a no-op.
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(m).Error
}

func (r *OrderRepositoryImpl) FindMappingByGatewayOrderID(ctx context.Context, gatewayOrderId string) (*entity.OrderMapping, error) {
	var m model.OrderMapping
	err := r.db.WithContext(ctx).First(&m, "gateway_order_id = ?", gatewayOrderId).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.MappingToEntity(&m), nil
}

func (r *OrderRepositoryImpl) CreateOrder(ctx context.Context, order *entity.Order) error {
	m := r.mapper.OrderToModel(order)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*order = *r.mapper.OrderToEntity(m)
	return nil
}

func (r *OrderRepositoryImpl) UpdateOrder(ctx context.Context, order *entity.Order) error {
	m := r.mapper.OrderToModel(order)
	if err := r.db.WithContext(ctx).Save(m).Error; err != nil {
		return err
	}
	*order = *r.mapper.OrderToEntity(m)
	return nil
}

func (r *OrderRepositoryImpl) FindOrder(ctx context.Context, id string) (*entity.Order, error) {
	var m model.Order
	err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.OrderToEntity(&m), nil
}

func (r *OrderRepositoryImpl) FindOrderByPaymentID(ctx context.Context, paymentId string, limit int) (*entity.Order, error) {
	var models []*model.Order
	err := r.db.WithContext(ctx).
		Where("payment_id = ?", paymentId).
		Order("created_at DESC").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	if len(models) == 0 {
		return nil, nil
	}
	return r.mapper.OrderToEntity(models[0]), nil
}

func (r *OrderRepositoryImpl) FindLatestOrderByEmail(ctx context.Context, email string) (*entity.Order, error) {
	var m model.Order
	err := r.db.WithContext(ctx).
		Where("email = ?", email).
		Order("created_at DESC").
		First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.OrderToEntity(&m), nil
}

func (r *OrderRepositoryImpl) CreateChargeAttempt(ctx context.Context, attempt *entity.ChargeAttempt) error {
	m := r.mapper.AttemptToModel(attempt)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*attempt = *r.mapper.AttemptToEntity(m)
	return nil
}
