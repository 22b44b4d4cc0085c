package implementation

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"tbank-billing-be/internal/entity"
	"tbank-billing-be/internal/mapper"
	"tbank-billing-be/internal/model"
	"tbank-billing-be/internal/repository/contract"
	"tbank-billing-be/internal/repository/specification"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SubscriptionRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.SubscriptionMapper
}

func NewSubscriptionRepository(db *gorm.DB) contract.SubscriptionRepository {
	return &SubscriptionRepositoryImpl{
		db:     db,
		mapper: mapper.NewSubscriptionMapper(),
	}
}

func (r *SubscriptionRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *SubscriptionRepositoryImpl) Create(ctx context.Context, sub *entity.Subscription) error {
	m := r.mapper.ToModel(sub)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*sub = *r.mapper.ToEntity(m)
	return nil
}

func (r *SubscriptionRepositoryImpl) Update(ctx context.Context, sub *entity.Subscription) error {
	m := r.mapper.ToModel(sub)
	if err := r.db.WithContext(ctx).Save(m).Error; err != nil {
		return err
	}
	*sub = *r.mapper.ToEntity(m)
	return nil
}

func (r *SubscriptionRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Subscription, error) {
	var m model.Subscription
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToEntity(&m), nil
}

func (r *SubscriptionRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Subscription, error) {
	var models []*model.Subscription
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	entities := make([]*entity.Subscription, len(models))
	for i, m := range models {
		entities[i] = r.mapper.ToEntity(m)
	}
	return entities, nil
}

func (r *SubscriptionRepositoryImpl) AppendPayment(ctx context.Context, id uuid.UUID, rec entity.PaymentRecord) (bool, error) {
	appended := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var m model.Subscription
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&m, "id = ?", id).Error; err != nil {
			return err
		}

		var history []entity.PaymentRecord
		if len(m.PaymentHistory) > 0 {
			if err := json.Unmarshal(m.PaymentHistory, &history); err != nil {
				return err
			}
		}
		for _, existing := range history {
			if existing.PaymentId == rec.PaymentId {
				return nil // replayed payment, keep the ledger as is
			}
		}

		history = append(history, rec)
		raw, err := json.Marshal(history)
		if err != nil {
			return err
		}
		if err := tx.Model(&model.Subscription{}).Where("id = ?", id).
			Update("payment_history", datatypes.JSON(raw)).Error; err != nil {
			return err
		}
		appended = true
		return nil
	})
	return appended, err
}

func (r *SubscriptionRepositoryImpl) AppendFailure(ctx context.Context, id uuid.UUID, rec entity.FailureRecord) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var m model.Subscription
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&m, "id = ?", id).Error; err != nil {
			return err
		}

		var failures []entity.FailureRecord
		if len(m.PaymentFailures) > 0 {
			if err := json.Unmarshal(m.PaymentFailures, &failures); err != nil {
				return err
			}
		}
		failures = append(failures, rec)
		raw, err := json.Marshal(failures)
		if err != nil {
			return err
		}
		return tx.Model(&model.Subscription{}).Where("id = ?", id).
			Update("payment_failures", datatypes.JSON(raw)).Error
	})
}

func (r *SubscriptionRepositoryImpl) IncrementTotalPaid(ctx context.Context, id uuid.UUID, amount int64) error {
	return r.db.WithContext(ctx).Model(&model.Subscription{}).Where("id = ?", id).
		UpdateColumn("total_paid", gorm.Expr("total_paid + ?", amount)).Error
}

func (r *SubscriptionRepositoryImpl) UpdateStatus(ctx context.Context, id uuid.UUID, status entity.SubscriptionStatus, reason string) error {
	updates := map[string]interface{}{
		"status": string(status),
	}
	if reason != "" {
		updates["cancellation_reason"] = reason
	}
	if status == entity.SubscriptionStatusCancelled || status == entity.SubscriptionStatusCancelledBySystem {
		now := time.Now()
		updates["cancelled_at"] = &now
	}
	return r.db.WithContext(ctx).Model(&model.Subscription{}).Where("id = ?", id).
		Updates(updates).Error
}

func (r *SubscriptionRepositoryImpl) AdvanceBillingCycle(ctx context.Context, id uuid.UUID, next time.Time, paidAt time.Time) error {
	return r.db.WithContext(ctx).Model(&model.Subscription{}).Where("id = ?", id).
		Updates(map[string]interface{}{
			"next_payment_date":       next,
			"last_successful_payment": paidAt,
		}).Error
}
