package implementation

import (
	"context"
	"time"

	"tbank-billing-be/internal/entity"
	"tbank-billing-be/internal/mapper"
	"tbank-billing-be/internal/repository/contract"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const processedKeyTTL = 72 * time.Hour

type NotificationRepositoryImpl struct {
	db     *gorm.DB
	rdb    *redis.Client
	mapper *mapper.NotificationMapper
}

// NewNotificationRepository builds the event store. The redis client is an
// optional fast path for the existence check; postgres' unique key on the
// notification key is the authoritative gate. Pass nil to skip redis.
func NewNotificationRepository(db *gorm.DB, rdb *redis.Client) contract.NotificationRepository {
	return &NotificationRepositoryImpl{
		db:     db,
		rdb:    rdb,
		mapper: mapper.NewNotificationMapper(),
	}
}

func (r *NotificationRepositoryImpl) CreateProcessed(ctx context.Context, notification *entity.ProcessedNotification) (bool, error) {
	if r.rdb != nil {
		// Cheap pre-check; redis being down must never block processing.
		exists, err := r.rdb.Exists(ctx, "processed:"+notification.Key).Result()
		if err == nil && exists > 0 {
			return false, nil
		}
	}

	m := r.mapper.ProcessedToModel(notification)
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(m)
	if res.Error != nil {
		return false, res.Error
	}
	created := res.RowsAffected > 0

	if created && r.rdb != nil {
		_ = r.rdb.Set(ctx, "processed:"+notification.Key, 1, processedKeyTTL).Err()
	}
	return created, nil
}

func (r *NotificationRepositoryImpl) CreatePending(ctx context.Context, notification *entity.PendingNotification) error {
	m := r.mapper.PendingToModel(notification)
	return r.db.WithContext(ctx).Create(m).Error
}

func (r *NotificationRepositoryImpl) CreateErrorRecord(ctx context.Context, record *entity.WebhookErrorRecord) error {
	m := r.mapper.ErrorToModel(record)
	return r.db.WithContext(ctx).Create(m).Error
}
