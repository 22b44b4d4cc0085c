package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type Subscription struct {
	Id                    uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UserId                string    `gorm:"type:varchar(64);not null;index"`
	RebillToken           string    `gorm:"type:varchar(128);not null"`
	CardId                string    `gorm:"type:varchar(64)"`
	CardLastDigits        string    `gorm:"type:varchar(4)"`
	Status                string    `gorm:"type:varchar(32);not null;index"`
	Amount                int64     `gorm:"not null"`
	InitialPaymentDate    time.Time `gorm:"not null"`
	NextPaymentDate       time.Time `gorm:"not null"`
	LastSuccessfulPayment *time.Time
	TotalPaid             int64          `gorm:"not null;default:0"`
	PaymentHistory        datatypes.JSON `gorm:"type:jsonb"`
	PaymentFailures       datatypes.JSON `gorm:"type:jsonb"`
	CancellationReason    string         `gorm:"type:varchar(64)"`
	CancelledAt           *time.Time
	CreatedAt             time.Time `gorm:"autoCreateTime"`
	UpdatedAt             time.Time `gorm:"autoUpdateTime"`
}

func (Subscription) TableName() string {
	return "subscriptions"
}
