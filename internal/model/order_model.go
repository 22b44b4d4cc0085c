package model

import (
	"time"

	"github.com/google/uuid"
)

type OrderMapping struct {
	GatewayOrderId  string    `gorm:"type:varchar(64);primaryKey"`
	UserId          string    `gorm:"type:varchar(64);not null"`
	InternalOrderId string    `gorm:"type:varchar(64);not null"`
	CreatedAt       time.Time `gorm:"autoCreateTime"`
}

func (OrderMapping) TableName() string {
	return "order_mappings"
}

type Order struct {
	Id             string `gorm:"type:varchar(64);primaryKey"`
	UserId         string `gorm:"type:varchar(64);not null;index"`
	Email          string `gorm:"type:varchar(255);index"`
	Type           string `gorm:"type:varchar(32)"`
	Amount         int64  `gorm:"not null;default:0"`
	PaymentId      string `gorm:"type:varchar(64);index"`
	RebillId       string `gorm:"type:varchar(128)"`
	CardId         string `gorm:"type:varchar(64)"`
	CardLastDigits string `gorm:"type:varchar(4)"`
	Status         string `gorm:"type:varchar(32)"`
	Success        bool   `gorm:"not null;default:false"`
	PaidAt         *time.Time
	CreatedAt      time.Time `gorm:"autoCreateTime"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime"`
}

func (Order) TableName() string {
	return "orders"
}

type ChargeAttempt struct {
	Id             uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	OrderId        string    `gorm:"type:varchar(64);not null;index"`
	PaymentId      string    `gorm:"type:varchar(64);index"`
	RebillId       string    `gorm:"type:varchar(128)"`
	Amount         int64     `gorm:"not null"`
	Status         string    `gorm:"type:varchar(32)"`
	Success        bool      `gorm:"not null;default:false"`
	SubscriptionId uuid.UUID `gorm:"type:uuid;index"`
	Kind           string    `gorm:"type:varchar(32);not null"`
	FinishedAt     time.Time `gorm:"not null"`
}

func (ChargeAttempt) TableName() string {
	return "charge_attempts"
}
