package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type ProcessedNotification struct {
	Key         string         `gorm:"type:varchar(160);primaryKey"`
	ProcessedAt time.Time      `gorm:"autoCreateTime"`
	Payload     datatypes.JSON `gorm:"type:jsonb"`
}

func (ProcessedNotification) TableName() string {
	return "processed_notifications"
}

type PendingNotification struct {
	Id         uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Reason     string         `gorm:"type:varchar(64);not null"`
	Payload    datatypes.JSON `gorm:"type:jsonb"`
	ReceivedAt time.Time      `gorm:"autoCreateTime"`
}

func (PendingNotification) TableName() string {
	return "pending_notifications"
}

type WebhookErrorRecord struct {
	Id        uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Stage     string         `gorm:"type:varchar(64);not null"`
	Error     string         `gorm:"type:text"`
	Payload   datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt time.Time      `gorm:"autoCreateTime"`
}

func (WebhookErrorRecord) TableName() string {
	return "webhook_errors"
}
