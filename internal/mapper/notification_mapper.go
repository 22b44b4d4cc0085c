package mapper

import (
	"encoding/json"

	"tbank-billing-be/internal/entity"
	"tbank-billing-be/internal/model"

	"gorm.io/datatypes"
)

type NotificationMapper struct{}

func NewNotificationMapper() *NotificationMapper {
	return &NotificationMapper{}
}

func payloadToJSON(payload map[string]interface{}) datatypes.JSON {
	if payload == nil {
		return nil
	}
	raw, _ := json.Marshal(payload)
	return datatypes.JSON(raw)
}

func jsonToPayload(raw datatypes.JSON) map[string]interface{} {
	if len(raw) == 0 {
		return nil
	}
	var payload map[string]interface{}
	_ = json.Unmarshal(raw, &payload)
	return payload
}

func (m *NotificationMapper) ProcessedToEntity(n *model.ProcessedNotification) *entity.ProcessedNotification {
	if n == nil {
		return nil
	}
	return &entity.ProcessedNotification{
		Key:         n.Key,
		ProcessedAt: n.ProcessedAt,
		Payload:     jsonToPayload(n.Payload),
	}
}

func (m *NotificationMapper) ProcessedToModel(n *entity.ProcessedNotification) *model.ProcessedNotification {
	if n == nil {
		return nil
	}
	return &model.ProcessedNotification{
		Key:         n.Key,
		ProcessedAt: n.ProcessedAt,
		Payload:     payloadToJSON(n.Payload),
	}
}

func (m *NotificationMapper) PendingToEntity(n *model.PendingNotification) *entity.PendingNotification {
	if n == nil {
		return nil
	}
	return &entity.PendingNotification{
		Id:         n.Id,
		Reason:     n.Reason,
		Payload:    jsonToPayload(n.Payload),
		ReceivedAt: n.ReceivedAt,
	}
}

func (m *NotificationMapper) PendingToModel(n *entity.PendingNotification) *model.PendingNotification {
	if n == nil {
		return nil
	}
	return &model.PendingNotification{
		Id:         n.Id,
		Reason:     n.Reason,
		Payload:    payloadToJSON(n.Payload),
		ReceivedAt: n.ReceivedAt,
	}
}

func (m *NotificationMapper) ErrorToModel(e *entity.WebhookErrorRecord) *model.WebhookErrorRecord {
	if e == nil {
		return nil
	}
	return &model.WebhookErrorRecord{
		Id:        e.Id,
		Stage:     e.Stage,
		Error:     e.Error,
		Payload:   payloadToJSON(e.Payload),
		CreatedAt: e.CreatedAt,
	}
}
