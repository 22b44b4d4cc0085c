package service

import (
	"context"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"

	"tbank-billing-be/internal/pkg/logger"
)

type IPublisherService interface {
	// PublishNotification hands a raw webhook body to the in-process queue.
	// Called after the HTTP ack has been decided, so the delivery contract
	// toward the gateway does not depend on this succeeding.
	PublishNotification(ctx context.Context, body []byte) error
}

type PublisherService struct {
	publisher message.Publisher
	topic     string
	log       logger.ILogger
}

func NewPublisherService(publisher message.Publisher, topic string, log logger.ILogger) IPublisherService {
	return &PublisherService{
		publisher: publisher,
		topic:     topic,
		log:       log,
	}
}

func (s *PublisherService) PublishNotification(ctx context.Context, body []byte) error {
	// The request context is not attached: fasthttp recycles it as soon as
	// the handler returns, while this message outlives the request.
	msg := message.NewMessage(watermill.NewUUID(), body)

	if err := s.publisher.Publish(s.topic, msg); err != nil {
		s.log.Error("publisher", "failed to enqueue notification", map[string]interface{}{
			"topic": s.topic,
			"error": err.Error(),
		})
		return err
	}
	return nil
}
