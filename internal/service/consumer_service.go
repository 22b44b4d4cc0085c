package service

import (
	"context"

	"github.com/ThreeDotsLabs/watermill/message"

	"tbank-billing-be/internal/pkg/logger"
)

type IConsumerService interface {
	// Start subscribes to the notification topic and processes deliveries
	// until the context is cancelled.
	Start(ctx context.Context) error
}

// ConsumerService is the deferred half of webhook handling. Messages are
// always acked: the gateway was answered long ago and redelivering a payload
// that already failed deterministically would just loop.
type ConsumerService struct {
	subscriber     message.Subscriber
	topic          string
	webhookService IWebhookService
	log            logger.ILogger
}

func NewConsumerService(subscriber message.Subscriber, topic string, webhookService IWebhookService, log logger.ILogger) IConsumerService {
	return &ConsumerService{
		subscriber:     subscriber,
		topic:          topic,
		webhookService: webhookService,
		log:            log,
	}
}

func (s *ConsumerService) Start(ctx context.Context) error {
	messages, err := s.subscriber.Subscribe(ctx, s.topic)
	if err != nil {
		return err
	}

	s.log.Info("consumer", "notification consumer started", map[string]interface{}{
		"topic": s.topic,
	})

	for msg := range messages {
		s.handle(msg)
	}
	return nil
}

func (s *ConsumerService) handle(msg *message.Message) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("consumer", "panic while processing notification", map[string]interface{}{
				"message_id": msg.UUID,
				"panic":      r,
			})
		}
		msg.Ack()
	}()

	if err := s.webhookService.Process(msg.Context(), msg.Payload); err != nil {
		s.log.Error("consumer", "notification processing failed", map[string]interface{}{
			"message_id": msg.UUID,
			"error":      err.Error(),
		})
	}
}
