package controller

import (
	"github.com/gofiber/fiber/v2"

	"tbank-billing-be/internal/pkg/logger"
	"tbank-billing-be/internal/service"
)

type IWebhookController interface {
	RegisterRoutes(r fiber.Router)
	Notification(ctx *fiber.Ctx) error
}

type webhookController struct {
	publisher service.IPublisherService
	log       logger.ILogger
}

func NewWebhookController(publisher service.IPublisherService, log logger.ILogger) IWebhookController {
	return &webhookController{publisher: publisher, log: log}
}

func (c *webhookController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/payment")
	h.Post("/tbank/notification", c.Notification)
}

// Notification acknowledges every delivery with 200 before any processing
// happens. The gateway treats non-200 as a failure and retries on its own
// schedule; our failures are handled internally and must never leak back as
// status codes.
func (c *webhookController) Notification(ctx *fiber.Ctx) error {
	body := make([]byte, len(ctx.Body()))
	copy(body, ctx.Body())

	if err := c.publisher.PublishNotification(ctx.Context(), body); err != nil {
		c.log.Error("webhook", "failed to enqueue notification, payload dropped", map[string]interface{}{
			"error": err.Error(),
			"body":  string(body),
		})
	}

	return ctx.Status(fiber.StatusOK).JSON(fiber.Map{"success": true})
}
