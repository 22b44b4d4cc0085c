package controller

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"tbank-billing-be/internal/dto"
	"tbank-billing-be/internal/pkg/serverutils"
	"tbank-billing-be/internal/service"
)

type IBillingController interface {
	RegisterRoutes(r fiber.Router, authMiddleware fiber.Handler)
	GetSubscription(ctx *fiber.Ctx) error
	ListActive(ctx *fiber.Ctx) error
	CancelSubscription(ctx *fiber.Ctx) error
	ForceCharge(ctx *fiber.Ctx) error
	GetChargeState(ctx *fiber.Ctx) error
}

type billingController struct {
	subscriptionService service.ISubscriptionService
	chargeService       service.IChargeService
}

func NewBillingController(subscriptionService service.ISubscriptionService, chargeService service.IChargeService) IBillingController {
	return &billingController{
		subscriptionService: subscriptionService,
		chargeService:       chargeService,
	}
}

func (c *billingController) RegisterRoutes(r fiber.Router, authMiddleware fiber.Handler) {
	h := r.Group("/billing", authMiddleware)
	h.Get("/subscriptions/active", c.ListActive)
	h.Get("/subscription/:userId", c.GetSubscription)
	h.Post("/subscription/cancel", c.CancelSubscription)
	h.Post("/charge", c.ForceCharge)
	h.Get("/charge/:paymentId/state", c.GetChargeState)
}

func (c *billingController) GetSubscription(ctx *fiber.Ctx) error {
	userId := ctx.Params("userId")
	if userId == "" {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, "userId is required"))
	}

	res, err := c.subscriptionService.GetByUser(ctx.Context(), userId)
	if err != nil {
		if errors.Is(err, service.ErrSubscriptionNotFound) {
			return ctx.Status(fiber.StatusNotFound).JSON(serverutils.ErrorResponse(404, "subscription not found"))
		}
		return ctx.Status(fiber.StatusInternalServerError).JSON(serverutils.ErrorResponse(500, err.Error()))
	}
	return ctx.JSON(serverutils.SuccessResponse("Subscription", res))
}

func (c *billingController) ListActive(ctx *fiber.Ctx) error {
	res, err := c.subscriptionService.ListActive(ctx.Context())
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(serverutils.ErrorResponse(500, err.Error()))
	}
	return ctx.JSON(serverutils.SuccessResponse("Active subscriptions", res))
}

func (c *billingController) CancelSubscription(ctx *fiber.Ctx) error {
	var req dto.CancelSubscriptionRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	subscriptionId, err := uuid.Parse(req.SubscriptionId)
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, "invalid subscription_id format"))
	}

	if err := c.subscriptionService.Cancel(ctx.Context(), req.UserId, subscriptionId); err != nil {
		if errors.Is(err, service.ErrSubscriptionNotFound) {
			return ctx.Status(fiber.StatusNotFound).JSON(serverutils.ErrorResponse(404, "subscription not found"))
		}
		return ctx.Status(fiber.StatusInternalServerError).JSON(serverutils.ErrorResponse(500, err.Error()))
	}
	return ctx.JSON(serverutils.SuccessResponse[any]("Subscription cancelled", nil))
}

func (c *billingController) ForceCharge(ctx *fiber.Ctx) error {
	var req dto.ForceChargeRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.subscriptionService.ForceCharge(ctx.Context(), req.UserId)
	if err != nil {
		var gwErr *service.GatewayError
		switch {
		case errors.Is(err, service.ErrNoActiveSubscription):
			return ctx.Status(fiber.StatusNotFound).JSON(serverutils.ErrorResponse(404, "no active subscription"))
		case errors.As(err, &gwErr):
			return ctx.Status(fiber.StatusBadGateway).JSON(serverutils.ErrorResponse(502, gwErr.Error()))
		default:
			return ctx.Status(fiber.StatusInternalServerError).JSON(serverutils.ErrorResponse(500, err.Error()))
		}
	}
	return ctx.JSON(serverutils.SuccessResponse("Charge executed", res))
}

func (c *billingController) GetChargeState(ctx *fiber.Ctx) error {
	paymentId := ctx.Params("paymentId")
	if paymentId == "" {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, "paymentId is required"))
	}

	res, err := c.chargeService.GetChargeState(ctx.Context(), paymentId)
	if err != nil {
		return ctx.Status(fiber.StatusBadGateway).JSON(serverutils.ErrorResponse(502, err.Error()))
	}
	return ctx.JSON(serverutils.SuccessResponse("Charge state", res))
}
