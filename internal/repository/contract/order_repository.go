package contract

import (
	"context"

	"tbank-billing-be/internal/entity"
)

type OrderRepository interface {
	SaveMapping(ctx context.Context, mapping *entity.OrderMapping) error
	FindMappingByGatewayOrderID(ctx context.Context, gatewayOrderId string) (*entity.OrderMapping, error)

	CreateOrder(ctx context.Context, order *entity.Order) error
	UpdateOrder(ctx context.Context, order *entity.Order) error
	FindOrder(ctx context.Context, id string) (*entity.Order, error)

	// FindOrderByPaymentID scans recent orders for a matching gateway payment
	// id. The scan is bounded; callers accept that very old orders are not
	// found this way.
	FindOrderByPaymentID(ctx context.Context, paymentId string, limit int) (*entity.Order, error)

	// FindLatestOrderByEmail is the last-resort routing fallback for rebill
	// notifications that carry only a customer email.
	FindLatestOrderByEmail(ctx context.Context, email string) (*entity.Order, error)

	CreateChargeAttempt(ctx context.Context, attempt *entity.ChargeAttempt) error
}
