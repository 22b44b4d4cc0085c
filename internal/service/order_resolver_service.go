package service

import (
	"context"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"

	"tbank-billing-be/internal/entity"
	"tbank-billing-be/internal/pkg/logger"
	"tbank-billing-be/internal/repository/unitofwork"
)

// ResolvedOrder is the routing result for an incoming gateway notification.
type ResolvedOrder struct {
	UserId          string
	InternalOrderId string
}

type IOrderResolverService interface {
	// Resolve maps a gateway order id to its owner. A nil result with a nil
	// error means the mapping is unknown, which is a valid outcome for
	// notifications produced outside this system.
	Resolve(ctx context.Context, gatewayOrderId string) (*ResolvedOrder, error)
	// ResolveByPaymentID scans recent orders for one carrying the payment id.
	ResolveByPaymentID(ctx context.Context, paymentId string) (*ResolvedOrder, error)
	// ResolveByEmail falls back to the most recent order created for an email.
	ResolveByEmail(ctx context.Context, email string) (*ResolvedOrder, error)
	// Record persists a gateway-order-id mapping. Failures are logged and
	// swallowed so a broken mapping write never blocks notification handling.
	Record(ctx context.Context, gatewayOrderId, userId, internalOrderId string)
}

type OrderResolverService struct {
	uowFactory    unitofwork.RepositoryFactory
	log           logger.ILogger
	cache         *cache.Cache
	paymentIdScan int
}

func NewOrderResolverService(uowFactory unitofwork.RepositoryFactory, log logger.ILogger, paymentIdScanLimit int) IOrderResolverService {
	return &OrderResolverService{
		uowFactory:    uowFactory,
		log:           log,
		cache:         cache.New(10*time.Minute, 15*time.Minute),
		paymentIdScan: paymentIdScanLimit,
	}
}

func (s *OrderResolverService) Resolve(ctx context.Context, gatewayOrderId string) (*ResolvedOrder, error) {
	if gatewayOrderId == "" {
		return nil, nil
	}
	if cached, found := s.cache.Get(gatewayOrderId); found {
		resolved := cached.(ResolvedOrder)
		return &resolved, nil
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	mapping, err := uow.OrderRepository().FindMappingByGatewayOrderID(ctx, gatewayOrderId)
	if err != nil {
		return nil, fmt.Errorf("find order mapping: %w", err)
	}
	if mapping == nil {
		return nil, nil
	}

	resolved := ResolvedOrder{UserId: mapping.UserId, InternalOrderId: mapping.InternalOrderId}
	s.cache.Set(gatewayOrderId, resolved, cache.DefaultExpiration)
	return &resolved, nil
}

func (s *OrderResolverService) ResolveByPaymentID(ctx context.Context, paymentId string) (*ResolvedOrder, error) {
	if paymentId == "" {
		return nil, nil
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	order, err := uow.OrderRepository().FindOrderByPaymentID(ctx, paymentId, s.paymentIdScan)
	if err != nil {
		return nil, fmt.Errorf("scan orders by payment id: %w", err)
	}
	if order == nil {
		return nil, nil
	}
	return &ResolvedOrder{UserId: order.UserId, InternalOrderId: order.Id}, nil
}

func (s *OrderResolverService) ResolveByEmail(ctx context.Context, email string) (*ResolvedOrder, error) {
	if email == "" {
		return nil, nil
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	order, err := uow.OrderRepository().FindLatestOrderByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("find latest order by email: %w", err)
	}
	if order == nil {
		return nil, nil
	}
	return &ResolvedOrder{UserId: order.UserId, InternalOrderId: order.Id}, nil
}

func (s *OrderResolverService) Record(ctx context.Context, gatewayOrderId, userId, internalOrderId string) {
	if gatewayOrderId == "" || userId == "" {
		return
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	mapping := &entity.OrderMapping{
		GatewayOrderId:  gatewayOrderId,
		UserId:          userId,
		InternalOrderId: internalOrderId,
		CreatedAt:       time.Now(),
	}
	if err := uow.OrderRepository().SaveMapping(ctx, mapping); err != nil {
		s.log.Warn("order_resolver", "failed to record order mapping", map[string]interface{}{
			"gateway_order_id": gatewayOrderId,
			"user_id":          userId,
			"error":            err.Error(),
		})
		return
	}
	s.cache.Set(gatewayOrderId, ResolvedOrder{UserId: userId, InternalOrderId: internalOrderId}, cache.DefaultExpiration)
}
