package bootstrap

import (
	"context"
	"log"

	"tbank-billing-be/internal/config"
	"tbank-billing-be/internal/controller"
	"tbank-billing-be/internal/pkg/logger"
	"tbank-billing-be/internal/repository/unitofwork"
	"tbank-billing-be/internal/service"
	pktNats "tbank-billing-be/pkg/nats"
	"tbank-billing-be/pkg/tbank"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	// Controllers
	WebhookController controller.IWebhookController
	BillingController controller.IBillingController

	// Background Services (Exposed for main.go to run)
	ConsumerService  service.IConsumerService
	SchedulerService service.ISchedulerService
}

func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	// 1. Core Facades
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")

	// Webhook traffic gets its own file so payment reconciliation can be
	// audited without digging through application noise.
	webhookLogger := logger.NewIsolatedLogger(cfg.App.WebhookLogFilePath)

	// 2. Event Bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermillLogger,
	)

	// 2.5 Infrastructure
	// NATS
	natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
	}

	// Redis
	opt, err := redis.ParseURL(cfg.App.RedisURL)
	if err != nil {
		log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
		opt = &redis.Options{
			Addr: cfg.App.RedisURL,
		}
	}
	rdb := redis.NewClient(opt)
	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		log.Printf("[WARN] Failed to connect to Redis: %v", err)
	}

	uowFactory := unitofwork.NewRepositoryFactory(db, rdb)

	// Payment gateway client
	gateway := tbank.NewClient(cfg.TBank.TerminalKey, cfg.TBank.SecretKey, cfg.TBank.APIURL)

	// 3. Services
	var eventPublisher service.EventPublisher
	if natsPub != nil {
		eventPublisher = natsPub
	}

	orderResolver := service.NewOrderResolverService(uowFactory, webhookLogger, cfg.Billing.PaymentIDScanLimit)
	chargeService := service.NewChargeService(uowFactory, gateway, eventPublisher, cfg, sysLogger)
	schedulerService := service.NewSchedulerService(uowFactory, chargeService, sysLogger)
	subscriptionService := service.NewSubscriptionService(uowFactory, schedulerService, chargeService, eventPublisher, cfg, sysLogger)
	webhookService := service.NewWebhookService(uowFactory, orderResolver, subscriptionService, webhookLogger)

	publisherService := service.NewPublisherService(pubSub, cfg.Billing.WebhookTopic, webhookLogger)
	consumerService := service.NewConsumerService(pubSub, cfg.Billing.WebhookTopic, webhookService, webhookLogger)

	// 4. Controllers
	webhookController := controller.NewWebhookController(publisherService, webhookLogger)
	billingController := controller.NewBillingController(subscriptionService, chargeService)

	return &Container{
		WebhookController: webhookController,
		BillingController: billingController,
		ConsumerService:   consumerService,
		SchedulerService:  schedulerService,
	}
}
