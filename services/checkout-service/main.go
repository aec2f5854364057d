package main

import (
	"context"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	aws_pkg "github.com/yashrajoria/storefront-checkout/pkg/aws"
	"github.com/yashrajoria/storefront-checkout/services/checkout-service/config"
	"github.com/yashrajoria/storefront-checkout/services/checkout-service/controllers"
	"github.com/yashrajoria/storefront-checkout/services/checkout-service/database"
	"github.com/yashrajoria/storefront-checkout/services/checkout-service/repository"
	"github.com/yashrajoria/storefront-checkout/services/checkout-service/routes"
	servicepkg "github.com/yashrajoria/storefront-checkout/services/checkout-service/services"
	"github.com/yashrajoria/storefront-checkout/services/common/auth"
	apperrors "github.com/yashrajoria/storefront-checkout/services/common/errors"
	"github.com/yashrajoria/storefront-checkout/services/common/logger"
	"github.com/yashrajoria/storefront-checkout/services/common/middleware"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const serviceName = "checkout-service"

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// AWS clients
	awsCfg, awsErr := aws_pkg.LoadAWSConfig(ctx)

	var cwLogs io.Writer
	if awsErr == nil && cfg.CloudWatchEnabled {
		if w, err := aws_pkg.NewCloudWatchLogsClient(ctx, awsCfg, cfg.CloudWatchLogGroup, serviceName); err != nil {
			log.Printf("CloudWatch Logs unavailable, logging to stdout only: %v", err)
		} else {
			cwLogs = w
		}
	}

	zapLogger, err := logger.New(cfg.AppEnv, cwLogs)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer zapLogger.Sync() //nolint:errcheck

	if awsErr != nil {
		zapLogger.Warn("AWS config unavailable, SNS/SQS/CloudWatch disabled", zap.Error(awsErr))
	}

	db, err := database.ConnectPostgres(ctx, cfg.PostgresDSN(), zapLogger)
	if err != nil {
		zapLogger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer database.Close(db) //nolint:errcheck

	rdb, err := database.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		zapLogger.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer rdb.Close() //nolint:errcheck

	var snsClient aws_pkg.SNSPublisher
	if awsErr == nil {
		snsClient = aws_pkg.NewSNSClient(awsCfg)
	}
	metrics := aws_pkg.NewMetricsClient(awsCfg, cfg.CloudWatchNamespace, cfg.CloudWatchEnabled && awsErr == nil)

	// Repositories
	products := repository.NewGormProductRepository(db)
	carts := repository.NewGormCartRepository(db)
	orders := repository.NewGormOrderRepository(db)
	discrepancies := repository.NewGormDiscrepancyRepository(db)
	snapshots := repository.NewRedisSnapshotStore(rdb, cfg.SnapshotTTL)
	processed := repository.NewRedisEventCache(rdb, cfg.ProcessedEventTTL)

	// Provider and DI chain
	stripeClient := servicepkg.NewStripeClient(servicepkg.StripeConfig{
		SecretKey: cfg.StripeSecretKey,
		APIURL:    cfg.StripeAPIURL,
		Timeout:   cfg.ProviderTimeout,
	}, zapLogger)

	checkoutService := servicepkg.NewCheckoutService(carts, products, snapshots, stripeClient, servicepkg.CheckoutOptions{
		Currency:         cfg.Currency,
		SuccessURL:       cfg.FrontendURL + "/checkout/success?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:        cfg.FrontendURL + "/cart",
		AllowedCountries: cfg.AllowedShippingCountries,
	}, metrics, zapLogger)

	publisher := servicepkg.NewOrderEventPublisher(snsClient, cfg.OrderSNSTopicARN)
	reconciler := servicepkg.NewReconciler(orders, carts, products, snapshots, publisher, cfg.Currency, metrics, zapLogger)
	processor := servicepkg.NewEventProcessor(reconciler, processed, metrics, zapLogger)
	webhookService := servicepkg.NewWebhookService(
		servicepkg.NewStripeWebhookVerifier(cfg.StripeWebhookKey),
		processor,
		cfg.ReconcileTimeout,
		metrics,
		zapLogger,
	)

	handlers := routes.Controllers{
		Checkout: controllers.NewCheckoutController(checkoutService, servicepkg.NewSessionStatusService(stripeClient, zapLogger)),
		Webhook:  controllers.NewWebhookController(webhookService, zapLogger),
		Cart:     controllers.NewCartController(servicepkg.NewCartService(carts, products, cfg.Currency, zapLogger)),
		Order:    controllers.NewOrderController(servicepkg.NewOrderService(orders, discrepancies, zapLogger)),
	}

	if cfg.AppEnv == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	controllers.RegisterValidators()
	r := gin.New()
	r.Use(
		gin.Recovery(),
		logger.RequestID(),
		middleware.RequestLogger(zapLogger),
		middleware.SecurityHeaders(),
		middleware.CORSMiddleware(middleware.ParseOrigins(cfg.AllowedOrigins)),
		middleware.MetricsMiddleware(metrics, serviceName),
		apperrors.ErrorMiddleware(),
	)

	// 30-second request timeout
	r.Use(func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 30*time.Second)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	})

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "service": serviceName})
	})

	// Five session creations a minute per client, burst of five.
	checkoutLimiter := middleware.NewRateLimiter(ctx, rate.Every(12*time.Second), 5, 10*time.Minute)
	routes.RegisterCheckoutRoutes(r, handlers, auth.NewVerifier(cfg.JWTSecret), checkoutLimiter, zapLogger)

	if cfg.ProviderEventsQueueURL != "" && awsErr == nil {
		consumer := servicepkg.NewProviderEventConsumer(
			aws_pkg.NewSQSConsumer(awsCfg, cfg.ProviderEventsQueueURL, zapLogger),
			processor,
			metrics,
			zapLogger,
		)
		go func() {
			if err := consumer.Start(ctx); err != nil && ctx.Err() == nil {
				zapLogger.Error("provider event consumer stopped", zap.Error(err))
			}
		}()
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLogger.Fatal("Server failed", zap.Error(err))
		}
	}()

	zapLogger.Info("Checkout service started", zap.String("port", cfg.Port))
	<-quit
	zapLogger.Info("Shutting down checkout service...")
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLogger.Fatal("Server forced to shutdown", zap.Error(err))
	}
	zapLogger.Info("Server exited cleanly")
}
