package app

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	healthcheck "github.com/vladislavdragonenkov/dop/internal/health"
	"github.com/vladislavdragonenkov/dop/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/dop/internal/metrics"
	"github.com/vladislavdragonenkov/dop/internal/service/idempotency"
	"github.com/vladislavdragonenkov/dop/internal/service/order"
	"github.com/vladislavdragonenkov/dop/internal/service/outbox"
	transport "github.com/vladislavdragonenkov/dop/internal/transport/http"
	"github.com/vladislavdragonenkov/dop/internal/version"
)

// Run собирает приложение и блокируется до отмены контекста
// или фатальной ошибки сервера.
func Run(ctx context.Context, cfg Config) error {
	logger := log.WithField("component", "app")

	deps, err := NewDependencies(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := deps.Close(); err != nil {
			logger.WithError(err).Warn("Failed to close storage")
		}
	}()

	kafkaProducer, err := initKafkaProducer(cfg.KafkaBrokers, logger)
	if err != nil {
		// Событийный контур не критичен для приёма заказов: события
		// копятся в outbox и будут опубликованы после восстановления.
		logger.WithError(err).Warn("Failed to create kafka producer, continuing without kafka")
	}
	defer closeKafka(kafkaProducer, logger)

	tokens, err := ParseAuthTokens(cfg.AuthTokens)
	if err != nil {
		return err
	}

	orderMetrics := metrics.NewOrderMetrics()
	orderService := order.NewService(deps.Store, deps.AuditRepo, orderMetrics, logger)

	router := transport.NewRouter(transport.RouterConfig{
		Orders:         transport.NewOrderHandler(orderService, logger),
		Resolver:       transport.NewStaticTokenResolver(tokens),
		Idempotency:    deps.IdempotencyRepo,
		IdempotencyTTL: cfg.IdempotencyTTL,
		Logger:         logger,
	})

	var wg sync.WaitGroup
	workersCtx, stopWorkers := context.WithCancel(context.Background())
	defer stopWorkers()

	if kafkaProducer != nil {
		worker := outbox.NewWorker(
			deps.OutboxRepo,
			kafka.NewOutboxPublisher(kafkaProducer, kafka.TopicOrderEvents),
			outbox.WithLogger(logger),
			outbox.WithDLQPublisher(kafka.NewOutboxPublisher(kafkaProducer, kafka.TopicDeadLetterQueue)),
			outbox.WithPollInterval(cfg.OutboxPollInterval),
			outbox.WithBatchSize(cfg.OutboxBatchSize),
			outbox.WithMaxAttempts(cfg.OutboxMaxAttempts),
			outbox.WithRetryBaseDelay(cfg.OutboxRetryDelay),
		)
		wg.Add(1)
		go func() {
			defer wg.Done()
			worker.Run(workersCtx)
		}()
	} else {
		logger.Warn("Outbox worker is not running: kafka brokers are not configured")
	}

	cleanupWorker := idempotency.NewCleanupWorker(
		deps.IdempotencyRepo,
		idempotency.WithLogger(logger),
		idempotency.WithInterval(cfg.IdempotencyCleanupInterval),
		idempotency.WithBatchSize(cfg.IdempotencyCleanupBatchSize),
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		cleanupWorker.Run(workersCtx)
	}()

	healthHandler := healthcheck.NewHandler(version.String())
	healthHandler.RegisterChecker("storage", healthcheck.NewSimpleChecker("storage", func() error {
		pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return deps.PingStorage(pingCtx)
	}))

	opsSrv := startOpsServer(ctx, cfg.OpsAddr, logger, healthHandler)

	apiSrv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}
	errCh := make(chan error, 1)
	go func() {
		logger.WithField("addr", cfg.HTTPAddr).Info("Order API listening")
		errCh <- apiSrv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received, stopping order API")
		shutdownHTTP(apiSrv, cfg.ShutdownTimeout, logger)
		shutdownHTTP(opsSrv, cfg.ShutdownTimeout, logger)
		stopWorkers()
		wg.Wait()
		return ctx.Err()
	case err := <-errCh:
		shutdownHTTP(opsSrv, cfg.ShutdownTimeout, logger)
		stopWorkers()
		wg.Wait()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// startOpsServer поднимает служебный HTTP-сервер с метриками и health-чеками.
func startOpsServer(ctx context.Context, addr string, logger *log.Entry, healthHandler *healthcheck.Handler) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/healthz", healthHandler)
	mux.HandleFunc("/readyz", healthHandler.ReadinessHandler)
	mux.HandleFunc("/livez", healthcheck.LivenessHandler)

	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		logger.WithField("addr", addr).Info("Ops server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Warn("Ops server failed")
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownHTTP(srv, 5*time.Second, logger)
	}()

	return srv
}

// shutdownHTTP аккуратно останавливает HTTP-сервер.
func shutdownHTTP(srv *http.Server, timeout time.Duration, logger *log.Entry) {
	if srv == nil {
		return
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithError(err).Warn("HTTP shutdown with error")
	}
}
