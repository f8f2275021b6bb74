package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/MartonCsizmazia/order-processing-system/internal/config"
	"github.com/MartonCsizmazia/order-processing-system/internal/events"
	evhandlers "github.com/MartonCsizmazia/order-processing-system/internal/events/handlers"
	"github.com/MartonCsizmazia/order-processing-system/internal/http/router"
	"github.com/MartonCsizmazia/order-processing-system/internal/service/saga"
	"github.com/MartonCsizmazia/order-processing-system/internal/storage/pg"
	"github.com/MartonCsizmazia/order-processing-system/pkg/kafka"
	"github.com/MartonCsizmazia/order-processing-system/pkg/outbox"
)

type App struct {
	cfg       *config.Config
	logger    *slog.Logger
	pgStorage *pg.Storage
	producer  *kafka.Producer

	inventoryConsumer *kafka.Consumer
	paymentConsumer   *kafka.Consumer
	relay             *outbox.Relay
	httpServer        *http.Server
}

func New(cfg *config.Config) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config required")
	}

	ctx := context.Background()

	// Logger initialisation
	logger := newLogger(cfg.App.LogLevel, cfg.App.Name)
	slog.SetDefault(logger)
	logger.Info("initialising", slog.String("service", cfg.App.Name))

	// PgStorage initialisation
	pgConfig := &pg.StorageConfig{
		DSN:             cfg.Postgres.DSN,
		MaxConns:        cfg.Postgres.MaxConns,
		MinConns:        cfg.Postgres.MinConns,
		MaxConnLife:     cfg.Postgres.MaxConnLifetime,
		MaxConnIdleTime: cfg.Postgres.MaxConnIdleTime,
	}

	pgStorage, err := pg.NewPGStorage(ctx, logger, pgConfig)
	if err != nil {
		return nil, fmt.Errorf("app creation: %w", err)
	}

	logger.Info("postgres connected")

	// Producer initialisation
	producer, err := kafka.NewProducer(&kafka.ProducerConfig{
		Brokers:     cfg.Kafka.Brokers,
		Acks:        cfg.Kafka.Acks,
		LingerMs:    cfg.Kafka.LingerMs,
		Compression: cfg.Kafka.Compression,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("app creation: %w", err)
	}

	// Outbound path: direct async publish by default, outbox + relay when
	// configured. Both key events by order id. The outbox path runs save and
	// staging in one transaction.
	var orchestrator *saga.Orchestrator
	var relay *outbox.Relay
	if cfg.Outbox.Enabled {
		bus := events.NewOutboxPublisher(pgStorage, cfg.Kafka.OrderEventsTopic, logger)
		relay = outbox.NewRelay(pgStorage, producer, logger, cfg.Outbox.BatchSize, cfg.Outbox.PollInterval)
		orchestrator = saga.NewOrchestrator(logger, pgStorage, bus).WithTx(pgStorage)
	} else {
		bus := events.NewKafkaPublisher(producer, cfg.Kafka.OrderEventsTopic, logger)
		orchestrator = saga.NewOrchestrator(logger, pgStorage, bus)
	}

	// Consumer initialisation: one consumer per inbound topic, each with its
	// own partition workers and the shared DLQ.
	inventoryConsumer, err := newConsumer(cfg, []string{cfg.Kafka.InventoryTopic},
		evhandlers.NewInventoryHandler(orchestrator, logger).Handle, producer, logger)
	if err != nil {
		return nil, fmt.Errorf("app creation: %w", err)
	}

	paymentConsumer, err := newConsumer(cfg, []string{cfg.Kafka.PaymentTopic},
		evhandlers.NewPaymentHandler(orchestrator, logger).Handle, producer, logger)
	if err != nil {
		return nil, fmt.Errorf("app creation: %w", err)
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:      router.New(orchestrator, pgStorage, logger),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	return &App{
		cfg:               cfg,
		logger:            logger,
		pgStorage:         pgStorage,
		producer:          producer,
		inventoryConsumer: inventoryConsumer,
		paymentConsumer:   paymentConsumer,
		relay:             relay,
		httpServer:        httpServer,
	}, nil
}

func newConsumer(cfg *config.Config, topics []string, h kafka.Handler, dlq kafka.DLQPublisher, log *slog.Logger) (*kafka.Consumer, error) {
	c, err := kafka.NewConsumer(&kafka.ConsumerConfig{
		Topics:            topics,
		Brokers:           cfg.Kafka.Brokers,
		ConsumerGroup:     cfg.Kafka.ConsumerGroup,
		OffsetReset:       cfg.Kafka.OffsetReset,
		SessionTimeoutMs:  cfg.Kafka.SessionTimeoutMs,
		MaxPollInterval:   cfg.Kafka.MaxPollInterval,
		PartitionStrategy: cfg.Kafka.PartitionStrategy,
		ChannelBufferSize: cfg.Kafka.ChannelBufferSize,
		MaxRetries:        cfg.Kafka.MaxRetries,
		RetryBackoff:      cfg.Kafka.RetryBackoff,
	}, h, log)
	if err != nil {
		return nil, err
	}
	return c.WithDLQ(dlq, cfg.Kafka.DLQTopic), nil
}

// Run starts the consumers, the relay (when enabled) and the HTTP server,
// then blocks until a shutdown signal or the first fatal component error.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 4)

	go func() {
		if err := a.inventoryConsumer.Run(ctx); err != nil {
			errCh <- fmt.Errorf("inventory consumer: %w", err)
		}
	}()

	go func() {
		if err := a.paymentConsumer.Run(ctx); err != nil {
			errCh <- fmt.Errorf("payment consumer: %w", err)
		}
	}()

	if a.relay != nil {
		go func() {
			if err := a.relay.Run(ctx); err != nil {
				errCh <- fmt.Errorf("outbox relay: %w", err)
			}
		}()
	}

	go func() {
		a.logger.Info("http server started", slog.String("addr", a.httpServer.Addr))
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case runErr = <-errCh:
		a.logger.Error("component failed", slog.Any("error", runErr))
		stop()
	}

	a.shutdown()
	return runErr
}

func (a *App) shutdown() {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("http shutdown", slog.Any("error", err))
	}

	a.producer.Close()
	a.pgStorage.Close()
	a.logger.Info("stopped")
}

func newLogger(level, service string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "info":
		lvl = slog.LevelInfo
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})).
		With(slog.String("service", service))
}
