package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"

	"github.com/Ramsey-B/thistle/internal/handlers"
	"github.com/Ramsey-B/thistle/pkg/database"
	"github.com/Ramsey-B/thistle/pkg/decision"
	"github.com/Ramsey-B/thistle/pkg/events"
	"github.com/Ramsey-B/thistle/pkg/gateway/postgres"
	"github.com/Ramsey-B/thistle/pkg/health"
	"github.com/Ramsey-B/thistle/pkg/kafka"
	"github.com/Ramsey-B/thistle/pkg/middleware"
	"github.com/Ramsey-B/thistle/pkg/negotiation"
	"github.com/Ramsey-B/thistle/pkg/redis"
	"github.com/Ramsey-B/thistle/pkg/scoring"
	"github.com/Ramsey-B/thistle/pkg/sourcing"
	"github.com/Ramsey-B/thistle/pkg/startup"
	"github.com/Ramsey-B/thistle/pkg/tracing"
	"github.com/Ramsey-B/thistle/pkg/tracing/exporters"
)

const shutdownTimeout = 15 * time.Second

func newServeCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the negotiation API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.serve(cmd.Context())
		},
	}
}

// server holds the resources started by serve
type server struct {
	db       database.DB
	redis    *redis.Client
	producer *kafka.Producer
	echo     *echo.Echo
	checker  *health.Checker
}

func (a *app) serve(ctx context.Context) error {
	log := a.logger.WithContext(ctx)

	if a.cfg.OTLPEnabled {
		exporter, err := exporters.NewOTLPExporter(ctx, exporters.OTLPConfig{
			Endpoint: a.cfg.OTLPEndpoint,
			Protocol: a.cfg.OTLPProtocol,
			Insecure: a.cfg.OTLPInsecure,
		})
		if err != nil {
			return fmt.Errorf("failed to create OTLP exporter: %w", err)
		}
		shutdown := tracing.Setup(a.cfg.AppName, exporter)
		defer func() {
			flushCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := shutdown(flushCtx); err != nil {
				a.logger.WithError(err).Warn("Failed to flush traces")
			}
		}()
	}

	s := &server{checker: health.NewChecker(version)}
	deps := startup.NewStartup(a.logger, a.cfg.StartupMaxAttempts)

	deps.AddDependency(startup.Func{
		Name: "database",
		StartFunc: func(ctx context.Context) error {
			db, err := a.connect(ctx)
			if err != nil {
				return err
			}
			s.db = db
			s.checker.AddCheck("database", db.PingContext, true)
			return nil
		},
		StopFunc: func(ctx context.Context) error { return s.db.Close() },
	})
	deps.AddDependency(startup.Func{
		Name:      "migrations",
		Requires:  []string{"database"},
		StartFunc: func(ctx context.Context) error { return a.migrate(s.db) },
	})
	if a.cfg.RedisEnabled {
		deps.AddDependency(startup.Func{
			Name: "redis",
			StartFunc: func(ctx context.Context) error {
				client, err := redis.NewClient(a.cfg.Redis(), a.logger)
				if err != nil {
					return err
				}
				s.redis = client
				s.checker.AddCheck("redis", client.Ping, true)
				return nil
			},
			StopFunc: func(ctx context.Context) error { return s.redis.Close() },
		})
	}
	if a.cfg.KafkaEnabled {
		deps.AddDependency(startup.Func{
			Name: "kafka",
			StartFunc: func(ctx context.Context) error {
				brokers := a.cfg.Brokers()
				if err := kafka.Ping(ctx, brokers); err != nil {
					return err
				}
				s.producer = kafka.NewProducer(kafka.ProducerConfig{
					Brokers:      brokers,
					Topic:        a.cfg.KafkaEventsTopic,
					BatchSize:    a.cfg.KafkaBatchSize,
					BatchTimeout: a.cfg.KafkaBatchTimeout,
					RequiredAcks: 1,
				}, a.logger)
				s.checker.AddCheck("kafka", func(ctx context.Context) error { return kafka.Ping(ctx, brokers) }, false)
				return nil
			},
			StopFunc: func(ctx context.Context) error { return s.producer.Close() },
		})
	}

	errCh := make(chan error, 1)
	deps.AddDependency(startup.Func{
		Name:     "http",
		Requires: []string{"migrations"},
		StartFunc: func(ctx context.Context) error {
			s.echo = a.newEcho(s)
			httpServer := &http.Server{
				Addr:         fmt.Sprintf(":%d", a.cfg.Port),
				ReadTimeout:  time.Duration(a.cfg.HttpServerReadTimeoutSeconds) * time.Second,
				WriteTimeout: time.Duration(a.cfg.HttpServerWriteTimeoutSeconds) * time.Second,
				IdleTimeout:  time.Duration(a.cfg.HttpServerIdleTimeoutSeconds) * time.Second,
			}
			go func() {
				if err := s.echo.StartServer(httpServer); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
			}()
			return nil
		},
		StopFunc: func(ctx context.Context) error { return s.echo.Shutdown(ctx) },
	})

	if err := deps.Start(ctx); err != nil {
		stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = deps.Stop(stopCtx)
		return err
	}
	s.checker.SetReady(true)
	log.WithField("port", a.cfg.Port).Info("thistle is serving")

	var serveErr error
	select {
	case <-ctx.Done():
		log.Info("Shutting down")
	case serveErr = <-errCh:
		log.WithError(serveErr).Error("HTTP server failed")
	}

	s.checker.SetReady(false)
	stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := deps.Stop(stopCtx); err != nil && serveErr == nil {
		serveErr = err
	}
	return serveErr
}

// newEcho wires the domain services onto the started resources
func (a *app) newEcho(s *server) *echo.Echo {
	var (
		gatewayOpts     []postgres.Option
		coordinatorOpts []decision.Option
		negotiatorOpts  []negotiation.Option
	)

	if s.producer != nil {
		emitter := events.NewEmitter(s.producer, a.logger)
		gatewayOpts = append(gatewayOpts, postgres.WithOfferPublisher(emitter))
		coordinatorOpts = append(coordinatorOpts, decision.WithPublisher(emitter))
		negotiatorOpts = append(negotiatorOpts, negotiation.WithTerminalHook(emitter.TerminalHook()))
	}
	if s.redis != nil {
		locker := redis.NewNegotiationLocker(redis.NewLocker(s.redis, ""), a.benchmarks.Negotiation.LockTTL, a.cfg.RedisLockWait)
		negotiatorOpts = append(negotiatorOpts, negotiation.WithLocker(locker))
	}

	gateway := postgres.NewGateway(s.db, a.logger, gatewayOpts...)
	coordinator := decision.NewCoordinator(gateway, scoring.NewEngine(a.benchmarks.Scoring), a.logger, coordinatorOpts...)
	negotiatorOpts = append(negotiatorOpts, negotiation.WithTerminalHook(coordinator.OnTerminal))
	negotiator := negotiation.NewNegotiator(gateway, gateway, a.benchmarks.Negotiation, a.logger, negotiatorOpts...)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = middleware.Error(a.logger)
	e.Use(otelecho.Middleware(a.cfg.AppName))
	e.Use(middleware.Context())
	e.Use(middleware.Logger(a.logger))

	s.checker.Register(e)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	handlers.NewQuoteHandler(sourcing.NewService(gateway, a.logger), gateway, coordinator, a.logger).Register(e.Group("/quotes"))
	handlers.NewNegotiationHandler(negotiator, gateway, a.logger).Register(e.Group("/negotiations"))
	return e
}
