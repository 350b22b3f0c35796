// Command worker scores the molecule corpus on a schedule and serves the ops
// endpoints.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/turtacn/npl-scorer/internal/app"
	"github.com/turtacn/npl-scorer/internal/application/scoring"
	"github.com/turtacn/npl-scorer/internal/config"
	"github.com/turtacn/npl-scorer/internal/infrastructure/monitoring/logging"
	httpserver "github.com/turtacn/npl-scorer/internal/interfaces/http"
	"github.com/turtacn/npl-scorer/internal/interfaces/http/handlers"
	"github.com/turtacn/npl-scorer/internal/interfaces/http/middleware"
)

var version = "dev"

func main() {
	configPath := flag.String("config", "", "path to configuration file (NPL_* environment variables when empty)")
	once := flag.Bool("once", false, "run a single scoring pass and exit")
	flag.Parse()

	if err := run(*configPath, *once); err != nil {
		fmt.Fprintf(os.Stderr, "worker: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string, once bool) error {
	cfg, err := config.LoadOrEnv(configPath)
	if err != nil {
		return err
	}
	logger, err := app.NewLogger(cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	logging.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("starting npl worker",
		logging.String("version", version),
		logging.String("store", cfg.Scoring.Store),
		logging.String("store_lock", cfg.Scoring.StoreLock),
		logging.Int("concurrency", cfg.Worker.Concurrency),
		logging.Duration("interval", cfg.Worker.Interval),
		logging.Bool("once", once))

	infra, err := app.NewInfrastructure(ctx, cfg, logger, app.Options{Publish: true, Archive: true, Metrics: true})
	if err != nil {
		return fmt.Errorf("failed to initialize infrastructure: %w", err)
	}
	defer infra.Close()

	engine, err := app.NewEngine(cfg.Scoring, infra.Fragments, logger)
	if err != nil {
		return err
	}
	orch, err := infra.NewOrchestrator(engine)
	if err != nil {
		return err
	}

	if configPath != "" {
		watchLogLevel(configPath, cfg.Log.Level, logger)
	}

	var ops *httpserver.Server
	if cfg.Ops.Enabled {
		ops = httpserver.NewServer(cfg.Ops, opsHandler(cfg, infra, orch, logger), logger.Named("ops"))
		go func() {
			if err := ops.Start(); err != nil {
				logger.Error("ops server failed", logging.Err(err))
				stop()
			}
		}()
	}

	runErr := app.Schedule(ctx, func(ctx context.Context) error {
		_, err := orch.Run(ctx)
		return err
	}, cfg.Worker.Interval, once, logger)

	if ops != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Ops.ShutdownTimeout+time.Second)
		if err := ops.Stop(shutdownCtx); err != nil {
			logger.Error("ops server shutdown error", logging.Err(err))
		}
		cancel()
	}
	logger.Info("npl worker stopped")
	return runErr
}

// watchLogLevel applies log.level changes from the config file.  Other
// settings need a restart.
func watchLogLevel(path, current string, logger logging.Logger) {
	setter, ok := logger.(logging.LevelSetter)
	if !ok {
		return
	}
	err := config.Watch(path, func(next *config.Config) {
		if next.Log.Level == current {
			return
		}
		setter.SetLevel(next.Log.Level)
		logger.Info("log level changed", logging.String("from", current), logging.String("to", next.Log.Level))
		current = next.Log.Level
	}, func(err error) {
		logger.Warn("ignoring invalid config change", logging.Err(err))
	})
	if err != nil {
		logger.Warn("config watch disabled", logging.Err(err))
	}
}

func opsHandler(cfg *config.Config, infra *app.Infrastructure, orch *scoring.Orchestrator, logger logging.Logger) http.Handler {
	var checkers []handlers.HealthChecker
	if infra.Postgres != nil {
		checkers = append(checkers, handlers.CheckFunc{Component: "postgres", Fn: infra.Postgres.HealthCheck})
	}
	if infra.Redis != nil {
		checkers = append(checkers, handlers.CheckFunc{Component: "redis", Fn: infra.Redis.HealthCheck})
	}
	if infra.MinIO != nil {
		checkers = append(checkers, handlers.CheckFunc{Component: "minio", Fn: infra.MinIO.HealthCheck})
	}

	var recorder handlers.HealthRecorder
	if infra.Metrics != nil {
		recorder = infra.Metrics
	}
	var shared handlers.SharedSummary
	if infra.SummaryCache != nil {
		shared = infra.SummaryCache
	}
	var reports handlers.ReportLister
	if infra.Reports != nil {
		reports = infra.Reports
	}

	return httpserver.NewRouter(httpserver.RouterConfig{
		Mode:             cfg.Ops.Mode,
		HealthHandler:    handlers.NewHealthHandler(version, recorder, checkers...),
		ScoringHandler:   handlers.NewScoringHandler(orch.LastSummary, shared, infra.FragmentStats, reports),
		Logger:           logger.Named("ops"),
		Logging:          middleware.DefaultLoggingConfig(),
		MetricsCollector: infra.Collector,
		Metrics:          infra.Metrics,
	})
}
