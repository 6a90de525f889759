// Package main is the entry point for the Draftwise server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	flag "github.com/spf13/pflag"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jkindrix/draftwise/internal/ai"
	"github.com/jkindrix/draftwise/internal/archive"
	"github.com/jkindrix/draftwise/internal/audit"
	"github.com/jkindrix/draftwise/internal/config"
	"github.com/jkindrix/draftwise/internal/database"
	"github.com/jkindrix/draftwise/internal/domain"
	"github.com/jkindrix/draftwise/internal/handler"
	"github.com/jkindrix/draftwise/internal/logging"
	"github.com/jkindrix/draftwise/internal/metrics"
	"github.com/jkindrix/draftwise/internal/middleware"
	"github.com/jkindrix/draftwise/internal/ratelimit"
	"github.com/jkindrix/draftwise/internal/realtime"
	"github.com/jkindrix/draftwise/internal/repository"
	"github.com/jkindrix/draftwise/internal/schedule"
	"github.com/jkindrix/draftwise/internal/service"
	"github.com/jkindrix/draftwise/internal/shutdown"
	"github.com/jkindrix/draftwise/internal/tracing"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	configFile := flag.StringP("config", "c", "", "path to config file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	appLogger, err := initLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	logger := appLogger.Zap()
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, appLogger); err != nil {
		logger.Error("server exited with error", zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
}

// initLogger builds the process logger from the log and server sections.
func initLogger(cfg *config.Config) (*logging.Logger, error) {
	return logging.New(&logging.Config{
		Level:       cfg.Log.Level,
		Format:      cfg.Log.Format,
		Environment: cfg.Server.Environment,
		Service:     "draftwise",
	})
}

// run wires the application and serves until ctx is cancelled.
func run(ctx context.Context, cfg *config.Config, appLogger *logging.Logger) error {
	logger := appLogger.Zap()
	auditLogger := audit.NewLogger(logger)

	logger.Info("starting Draftwise server",
		zap.String("version", version),
		zap.String("addr", cfg.Server.Address()),
		zap.String("env", cfg.Server.Environment),
		zap.String("llm_provider", cfg.LLM.Provider),
		zap.String("database_driver", cfg.Database.Driver),
	)

	m := metrics.NewMetrics()
	events := metrics.NewBusinessEventLogger(logger)

	tracer, err := tracing.Init(ctx, cfg.Tracing, tracing.Service{
		Name:        "draftwise",
		Version:     version,
		Environment: cfg.Server.Environment,
	}, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}

	shutdownCoord := shutdown.NewCoordinator(&shutdown.Config{
		Timeout: cfg.Server.ShutdownTimeout,
	}, logger)
	readiness := shutdown.NewReadinessGate(shutdownCoord)

	// Initialize generation store
	store, err := openStore(ctx, cfg, m, logger)
	if err != nil {
		return err
	}

	// Initialize language model collaborators
	schedules := schedule.Default()
	assistant, guarded, err := initAssistant(ctx, cfg, schedules, m, events, logger)
	if err != nil {
		store.close()
		return err
	}

	bus, err := initBus(ctx, cfg, logger)
	if err != nil {
		store.close()
		return err
	}

	archiver, err := initArchive(cfg, logger)
	if err != nil {
		store.close()
		_ = bus.Close()
		return err
	}

	// Generation limiter for cost control
	limiterCfg := &ratelimit.Config{
		PerMinute:     cfg.Generation.PerMinute,
		PerHour:       cfg.Generation.PerHour,
		PerDay:        cfg.Generation.PerDay,
		MaxConcurrent: cfg.Generation.MaxConcurrent,
	}
	genLimiter := ratelimit.New(limiterCfg, logger.Named("ratelimit"), ratelimit.WithReporter(m))
	logger.Info("initialized generation limiter",
		zap.Int("max_per_minute", limiterCfg.PerMinute),
		zap.Int("max_per_hour", limiterCfg.PerHour),
		zap.Int("max_per_day", limiterCfg.PerDay),
		zap.Int("max_concurrent", limiterCfg.MaxConcurrent),
	)

	// Initialize services
	var (
		answerAssistant service.AnswerAssistant
		generator       service.ContentGenerator = unavailableGenerator{}
	)
	if assistant != nil {
		answerAssistant = assistant
		generator = assistant
	}
	generations := service.NewGenerationService(store.repo, generator, schedules, genLimiter, archiver, logger, m, events)
	wizard := service.NewWizardService(service.WizardServiceConfig{
		Wizard:     cfg.Wizard,
		Sessions:   cfg.Sessions,
		Generation: cfg.Generation,
	}, schedules, answerAssistant, generations, bus, logger, m, events)

	// Initialize handlers
	requestLimiter := middleware.NewRateLimiter(cfg.RateLimit.Requests, cfg.RateLimit.Window, logger).
		WithHitRecorder(m)

	healthCfg := handler.HealthHandlerConfig{
		HealthChecker: store.health,
		Readiness:     readiness,
		Sessions:      wizard,
		Version:       version,
		Logger:        logger,
	}
	if guarded != nil {
		healthCfg.AIHealthChecker = guarded.Breaker()
	}

	router := handler.NewRouter(handler.RouterConfig{
		Sessions:    handler.NewSessionHandler(wizard, auditLogger, logger),
		Stream:      handler.NewStreamHandler(wizard, logger),
		Schedules:   handler.NewScheduleHandler(schedules, logger),
		Generations: handler.NewGenerationHandler(generations, auditLogger, logger),
		Health:      handler.NewHealthHandler(healthCfg),
		LogLevel:    handler.NewLogLevelHandler(appLogger.AtomicLevel(), logger).WithAudit(auditLogger),
		Metrics:     m,
		RateLimiter: requestLimiter,
		Logger:      logger,
	})

	// Create server. WriteTimeout stays zero so transcript streams and slow
	// generations are bounded by their own deadlines.
	server := &http.Server{
		Addr:              cfg.Server.Address(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// Register services for graceful shutdown (in order of shutdown phases)
	shutdownCoord.RegisterFunc(shutdown.PhaseDrain, "http-server", func(ctx context.Context) error {
		return server.Shutdown(ctx)
	})
	shutdownCoord.RegisterFunc(shutdown.PhaseShutdown, "wizard-sessions", func(context.Context) error {
		readiness.SetState(shutdown.HealthStateShuttingDown)
		wizard.Close()
		return nil
	})
	shutdownCoord.RegisterFunc(shutdown.PhaseShutdown, "request-limiter", func(context.Context) error {
		requestLimiter.Close()
		return nil
	})
	shutdownCoord.RegisterFunc(shutdown.PhaseCleanup, "transcript-bus", func(context.Context) error {
		return bus.Close()
	})
	shutdownCoord.RegisterFunc(shutdown.PhaseCleanup, "tracing", tracer.Shutdown)
	shutdownCoord.RegisterFunc(shutdown.PhaseCleanup, "store", func(context.Context) error {
		store.close()
		return nil
	})

	auditLogger.ServiceStarted(ctx, version, cfg.Server.Environment)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		reason := "signal"
		if ctx.Err() == nil {
			reason = "server error"
		}
		logger.Info("shutting down", zap.String("reason", reason))
		auditLogger.ServiceStopping(context.Background(), reason)

		// Execute graceful shutdown
		if err := shutdownCoord.Shutdown(context.Background()); err != nil {
			logger.Error("shutdown completed with errors", zap.Error(err))
		}
		return nil
	})

	return g.Wait()
}

// generationStore is the configured repository plus its lifecycle hooks.
type generationStore struct {
	repo   domain.GenerationRepository
	health handler.HealthChecker
	close  func()
}

// openStore connects the generation store selected by database.driver and
// applies migrations.
func openStore(ctx context.Context, cfg *config.Config, m *metrics.Metrics, logger *zap.Logger) (*generationStore, error) {
	switch cfg.Database.Driver {
	case config.DriverSQLite:
		sqlite, err := repository.OpenSQLite(cfg.Database.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite store: %w", err)
		}
		logger.Info("using sqlite generation store", zap.String("path", cfg.Database.SQLitePath))
		return &generationStore{
			repo:   sqlite,
			health: sqlite,
			close:  func() { _ = sqlite.Close() },
		}, nil
	default:
		db, err := database.New(ctx, &cfg.Database, m, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		if err := db.Migrate(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to migrate database: %w", err)
		}
		return &generationStore{
			repo:   repository.NewGenerationRepository(db.Pool),
			health: db,
			close:  db.Close,
		}, nil
	}
}

// initAssistant builds the guarded provider client. Both results are nil when
// no provider is configured; chat sessions then accept every answer and use
// the bullet summary.
func initAssistant(ctx context.Context, cfg *config.Config, schedules ai.ScheduleSource, m *metrics.Metrics, events ai.CallEvents, logger *zap.Logger) (*ai.Assistant, *ai.Guarded, error) {
	completer, err := ai.NewCompleter(ctx, cfg, logger)
	if errors.Is(err, ai.ErrNoProvider) {
		logger.Warn("no language model provider configured; remote validation, summaries and generation are unavailable")
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize language model client: %w", err)
	}

	guarded := ai.NewGuarded(completer, ai.GuardConfig{
		Timeout:          cfg.LLM.Timeout,
		FailureThreshold: cfg.LLM.FailureThreshold,
		OpenTimeout:      cfg.LLM.OpenTimeout,
		Recorder:         m,
		Events:           events,
	}, logger.Named("ai"))
	return ai.NewAssistant(guarded, schedules, logger.Named("ai")), guarded, nil
}

// initBus selects the transcript fan-out.
func initBus(ctx context.Context, cfg *config.Config, logger *zap.Logger) (realtime.Bus, error) {
	if !cfg.Redis.Enabled {
		return realtime.NewMemoryBus(logger), nil
	}
	bus, err := realtime.NewRedisBus(ctx, cfg.Redis, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	logger.Info("using redis transcript bus", zap.String("addr", cfg.Redis.Addr))
	return bus, nil
}

// initArchive returns the object store archive, or a no-op when disabled.
func initArchive(cfg *config.Config, logger *zap.Logger) (archive.Archiver, error) {
	if !cfg.Archive.Enabled {
		return archive.Nop{}, nil
	}
	a, err := archive.NewMinioArchive(cfg.Archive)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize archive: %w", err)
	}
	logger.Info("archiving generations",
		zap.String("endpoint", cfg.Archive.Endpoint),
		zap.String("bucket", cfg.Archive.Bucket),
	)
	return a, nil
}

// unavailableGenerator answers generation requests when no provider is
// configured.
type unavailableGenerator struct{}

func (unavailableGenerator) Generate(context.Context, ai.GenerationRequest) (string, error) {
	return "", ai.ErrNoProvider
}
