// Package main is the entry point for the draftwise terminal client.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"os/user"
	"path/filepath"
	"syscall"

	"github.com/mattn/go-isatty"
	"go.uber.org/zap"

	"github.com/jkindrix/draftwise/internal/ai"
	"github.com/jkindrix/draftwise/internal/cli"
	"github.com/jkindrix/draftwise/internal/config"
	"github.com/jkindrix/draftwise/internal/logging"
	"github.com/jkindrix/draftwise/internal/metrics"
	"github.com/jkindrix/draftwise/internal/ratelimit"
	"github.com/jkindrix/draftwise/internal/realtime"
	"github.com/jkindrix/draftwise/internal/repository"
	"github.com/jkindrix/draftwise/internal/schedule"
	"github.com/jkindrix/draftwise/internal/service"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadClient(os.Getenv("DRAFTWISE_CONFIG"))
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	appLogger, closeLog, err := initLogger(cfg)
	if err != nil {
		return err
	}
	defer closeLog()
	logger := appLogger.Zap()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, cleanup, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	app.IsInteractive = func() bool {
		return isatty.IsTerminal(os.Stdin.Fd()) || isatty.IsCygwinTerminal(os.Stdin.Fd())
	}

	return cli.NewRootCmd(app).ExecuteContext(ctx)
}

// initLogger writes client logs to cli.log_file, or discards them, so they
// never interleave with the terminal UI.
func initLogger(cfg *config.Config) (*logging.Logger, func(), error) {
	var (
		out       io.Writer = io.Discard
		closeFile           = func() {}
	)
	if cfg.CLI.LogFile != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.CLI.LogFile), 0o755); err != nil {
			return nil, nil, fmt.Errorf("creating log directory: %w", err)
		}
		f, err := os.OpenFile(cfg.CLI.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("opening log file: %w", err)
		}
		out = f
		closeFile = func() { _ = f.Close() }
	}

	appLogger, err := logging.New(&logging.Config{
		Level:       cfg.Log.Level,
		Format:      cfg.Log.Format,
		Environment: cfg.Server.Environment,
		Service:     "draftwise-cli",
		Output:      out,
	})
	if err != nil {
		closeFile()
		return nil, nil, fmt.Errorf("initializing logger: %w", err)
	}
	return appLogger, func() {
		_ = appLogger.Zap().Sync()
		closeFile()
	}, nil
}

// newApp wires the services against the local sqlite store. The returned
// cleanup closes everything newApp opened.
func newApp(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*cli.App, func(), error) {
	if err := os.MkdirAll(filepath.Dir(cfg.CLI.DBPath), 0o755); err != nil {
		return nil, nil, fmt.Errorf("creating data directory: %w", err)
	}
	store, err := repository.OpenSQLite(cfg.CLI.DBPath)
	if err != nil {
		return nil, nil, fmt.Errorf("opening database: %w", err)
	}

	schedules := schedule.Default()

	var (
		assistant service.AnswerAssistant
		generator service.ContentGenerator = unavailableGenerator{}
	)
	completer, err := ai.NewCompleter(ctx, cfg, logger)
	switch {
	case errors.Is(err, ai.ErrNoProvider):
		logger.Warn("no language model provider configured")
	case err != nil:
		_ = store.Close()
		return nil, nil, fmt.Errorf("initializing language model client: %w", err)
	default:
		guarded := ai.NewGuarded(completer, ai.GuardConfig{
			Timeout:          cfg.LLM.Timeout,
			FailureThreshold: cfg.LLM.FailureThreshold,
			OpenTimeout:      cfg.LLM.OpenTimeout,
			Events:           metrics.NewBusinessEventLogger(logger.Named("events")),
		}, logger.Named("ai"))
		a := ai.NewAssistant(guarded, schedules, logger.Named("ai"))
		assistant, generator = a, a
	}

	limiter := ratelimit.New(&ratelimit.Config{
		PerMinute:     cfg.Generation.PerMinute,
		PerHour:       cfg.Generation.PerHour,
		PerDay:        cfg.Generation.PerDay,
		MaxConcurrent: cfg.Generation.MaxConcurrent,
	}, logger.Named("ratelimit"))

	bus := realtime.NewMemoryBus(logger)
	generations := service.NewGenerationService(store, generator, schedules, limiter, nil, logger, nil, nil)
	wizard := service.NewWizardService(service.WizardServiceConfig{
		Wizard:     cfg.Wizard,
		Sessions:   cfg.Sessions,
		Generation: cfg.Generation,
	}, schedules, assistant, generations, bus, logger, nil, nil)

	app := &cli.App{
		Wizard:      wizard,
		Generations: generations,
		Schedules:   schedules,
		Owner:       localOwner(),
	}
	cleanup := func() {
		wizard.Close()
		_ = bus.Close()
		_ = store.Close()
	}
	return app, cleanup, nil
}

// localOwner stores generations under the OS account name.
func localOwner() string {
	if u, err := user.Current(); err == nil && u.Username != "" {
		return u.Username
	}
	return "local"
}

// unavailableGenerator answers generation requests when no provider is
// configured.
type unavailableGenerator struct{}

func (unavailableGenerator) Generate(context.Context, ai.GenerationRequest) (string, error) {
	return "", ai.ErrNoProvider
}
