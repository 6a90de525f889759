// Package logging provides structured logging with runtime level adjustment.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// AvailableLevels lists the level names accepted by ParseLevel.
var AvailableLevels = []string{"debug", "info", "warn", "error", "dpanic", "panic", "fatal"}

// Logger wraps zap.Logger with runtime level adjustment capabilities.
type Logger struct {
	*zap.Logger
	level       zap.AtomicLevel
	mu          sync.RWMutex
	environment string
}

// Config holds configuration for logger initialization.
type Config struct {
	// Level is the initial log level (debug, info, warn, error)
	Level string
	// Format is the output format (json, console)
	Format string
	// Environment is the deployment environment (development, production)
	Environment string
	// Service is attached to every entry when set.
	Service string
	// Output defaults to stderr. The terminal client points it at a file or
	// io.Discard so logs do not corrupt the screen.
	Output io.Writer
}

// DefaultConfig returns sensible defaults for development.
func DefaultConfig() *Config {
	return &Config{
		Level:       "info",
		Format:      "json",
		Environment: "development",
		Service:     "draftwise",
	}
}

// New creates a new Logger with runtime level adjustment support.
func New(cfg *Config) (*Logger, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}
	atomicLevel := zap.NewAtomicLevelAt(level)

	var encoderConfig zapcore.EncoderConfig
	if cfg.Environment == "production" {
		encoderConfig = zap.NewProductionEncoderConfig()
	} else {
		encoderConfig = zap.NewDevelopmentEncoderConfig()
	}
	encoderConfig.TimeKey = "ts"

	var encoder zapcore.Encoder
	if cfg.Format == "console" {
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	} else {
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	}

	var out io.Writer = os.Stderr
	if cfg.Output != nil {
		out = cfg.Output
	}
	core := zapcore.NewCore(encoder, zapcore.Lock(zapcore.AddSync(out)), atomicLevel)

	opts := []zap.Option{
		zap.AddCaller(),
		zap.AddStacktrace(zapcore.ErrorLevel),
	}
	if cfg.Environment == "development" {
		opts = append(opts, zap.Development())
	}
	if cfg.Service != "" {
		opts = append(opts, zap.Fields(zap.String("service", cfg.Service)))
	}

	return &Logger{
		Logger:      zap.New(core, opts...),
		level:       atomicLevel,
		environment: cfg.Environment,
	}, nil
}

// NewNop returns a logger that discards everything.
func NewNop() *Logger {
	return &Logger{
		Logger: zap.NewNop(),
		level:  zap.NewAtomicLevelAt(zapcore.FatalLevel),
	}
}

// ParseLevel parses a level string into a zapcore.Level.
func ParseLevel(level string) (zapcore.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zapcore.DebugLevel, nil
	case "info":
		return zapcore.InfoLevel, nil
	case "warn", "warning":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	case "dpanic":
		return zapcore.DPanicLevel, nil
	case "panic":
		return zapcore.PanicLevel, nil
	case "fatal":
		return zapcore.FatalLevel, nil
	default:
		return zapcore.InfoLevel, fmt.Errorf("unknown level: %s (valid: %s)", level, strings.Join(AvailableLevels, ", "))
	}
}

// SetLevel changes the log level at runtime.
func (l *Logger) SetLevel(level string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	parsed, err := ParseLevel(level)
	if err != nil {
		return err
	}
	previous := l.level.String()
	l.level.SetLevel(parsed)
	l.Logger.Info("log level changed",
		zap.String("new_level", parsed.String()),
		zap.String("previous_level", previous),
	)
	return nil
}

// GetLevel returns the current log level.
func (l *Logger) GetLevel() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.level.String()
}

// Named returns a named child logger.
func (l *Logger) Named(name string) *Logger {
	return &Logger{
		Logger:      l.Logger.Named(name),
		level:       l.level,
		environment: l.environment,
	}
}

// With creates a child logger with additional fields.
func (l *Logger) With(fields ...zap.Field) *Logger {
	return &Logger{
		Logger:      l.Logger.With(fields...),
		level:       l.level,
		environment: l.environment,
	}
}

// Zap returns the underlying zap.Logger for compatibility.
func (l *Logger) Zap() *zap.Logger {
	return l.Logger
}

// AtomicLevel returns the atomic level for external integration.
func (l *Logger) AtomicLevel() zap.AtomicLevel {
	return l.level
}
