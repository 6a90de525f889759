// Package config provides application configuration management using Viper.
// It supports loading from a .env file, environment variables, config files,
// and defaults.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	LLM        LLMConfig
	Anthropic  AnthropicConfig
	OpenAI     OpenAIConfig
	Gemini     GeminiConfig
	Wizard     WizardConfig
	Sessions   SessionsConfig
	Generation GenerationConfig
	Redis      RedisConfig
	Archive    ArchiveConfig
	Tracing    TracingConfig
	Log        LogConfig
	RateLimit  RateLimitConfig
	CLI        CLIConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string
	Port            int
	Environment     string
	ShutdownTimeout time.Duration
	MaxBodyBytes    int64
}

// Address returns the listen address.
func (s *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// Database drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// DatabaseConfig holds generation store settings.
type DatabaseConfig struct {
	Driver                string
	Host                  string
	Port                  int
	User                  string
	Password              string
	Name                  string
	SSLMode               string
	MaxConnections        int
	MinConnections        int
	ConnectionMaxLifetime time.Duration
	SQLitePath            string
}

// ConnectionString returns a PostgreSQL connection string.
func (d *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

// LLM providers.
const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
	ProviderGemini    = "gemini"
	ProviderNone      = "none"
)

// LLMConfig selects and tunes the language model provider.
type LLMConfig struct {
	Provider         string
	Timeout          time.Duration
	MaxTokens        int
	Temperature      float64
	FailureThreshold int
	OpenTimeout      time.Duration
}

// AnthropicConfig holds Claude API settings.
type AnthropicConfig struct {
	APIKey  string
	Model   string
	BaseURL string
}

// OpenAIConfig holds settings for OpenAI or an OpenAI-compatible gateway.
type OpenAIConfig struct {
	APIKey  string
	Model   string
	BaseURL string
}

// GeminiConfig holds Google Gemini settings.
type GeminiConfig struct {
	APIKey  string
	Model   string
	BaseURL string
}

// Acknowledgment picker modes.
const (
	AckModeRandom   = "random"
	AckModeRotating = "rotating"
)

// WizardConfig holds conversation engine settings.
type WizardConfig struct {
	MinAnswerLength  int
	AckMode          string
	RemoteValidation bool
	RemoteSummary    bool
}

// SessionsConfig bounds the in-memory session store.
type SessionsConfig struct {
	Max int
	TTL time.Duration
}

// GenerationConfig holds content generation defaults and cost limits.
type GenerationConfig struct {
	DefaultTone      string
	DefaultWordLimit int
	PerMinute        int
	PerHour          int
	PerDay           int
	MaxConcurrent    int
}

// RedisConfig enables cross-instance transcript fan-out.
type RedisConfig struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
}

// ArchiveConfig holds S3-compatible object storage settings.
type ArchiveConfig struct {
	Enabled   bool
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// TracingConfig holds OpenTelemetry settings.
type TracingConfig struct {
	Enabled     bool
	Exporter    string
	Endpoint    string
	SampleRatio float64
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string
	Format string
}

// RateLimitConfig holds per-IP request limiting settings.
type RateLimitConfig struct {
	Requests int
	Window   time.Duration
}

// CLIConfig holds terminal client settings.
type CLIConfig struct {
	DBPath  string
	LogFile string
}

// Load reads configuration for the server and validates it. configFile may
// be empty to search the default locations.
func Load(configFile string) (*Config, error) {
	cfg, err := Read(configFile)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadClient reads configuration for the terminal client, which needs no
// server database.
func LoadClient(configFile string) (*Config, error) {
	cfg, err := Read(configFile)
	if err != nil {
		return nil, err
	}
	if err := cfg.ValidateClient(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Read loads configuration without validating it. Environment variables take
// precedence over config file values; a .env file in the working directory is
// loaded first when present.
func Read(configFile string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/draftwise")
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var configNotFoundErr viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &configNotFoundErr) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	return &Config{
		Server: ServerConfig{
			Host:            v.GetString("server.host"),
			Port:            v.GetInt("server.port"),
			Environment:     v.GetString("server.env"),
			ShutdownTimeout: v.GetDuration("server.shutdown_timeout"),
			MaxBodyBytes:    v.GetInt64("server.max_body_bytes"),
		},
		Database: DatabaseConfig{
			Driver:                strings.ToLower(v.GetString("database.driver")),
			Host:                  v.GetString("database.host"),
			Port:                  v.GetInt("database.port"),
			User:                  v.GetString("database.user"),
			Password:              v.GetString("database.password"),
			Name:                  v.GetString("database.name"),
			SSLMode:               v.GetString("database.sslmode"),
			MaxConnections:        v.GetInt("database.max_connections"),
			MinConnections:        v.GetInt("database.min_connections"),
			ConnectionMaxLifetime: v.GetDuration("database.connection_max_lifetime"),
			SQLitePath:            v.GetString("database.sqlite_path"),
		},
		LLM: LLMConfig{
			Provider:         strings.ToLower(v.GetString("llm.provider")),
			Timeout:          v.GetDuration("llm.timeout"),
			MaxTokens:        v.GetInt("llm.max_tokens"),
			Temperature:      v.GetFloat64("llm.temperature"),
			FailureThreshold: v.GetInt("llm.failure_threshold"),
			OpenTimeout:      v.GetDuration("llm.open_timeout"),
		},
		Anthropic: AnthropicConfig{
			APIKey:  v.GetString("anthropic.api_key"),
			Model:   v.GetString("anthropic.model"),
			BaseURL: v.GetString("anthropic.base_url"),
		},
		OpenAI: OpenAIConfig{
			APIKey:  v.GetString("openai.api_key"),
			Model:   v.GetString("openai.model"),
			BaseURL: v.GetString("openai.base_url"),
		},
		Gemini: GeminiConfig{
			APIKey:  v.GetString("gemini.api_key"),
			Model:   v.GetString("gemini.model"),
			BaseURL: v.GetString("gemini.base_url"),
		},
		Wizard: WizardConfig{
			MinAnswerLength:  v.GetInt("wizard.min_answer_length"),
			AckMode:          strings.ToLower(v.GetString("wizard.ack_mode")),
			RemoteValidation: v.GetBool("wizard.remote_validation"),
			RemoteSummary:    v.GetBool("wizard.remote_summary"),
		},
		Sessions: SessionsConfig{
			Max: v.GetInt("sessions.max"),
			TTL: v.GetDuration("sessions.ttl"),
		},
		Generation: GenerationConfig{
			DefaultTone:      v.GetString("generation.default_tone"),
			DefaultWordLimit: v.GetInt("generation.default_word_limit"),
			PerMinute:        v.GetInt("generation.per_minute"),
			PerHour:          v.GetInt("generation.per_hour"),
			PerDay:           v.GetInt("generation.per_day"),
			MaxConcurrent:    v.GetInt("generation.max_concurrent"),
		},
		Redis: RedisConfig{
			Enabled:  v.GetBool("redis.enabled"),
			Addr:     v.GetString("redis.addr"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Archive: ArchiveConfig{
			Enabled:   v.GetBool("archive.enabled"),
			Endpoint:  v.GetString("archive.endpoint"),
			AccessKey: v.GetString("archive.access_key"),
			SecretKey: v.GetString("archive.secret_key"),
			Bucket:    v.GetString("archive.bucket"),
			UseSSL:    v.GetBool("archive.use_ssl"),
		},
		Tracing: TracingConfig{
			Enabled:     v.GetBool("tracing.enabled"),
			Exporter:    strings.ToLower(v.GetString("tracing.exporter")),
			Endpoint:    v.GetString("tracing.endpoint"),
			SampleRatio: v.GetFloat64("tracing.sample_ratio"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
		},
		RateLimit: RateLimitConfig{
			Requests: v.GetInt("rate_limit.requests"),
			Window:   v.GetDuration("rate_limit.window"),
		},
		CLI: CLIConfig{
			DBPath:  v.GetString("cli.db_path"),
			LogFile: v.GetString("cli.log_file"),
		},
	}, nil
}

// setDefaults configures default values for all settings.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.env", "development")
	v.SetDefault("server.shutdown_timeout", "30s")
	v.SetDefault("server.max_body_bytes", 1<<20)

	// Database defaults
	v.SetDefault("database.driver", DriverPostgres)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "draftwise")
	v.SetDefault("database.name", "draftwise")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_connections", 25)
	v.SetDefault("database.min_connections", 2)
	v.SetDefault("database.connection_max_lifetime", "5m")
	v.SetDefault("database.sqlite_path", "draftwise.db")

	// LLM defaults
	v.SetDefault("llm.provider", ProviderAnthropic)
	v.SetDefault("llm.timeout", "60s")
	v.SetDefault("llm.max_tokens", 2048)
	v.SetDefault("llm.temperature", 0.7)
	v.SetDefault("llm.failure_threshold", 5)
	v.SetDefault("llm.open_timeout", "30s")
	v.SetDefault("anthropic.model", "claude-sonnet-4-20250514")
	v.SetDefault("anthropic.base_url", "https://api.anthropic.com/v1")
	v.SetDefault("openai.model", "gpt-4o-mini")
	v.SetDefault("gemini.model", "gemini-2.5-flash")

	// Wizard defaults
	v.SetDefault("wizard.min_answer_length", 10)
	v.SetDefault("wizard.ack_mode", AckModeRandom)
	v.SetDefault("wizard.remote_validation", true)
	v.SetDefault("wizard.remote_summary", true)
	v.SetDefault("sessions.max", 10000)
	v.SetDefault("sessions.ttl", "2h")

	// Generation defaults
	v.SetDefault("generation.default_tone", "first-person")
	v.SetDefault("generation.default_word_limit", 500)
	v.SetDefault("generation.per_minute", 10)
	v.SetDefault("generation.per_hour", 100)
	v.SetDefault("generation.per_day", 500)
	v.SetDefault("generation.max_concurrent", 5)

	// Optional infrastructure
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("archive.bucket", "draftwise")
	v.SetDefault("tracing.exporter", "otlp")
	v.SetDefault("tracing.endpoint", "localhost:4318")
	v.SetDefault("tracing.sample_ratio", 1.0)

	// Log defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Rate limit defaults
	v.SetDefault("rate_limit.requests", 100)
	v.SetDefault("rate_limit.window", "1m")

	// CLI defaults
	v.SetDefault("cli.db_path", "draftwise.db")
}

// Validate checks everything the server needs. All missing keys are reported
// at once.
func (c *Config) Validate() error {
	var missing []string
	switch c.Database.Driver {
	case DriverPostgres:
		if c.Database.Password == "" {
			missing = append(missing, "DATABASE_PASSWORD")
		}
	case DriverSQLite:
		if c.Database.SQLitePath == "" {
			missing = append(missing, "DATABASE_SQLITE_PATH")
		}
	default:
		return fmt.Errorf("invalid database.driver %q (valid: %s, %s)", c.Database.Driver, DriverPostgres, DriverSQLite)
	}
	missing = append(missing, c.missingLLM()...)
	if c.Redis.Enabled && c.Redis.Addr == "" {
		missing = append(missing, "REDIS_ADDR")
	}
	if c.Archive.Enabled {
		required := []struct{ key, val string }{
			{"ARCHIVE_ENDPOINT", c.Archive.Endpoint},
			{"ARCHIVE_ACCESS_KEY", c.Archive.AccessKey},
			{"ARCHIVE_SECRET_KEY", c.Archive.SecretKey},
			{"ARCHIVE_BUCKET", c.Archive.Bucket},
		}
		for _, r := range required {
			if r.val == "" {
				missing = append(missing, r.key)
			}
		}
	}
	if len(missing) > 0 {
		return missingError(missing)
	}
	if c.Tracing.Enabled && c.Tracing.Exporter != "otlp" && c.Tracing.Exporter != "stdout" {
		return fmt.Errorf("invalid tracing.exporter %q (valid: otlp, stdout)", c.Tracing.Exporter)
	}
	return c.validateRanges()
}

// ValidateClient checks what the terminal client needs.
func (c *Config) ValidateClient() error {
	missing := c.missingLLM()
	if c.CLI.DBPath == "" {
		missing = append(missing, "CLI_DB_PATH")
	}
	if len(missing) > 0 {
		return missingError(missing)
	}
	return c.validateRanges()
}

func (c *Config) missingLLM() []string {
	switch c.LLM.Provider {
	case ProviderAnthropic:
		if c.Anthropic.APIKey == "" {
			return []string{"ANTHROPIC_API_KEY"}
		}
	case ProviderOpenAI:
		if c.OpenAI.APIKey == "" {
			return []string{"OPENAI_API_KEY"}
		}
	case ProviderGemini:
		if c.Gemini.APIKey == "" {
			return []string{"GEMINI_API_KEY"}
		}
	case ProviderNone:
	default:
		return []string{fmt.Sprintf("LLM_PROVIDER (unknown provider %q)", c.LLM.Provider)}
	}
	return nil
}

func (c *Config) validateRanges() error {
	var problems []string
	if c.Wizard.MinAnswerLength < 1 {
		problems = append(problems, "wizard.min_answer_length must be at least 1")
	}
	if c.Wizard.AckMode != AckModeRandom && c.Wizard.AckMode != AckModeRotating {
		problems = append(problems, fmt.Sprintf("wizard.ack_mode must be %s or %s", AckModeRandom, AckModeRotating))
	}
	if c.Generation.DefaultWordLimit < 100 || c.Generation.DefaultWordLimit > 1000 {
		problems = append(problems, "generation.default_word_limit must be between 100 and 1000")
	}
	if c.Generation.DefaultTone != "first-person" && c.Generation.DefaultTone != "third-person" {
		problems = append(problems, "generation.default_tone must be first-person or third-person")
	}
	if c.Sessions.Max < 1 {
		problems = append(problems, "sessions.max must be at least 1")
	}
	if c.Sessions.TTL <= 0 {
		problems = append(problems, "sessions.ttl must be positive")
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

func missingError(missing []string) error {
	return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
}
