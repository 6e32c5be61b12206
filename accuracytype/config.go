package accuracytype

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"
)

// Config holds process-wide defaults for the accuracy pipeline. It follows
// the teacher framework's three-layer priority: defaults, then environment
// variables, then functional options (highest).
type Config struct {
	ServiceName string        `json:"service_name" env:"ACCURACY_SERVICE_NAME" default:"accuracy-pipeline"`
	Timeout     time.Duration `json:"timeout" env:"ACCURACY_TIMEOUT" default:"30s"`

	Logging LoggingConfig `json:"logging"`

	logger Logger `json:"-"`
}

// LoggingConfig mirrors the teacher's LoggingConfig shape.
type LoggingConfig struct {
	Level  string `json:"level" env:"ACCURACY_LOG_LEVEL" default:"info"`
	Format string `json:"format" env:"ACCURACY_LOG_FORMAT" default:"text"`
}

// Option is a functional config option, applied after defaults and env vars.
type Option func(*Config) error

// WithServiceName overrides the service name used in logs/telemetry.
func WithServiceName(name string) Option {
	return func(c *Config) error {
		if name == "" {
			return fmt.Errorf("service name cannot be empty")
		}
		c.ServiceName = name
		return nil
	}
}

// WithTimeout overrides the default pipeline timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Config) error {
		if d <= 0 {
			return fmt.Errorf("timeout must be positive")
		}
		c.Timeout = d
		return nil
	}
}

// WithLogger injects a custom logger, bypassing LoggingConfig.
func WithLogger(l Logger) Option {
	return func(c *Config) error {
		c.logger = l
		return nil
	}
}

// DefaultConfig returns a Config populated with built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		ServiceName: "accuracy-pipeline",
		Timeout:     30 * time.Second,
		Logging:     LoggingConfig{Level: "info", Format: "text"},
	}
}

// NewConfig builds a Config: defaults, then environment overrides, then
// functional options, then validation.
func NewConfig(opts ...Option) (*Config, error) {
	cfg := DefaultConfig()
	cfg.loadFromEnv()

	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}

	if cfg.logger == nil {
		cfg.logger = NewTextLogger(cfg.ServiceName, cfg.Logging)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (c *Config) loadFromEnv() {
	if v := os.Getenv("ACCURACY_SERVICE_NAME"); v != "" {
		c.ServiceName = v
	}
	if v := os.Getenv("ACCURACY_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Timeout = d
		}
	}
	if v := os.Getenv("ACCURACY_LOG_LEVEL"); v != "" {
		c.Logging.Level = strings.ToLower(v)
	}
	if v := os.Getenv("ACCURACY_LOG_FORMAT"); v != "" {
		c.Logging.Format = v
	}
}

// Validate checks invariants on the assembled configuration.
func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("%w: timeout must be positive", ErrInvalidConfiguration)
	}
	if c.ServiceName == "" {
		return fmt.Errorf("%w: service name required", ErrInvalidConfiguration)
	}
	return nil
}

// Logger returns the configured logger, falling back to a no-op.
func (c *Config) Logger() Logger {
	if c.logger == nil {
		return NoOpLogger{}
	}
	return c.logger
}

var ErrInvalidConfiguration = fmt.Errorf("invalid_configuration")

// textLogger is a minimal, dependency-free structured logger matching the
// teacher's ProductionLogger behavior (text vs json format, level gating).
type textLogger struct {
	service string
	level   string
	json    bool
}

// NewTextLogger builds a Logger writing to stdout in the configured format.
func NewTextLogger(service string, cfg LoggingConfig) Logger {
	return &textLogger{service: service, level: strings.ToLower(cfg.Level), json: cfg.Format == "json"}
}

func (l *textLogger) log(level, msg string, fields map[string]interface{}) {
	if !l.enabled(level) {
		return
	}
	if l.json {
		fmt.Printf(`{"level":%q,"service":%q,"msg":%q,"fields":%v,"time":%q}`+"\n",
			level, l.service, msg, fields, time.Now().Format(time.RFC3339))
		return
	}
	fmt.Printf("[%s] %s: %s %v\n", strings.ToUpper(level), l.service, msg, fields)
}

func (l *textLogger) enabled(level string) bool {
	rank := map[string]int{"debug": 0, "info": 1, "warn": 2, "error": 3}
	want, ok := rank[l.level]
	if !ok {
		want = 1
	}
	got, ok := rank[level]
	if !ok {
		got = 1
	}
	return got >= want
}

func (l *textLogger) Info(msg string, fields map[string]interface{})  { l.log("info", msg, fields) }
func (l *textLogger) Error(msg string, fields map[string]interface{}) { l.log("error", msg, fields) }
func (l *textLogger) Warn(msg string, fields map[string]interface{})  { l.log("warn", msg, fields) }
func (l *textLogger) Debug(msg string, fields map[string]interface{}) { l.log("debug", msg, fields) }

// The context-aware variants delegate to the plain ones; trace/span
// correlation is the telemetry package's job, not this dependency-free
// default logger's.
func (l *textLogger) InfoWithContext(_ context.Context, msg string, fields map[string]interface{}) {
	l.log("info", msg, fields)
}
func (l *textLogger) ErrorWithContext(_ context.Context, msg string, fields map[string]interface{}) {
	l.log("error", msg, fields)
}
func (l *textLogger) WarnWithContext(_ context.Context, msg string, fields map[string]interface{}) {
	l.log("warn", msg, fields)
}
func (l *textLogger) DebugWithContext(_ context.Context, msg string, fields map[string]interface{}) {
	l.log("debug", msg, fields)
}

func (l *textLogger) WithComponent(component string) Logger {
	return &textLogger{service: l.service + "/" + component, level: l.level, json: l.json}
}

var _ ComponentAwareLogger = (*textLogger)(nil)
