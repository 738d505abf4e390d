// Package config is the single source of truth for runtime configuration.
// It loads typed settings from the process environment, applies documented
// defaults, validates required fields and hands out an immutable Settings
// value to agent constructors and the LLM client factory.
package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"

	"github.com/caarlos0/env/v10"
)

// AppEnv is the deployment environment.
type AppEnv string

const (
	AppEnvDevelopment AppEnv = "development"
	AppEnvStaging     AppEnv = "staging"
	AppEnvProduction  AppEnv = "production"
)

// Settings holds all runtime configuration. It is read-only after Load
// returns: no component may mutate it for the process lifetime. Use
// WithOverrides to derive a modified copy instead.
type Settings struct {
	// OpenAI / LangSmith
	OpenAIAPIKey     string `env:"OPENAI_API_KEY"`
	LangsmithAPIKey  string `env:"LANGSMITH_API_KEY"`
	LangsmithProject string `env:"LANGSMITH_PROJECT" envDefault:"workmate-backend"`

	// Storage. Both URLs are opaque connection strings, not validated here.
	DatabaseURL string `env:"DATABASE_URL"`
	MongoDBURL  string `env:"MONGODB_URL"`

	// Auth
	JWTSecret        string `env:"JWT_SECRET"`
	JWTAlgorithm     string `env:"JWT_ALGORITHM" envDefault:"HS256"`
	JWTExpireMinutes int    `env:"JWT_EXPIRE_MINUTES" envDefault:"30"`

	// AWS credentials are carried for downstream consumers, never consumed
	// by this process.
	AWSAccessKeyID     string `env:"AWS_ACCESS_KEY_ID"`
	AWSSecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY"`
	AWSRegion          string `env:"AWS_REGION" envDefault:"us-east-1"`

	// Application
	AppEnv   AppEnv `env:"APP_ENV" envDefault:"development"`
	Debug    bool   `env:"DEBUG" envDefault:"true"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"INFO"`
	Port     int    `env:"PORT" envDefault:"8000"`

	// Agent workflows
	DefaultModel  string  `env:"LANGRAPH_DEFAULT_MODEL" envDefault:"gpt-4o-mini"`
	AdvancedModel string  `env:"LANGRAPH_ADVANCED_MODEL" envDefault:"gpt-4o"`
	Temperature   float64 `env:"LANGRAPH_TEMPERATURE" envDefault:"0.1"`
	MaxIterations int     `env:"LANGRAPH_MAX_ITERATIONS" envDefault:"10"`
}

// LLMConfig is the parameter set for constructing an LLM client.
type LLMConfig struct {
	Model       string
	Temperature float64
	APIKey      string
}

var logLevels = map[string]bool{
	"DEBUG":   true,
	"INFO":    true,
	"WARNING": true,
	"ERROR":   true,
}

// Load reads the process environment and returns validated Settings.
// Missing optional variables fall back to their documented defaults; a
// missing OPENAI_API_KEY or any malformed or out-of-range value yields a
// *ConfigurationError naming the offending variable. Load performs no I/O
// beyond reading already-materialized environment variables.
func Load() (*Settings, error) {
	s := &Settings{}
	if err := env.Parse(s); err != nil {
		return nil, asConfigurationError(err)
	}
	if err := s.validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Settings) validate() error {
	if s.OpenAIAPIKey == "" {
		return &ConfigurationError{Variable: "OPENAI_API_KEY", Reason: "required variable is not set"}
	}
	switch s.AppEnv {
	case AppEnvDevelopment, AppEnvStaging, AppEnvProduction:
	default:
		return &ConfigurationError{
			Variable: "APP_ENV",
			Value:    string(s.AppEnv),
			Reason:   "must be one of development, staging, production",
		}
	}
	if !logLevels[s.LogLevel] {
		return &ConfigurationError{
			Variable: "LOG_LEVEL",
			Value:    s.LogLevel,
			Reason:   "must be one of DEBUG, INFO, WARNING, ERROR",
		}
	}
	if s.Temperature < 0 || s.Temperature > 2 {
		return &ConfigurationError{
			Variable: "LANGRAPH_TEMPERATURE",
			Value:    fmt.Sprintf("%g", s.Temperature),
			Reason:   "must be in [0, 2]",
		}
	}
	if s.MaxIterations <= 0 {
		return &ConfigurationError{
			Variable: "LANGRAPH_MAX_ITERATIONS",
			Value:    fmt.Sprintf("%d", s.MaxIterations),
			Reason:   "must be greater than 0",
		}
	}
	if s.JWTExpireMinutes <= 0 {
		return &ConfigurationError{
			Variable: "JWT_EXPIRE_MINUTES",
			Value:    fmt.Sprintf("%d", s.JWTExpireMinutes),
			Reason:   "must be greater than 0",
		}
	}
	if s.Port <= 0 || s.Port > 65535 {
		return &ConfigurationError{
			Variable: "PORT",
			Value:    fmt.Sprintf("%d", s.Port),
			Reason:   "must be a valid TCP port",
		}
	}
	return nil
}

// LLMConfig returns the client parameters for an LLM call. Empty overrides
// fall back to the configured defaults. The API key is re-checked here so a
// Settings value constructed by hand cannot smuggle an empty key into a
// client.
func (s *Settings) LLMConfig(modelOverride string, temperatureOverride *float64) (LLMConfig, error) {
	if s.OpenAIAPIKey == "" {
		return LLMConfig{}, &ConfigurationError{Variable: "OPENAI_API_KEY", Reason: "required variable is not set"}
	}
	cfg := LLMConfig{
		Model:       s.DefaultModel,
		Temperature: s.Temperature,
		APIKey:      s.OpenAIAPIKey,
	}
	if modelOverride != "" {
		cfg.Model = modelOverride
	}
	if temperatureOverride != nil {
		if *temperatureOverride < 0 || *temperatureOverride > 2 {
			return LLMConfig{}, &ConfigurationError{
				Variable: "LANGRAPH_TEMPERATURE",
				Value:    fmt.Sprintf("%g", *temperatureOverride),
				Reason:   "override must be in [0, 2]",
			}
		}
		cfg.Temperature = *temperatureOverride
	}
	return cfg, nil
}

// TracingEnabled reports whether LangSmith-style run tracing should be on.
// Absence of the key is not an error, it merely disables tracing.
func (s *Settings) TracingEnabled() bool {
	return s.LangsmithAPIKey != ""
}

// Override mutates the copy produced by WithOverrides.
type Override func(*Settings)

func WithDefaultModel(model string) Override {
	return func(s *Settings) { s.DefaultModel = model }
}

func WithTemperature(t float64) Override {
	return func(s *Settings) { s.Temperature = t }
}

func WithMaxIterations(n int) Override {
	return func(s *Settings) { s.MaxIterations = n }
}

// WithOverrides returns a modified copy of the settings. The receiver is
// never changed; the copy is re-validated so an override cannot produce a
// Settings value that Load would have rejected.
func (s *Settings) WithOverrides(overrides ...Override) (*Settings, error) {
	c := *s
	for _, o := range overrides {
		o(&c)
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// asConfigurationError converts a caarlos0/env parse failure into a
// *ConfigurationError carrying the environment variable name rather than the
// struct field name.
func asConfigurationError(err error) error {
	var agg env.AggregateError
	if errors.As(err, &agg) && len(agg.Errors) > 0 {
		err = agg.Errors[0]
	}
	var pe env.ParseError
	if errors.As(err, &pe) {
		name := envVarFor(pe.Name)
		return &ConfigurationError{
			Variable: name,
			Value:    os.Getenv(name),
			Reason:   fmt.Sprintf("cannot parse as %s", pe.Type),
		}
	}
	return &ConfigurationError{Variable: "environment", Reason: err.Error()}
}

// envVarFor maps a Settings field name to its env tag.
func envVarFor(field string) string {
	t := reflect.TypeOf(Settings{})
	f, ok := t.FieldByName(field)
	if !ok {
		return field
	}
	tag := f.Tag.Get("env")
	if tag == "" {
		return field
	}
	return strings.SplitN(tag, ",", 2)[0]
}
