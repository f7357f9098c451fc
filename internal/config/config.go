package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Artifact sources
const (
	SourceFile     = "file"
	SourcePostgres = "postgres"
)

// Config holds the service configuration
type Config struct {
	Port           string        `mapstructure:"port"`
	DatabaseURL    string        `mapstructure:"database_url"`
	ArtifactSource string        `mapstructure:"artifact_source"`
	ArtifactDir    string        `mapstructure:"artifact_dir"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`

	LogLevel      string `mapstructure:"log_level"`
	LogFormat     string `mapstructure:"log_format"`
	LogSampleRate int    `mapstructure:"log_sample_rate"`
	OTELEnabled   bool   `mapstructure:"otel_enabled"`
	OTELService   string `mapstructure:"otel_service_name"`
}

// EnvPrefix namespaces environment overrides, e.g. PREMIUM_PORT
const EnvPrefix = "PREMIUM"

// New returns a viper instance with defaults and environment binding set up
func New() *viper.Viper {
	v := viper.New()

	v.SetDefault("port", "8080")
	v.SetDefault("database_url", "")
	v.SetDefault("artifact_source", SourceFile)
	v.SetDefault("artifact_dir", "artifacts")
	v.SetDefault("request_timeout", 10*time.Second)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "json")
	v.SetDefault("log_sample_rate", 1)
	v.SetDefault("otel_enabled", false)
	v.SetDefault("otel_service_name", "premium-service")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	return v
}

// Load reads .env (if present), an optional YAML config file and the
// environment, then validates the result
func Load(configFile string) (*Config, error) {
	_ = godotenv.Load()

	v := New()
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}
	return FromViper(v)
}

// FromViper decodes and validates a configured viper instance
func FromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cross-field constraints
func (c *Config) Validate() error {
	switch c.ArtifactSource {
	case SourceFile:
		if c.ArtifactDir == "" {
			return errors.New("artifact_dir is required when artifact_source is file")
		}
	case SourcePostgres:
		if c.DatabaseURL == "" {
			return errors.New("database_url is required when artifact_source is postgres")
		}
	default:
		return fmt.Errorf("unknown artifact_source %q (use %s or %s)", c.ArtifactSource, SourceFile, SourcePostgres)
	}
	if c.Port == "" {
		return errors.New("port is required")
	}
	if c.RequestTimeout <= 0 {
		return errors.New("request_timeout must be positive")
	}
	return nil
}

// Address returns the HTTP listen address
func (c *Config) Address() string {
	return ":" + c.Port
}
