// Package config loads File Drop settings from defaults, an optional config
// file and FILEDROP_* environment variables, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	// DefaultMaxFileBytes is the per-file ceiling (50 MB).
	DefaultMaxFileBytes int64 = 50 * 1024 * 1024
	// DefaultMaxRequestBytes is the total request ceiling (100 MB).
	DefaultMaxRequestBytes int64 = 100 * 1024 * 1024

	envPrefix = "FILEDROP"
)

type Config struct {
	Addr            string          `mapstructure:"addr"`
	UploadDir       string          `mapstructure:"upload_dir"`
	MaxFileBytes    int64           `mapstructure:"max_file_bytes"`
	MaxRequestBytes int64           `mapstructure:"max_request_bytes"`
	ShutdownTimeout time.Duration   `mapstructure:"shutdown_timeout"`
	Log             LogConfig       `mapstructure:"log"`
	RateLimit       RateLimitConfig `mapstructure:"rate_limit"`
	Mirror          MirrorConfig    `mapstructure:"mirror"`
	Audit           AuditConfig     `mapstructure:"audit"`
	Telemetry       TelemetryConfig `mapstructure:"telemetry"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// RateLimitConfig limits requests per client IP. RPS 0 disables it.
type RateLimitConfig struct {
	RPS   float64 `mapstructure:"rps"`
	Burst int     `mapstructure:"burst"`
}

// MirrorConfig points at an S3-compatible bucket that receives a copy of
// every stored file. An empty Endpoint disables mirroring.
type MirrorConfig struct {
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Bucket    string `mapstructure:"bucket"`
}

func (m MirrorConfig) Enabled() bool { return m.Endpoint != "" }

// AuditConfig enables the Postgres upload audit trail when DatabaseURL is set.
type AuditConfig struct {
	DatabaseURL string `mapstructure:"database_url"`
}

func (a AuditConfig) Enabled() bool { return a.DatabaseURL != "" }

type TelemetryConfig struct {
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`
	ServiceName  string `mapstructure:"service_name"`
	Insecure     bool   `mapstructure:"insecure"`
}

func (t TelemetryConfig) Enabled() bool { return t.OTLPEndpoint != "" }

func setDefaults(v *viper.Viper) {
	v.SetDefault("addr", ":8090")
	v.SetDefault("upload_dir", "uploads")
	v.SetDefault("max_file_bytes", DefaultMaxFileBytes)
	v.SetDefault("max_request_bytes", DefaultMaxRequestBytes)
	v.SetDefault("shutdown_timeout", 5*time.Second)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("rate_limit.rps", 0)
	v.SetDefault("rate_limit.burst", 20)
	v.SetDefault("mirror.endpoint", "")
	v.SetDefault("mirror.access_key", "")
	v.SetDefault("mirror.secret_key", "")
	v.SetDefault("mirror.bucket", "")
	v.SetDefault("audit.database_url", "")
	v.SetDefault("telemetry.otlp_endpoint", "")
	v.SetDefault("telemetry.service_name", "filedrop")
	v.SetDefault("telemetry.insecure", true)
}

// Load reads configuration. path may be empty, in which case only defaults
// and the environment are used. The result is validated before returning.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config %s: %w", path, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
