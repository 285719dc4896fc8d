// validation.go - Configuration validation for File Drop.
//
// Checks every setting at startup and reports all problems at once so the
// process fails fast with a clear message.
package config

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// ValidationError describes one invalid setting.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("config validation failed for %s: %s", e.Field, e.Message)
}

// Validator collects validation errors.
type Validator struct {
	errors []ValidationError
}

func NewValidator() *Validator {
	return &Validator{errors: make([]ValidationError, 0)}
}

func (v *Validator) AddError(field, message string) {
	v.errors = append(v.errors, ValidationError{Field: field, Message: message})
}

func (v *Validator) HasErrors() bool { return len(v.errors) > 0 }

func (v *Validator) Errors() []ValidationError { return v.errors }

// ErrorString returns a formatted string of all errors.
func (v *Validator) ErrorString() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("configuration validation failed with %d error(s):\n", len(v.errors)))
	for i, err := range v.errors {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// ValidateRequired records an error when value is blank.
func (v *Validator) ValidateRequired(key, value string) {
	if strings.TrimSpace(value) == "" {
		v.AddError(key, "required value not set")
	}
}

// ValidateAddr accepts "host:port" or ":port".
func (v *Validator) ValidateAddr(key, value string) {
	if value == "" {
		v.AddError(key, "listen address not set")
		return
	}

	idx := strings.LastIndex(value, ":")
	if idx < 0 {
		v.AddError(key, "must be host:port or :port")
		return
	}

	port, err := strconv.Atoi(value[idx+1:])
	if err != nil {
		v.AddError(key, "port must be a number")
		return
	}
	if port < 1 || port > 65535 {
		v.AddError(key, "port must be between 1 and 65535")
	}
}

// ValidateURL checks for an http or https URL. Empty values are skipped.
func (v *Validator) ValidateURL(key, value string) {
	if value == "" {
		return
	}

	parsed, err := url.Parse(value)
	if err != nil {
		v.AddError(key, fmt.Sprintf("invalid URL format: %v", err))
		return
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		v.AddError(key, "URL must use http or https scheme")
	}
}

// ValidateEnum checks value against allowed options. Empty values are skipped.
func (v *Validator) ValidateEnum(key, value string, allowed []string) {
	if value == "" {
		return
	}
	for _, opt := range allowed {
		if value == opt {
			return
		}
	}
	v.AddError(key, fmt.Sprintf("must be one of: %s (got: %s)", strings.Join(allowed, ", "), value))
}

func (v *Validator) ValidatePositive(key string, value int64) {
	if value <= 0 {
		v.AddError(key, "must be a positive integer")
	}
}

// Validate checks the loaded configuration.
func (c *Config) Validate() error {
	v := NewValidator()

	v.ValidateAddr("addr", c.Addr)
	v.ValidateRequired("upload_dir", c.UploadDir)
	v.ValidatePositive("max_file_bytes", c.MaxFileBytes)
	v.ValidatePositive("max_request_bytes", c.MaxRequestBytes)
	if c.MaxFileBytes > 0 && c.MaxRequestBytes > 0 && c.MaxFileBytes > c.MaxRequestBytes {
		v.AddError("max_file_bytes", "must not exceed max_request_bytes")
	}
	if c.ShutdownTimeout <= 0 {
		v.AddError("shutdown_timeout", "must be a positive duration")
	}

	v.ValidateEnum("log.level", c.Log.Level, []string{"debug", "info", "warn", "error"})
	v.ValidateEnum("log.format", c.Log.Format, []string{"text", "json"})

	if c.RateLimit.RPS < 0 {
		v.AddError("rate_limit.rps", "must not be negative")
	}
	if c.RateLimit.RPS > 0 && c.RateLimit.Burst < 1 {
		v.AddError("rate_limit.burst", "must be at least 1 when rate limiting is enabled")
	}

	if c.Mirror.Enabled() {
		// Either "minio:9000" or a URL; URLs must be http(s).
		if strings.Contains(c.Mirror.Endpoint, "://") {
			v.ValidateURL("mirror.endpoint", c.Mirror.Endpoint)
		}
		v.ValidateRequired("mirror.access_key", c.Mirror.AccessKey)
		v.ValidateRequired("mirror.secret_key", c.Mirror.SecretKey)
		v.ValidateRequired("mirror.bucket", c.Mirror.Bucket)
	}

	if c.Audit.Enabled() {
		dsn := c.Audit.DatabaseURL
		if !strings.HasPrefix(dsn, "postgres://") && !strings.HasPrefix(dsn, "postgresql://") {
			v.AddError("audit.database_url", "must be a valid PostgreSQL connection string")
		}
	}

	if c.Telemetry.Enabled() {
		v.ValidateRequired("telemetry.service_name", c.Telemetry.ServiceName)
	}

	if v.HasErrors() {
		return fmt.Errorf("%s", v.ErrorString())
	}
	return nil
}
