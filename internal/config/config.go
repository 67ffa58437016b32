// Sentinel - Unattended-Site Video Monitoring and Tiered Alerting
// Copyright 2026 Sentinel Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sentinelcam/sentinel

// Package config defines the Sentinel configuration model and its layered
// loading: struct defaults, then an optional YAML file, then environment
// variables.
package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/sentinelcam/sentinel/internal/action"
	"github.com/sentinelcam/sentinel/internal/logging"
	"github.com/sentinelcam/sentinel/internal/notify"
	"github.com/sentinelcam/sentinel/internal/perception"
	"github.com/sentinelcam/sentinel/internal/tamper"
)

// Config is the full application configuration.
type Config struct {
	Logging    LoggingConfig     `koanf:"logging"`
	Server     ServerConfig      `koanf:"server"`
	Capture    CaptureConfig     `koanf:"capture"`
	Tamper     tamper.Config     `koanf:"tamper"`
	Perception perception.Config `koanf:"perception"`
	Action     action.Config     `koanf:"action"`
	Alerts     AlertsConfig      `koanf:"alerts"`
	Notify     NotifyConfig      `koanf:"notify"`
}

// LoggingConfig configures the application logger.
type LoggingConfig struct {
	Level     string `koanf:"level" json:"level" validate:"oneof=trace debug info warn error fatal panic"`
	Format    string `koanf:"format" json:"format" validate:"oneof=json console"`
	Caller    bool   `koanf:"caller" json:"caller"`
	Timestamp bool   `koanf:"timestamp" json:"timestamp"`
}

// ToLogging converts to the logging package's config.
func (c LoggingConfig) ToLogging() logging.Config {
	return logging.Config{
		Level:     c.Level,
		Format:    c.Format,
		Caller:    c.Caller,
		Timestamp: c.Timestamp,
	}
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Host string `koanf:"host" json:"host"`
	Port int    `koanf:"port" json:"port" validate:"gt=0,lte=65535"`

	CORSOrigins []string `koanf:"cors_origins" json:"cors_origins"`

	// RateLimit is requests per minute per client IP. 0 disables limiting.
	RateLimit int `koanf:"rate_limit" json:"rate_limit" validate:"gte=0"`

	ReadTimeout time.Duration `koanf:"read_timeout" json:"read_timeout" validate:"gt=0"`

	// WriteTimeout must stay 0: the MJPEG live feed holds its response
	// open for the lifetime of the viewer.
	WriteTimeout    time.Duration `koanf:"write_timeout" json:"write_timeout" validate:"eq=0"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" json:"shutdown_timeout" validate:"gt=0"`
}

// Addr returns the listen address.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// CaptureConfig configures the default video source.
type CaptureConfig struct {
	// Source is the video source URL: http(s) MJPEG streams and the
	// synthetic: test pattern are supported. Empty means no autostart.
	Source string `koanf:"source" json:"source"`

	// Name labels the source in alerts, logs, and metrics.
	Name string `koanf:"name" json:"name"`

	// FPS is the nominal source frame rate.
	FPS float64 `koanf:"fps" json:"fps" validate:"gt=0"`

	// BufferSize caps the ingestion queue; the oldest frame is dropped
	// when it is full.
	BufferSize int `koanf:"buffer_size" json:"buffer_size" validate:"gt=0"`

	// OutputBufferSize caps the annotated-frame queue feeding the live
	// stream.
	OutputBufferSize int `koanf:"output_buffer_size" json:"output_buffer_size" validate:"gt=0"`

	// Autostart launches the pipeline at boot when a source is set.
	Autostart bool `koanf:"autostart" json:"autostart"`
}

// AlertsConfig configures alert handling and evidence storage.
type AlertsConfig struct {
	// Cooldown is the global minimum spacing between dispatched alerts.
	Cooldown time.Duration `koanf:"cooldown" json:"cooldown" validate:"gte=0"`

	// DedupWindow suppresses history entries repeating the same
	// (level, reasons) condition.
	DedupWindow time.Duration `koanf:"dedup_window" json:"dedup_window" validate:"gte=0"`

	SnapshotDir     string `koanf:"snapshot_dir" json:"snapshot_dir" validate:"required"`
	SnapshotQuality int    `koanf:"snapshot_quality" json:"snapshot_quality" validate:"gt=0,lte=100"`

	// StorePath is the BadgerDB directory for the alert history. Empty
	// keeps history in memory only.
	StorePath string `koanf:"store_path" json:"store_path"`
}

// NotifyConfig configures the outbound alert channels. A channel with an
// empty config is disabled.
type NotifyConfig struct {
	Twilio  notify.TwilioConfig  `koanf:"twilio"`
	Email   notify.EmailConfig   `koanf:"email"`
	Webhook notify.WebhookConfig `koanf:"webhook"`
}

// Default returns the baseline configuration.
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:     "info",
			Format:    "json",
			Timestamp: true,
		},
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			CORSOrigins:     []string{"*"},
			RateLimit:       300,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    0,
			ShutdownTimeout: 10 * time.Second,
		},
		Capture: CaptureConfig{
			Name:             "default",
			FPS:              25,
			BufferSize:       500,
			OutputBufferSize: 100,
		},
		Tamper:     tamper.DefaultConfig(),
		Perception: perception.DefaultConfig(),
		Action:     action.DefaultConfig(),
		Alerts: AlertsConfig{
			Cooldown:        30 * time.Second,
			DedupWindow:     30 * time.Second,
			SnapshotDir:     "snapshots",
			SnapshotQuality: 85,
			StorePath:       "",
		},
	}
}

// Validate checks the configuration with struct tags plus cross-field
// rules the tags cannot express.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if c.Server.WriteTimeout != 0 {
		// The MJPEG live feed holds its response open indefinitely; a
		// server-wide write timeout would cut every stream.
		return fmt.Errorf("server.write_timeout must be 0, streaming endpoints require it")
	}

	if c.Notify.Webhook.Enabled() {
		if err := notify.ValidateWebhookURL(c.Notify.Webhook.URL); err != nil {
			return fmt.Errorf("notify.webhook: %w", err)
		}
	}
	return nil
}
