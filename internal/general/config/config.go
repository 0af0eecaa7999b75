package config

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Database struct {
		Host     string `yaml:"host"`
		Port     int    `yaml:"port" validate:"min=1,max=65535"`
		User     string `yaml:"user" validate:"required"`
		Password string `yaml:"password" validate:"required"`
		Name     string `yaml:"database" validate:"required"`
	} `yaml:"database"`
	RabbitMQ struct {
		Host     string `yaml:"host"`
		Port     int    `yaml:"port" validate:"min=1,max=65535"`
		User     string `yaml:"user" validate:"required"`
		Password string `yaml:"password" validate:"required"`
	} `yaml:"rabbitmq"`
	Redis struct {
		Addr     string `yaml:"addr"` // empty disables the route result cache
		Password string `yaml:"password"`
	} `yaml:"redis"`
	Routing struct {
		BaseURL          string `yaml:"base_url" validate:"required,url"`
		RequestTimeoutMS int    `yaml:"request_timeout_ms" validate:"min=0"`
		CacheTTLSeconds  int    `yaml:"cache_ttl_s" validate:"min=0"`
	} `yaml:"routing"`
	Tracking struct {
		MinDisplacementMeters   float64 `yaml:"min_displacement_meters" validate:"min=0"`
		SlowSpeedMPS            float64 `yaml:"slow_speed_mps" validate:"min=0"`
		SlowCooldownSeconds     int     `yaml:"slow_cooldown_s" validate:"min=0"`
		DebounceMS              int     `yaml:"debounce_ms" validate:"min=0"`
		RefreshIntervalSeconds  int     `yaml:"refresh_interval_s" validate:"min=0"`
		StaleWindowSeconds      int     `yaml:"stale_window_s" validate:"min=0"`
		NearThresholdMeters     float64 `yaml:"near_threshold_meters" validate:"min=0"`
		FallbackSpeedKMH        float64 `yaml:"fallback_speed_kmh" validate:"min=0"`
		DeviceStatusPollSeconds int     `yaml:"device_status_poll_s" validate:"min=0"`
	} `yaml:"tracking"`
	Service struct {
		Port int `yaml:"port" validate:"min=1,max=65535"`
	} `yaml:"service"`
	JWT struct {
		SecretKey string `yaml:"secret_key"`
	} `yaml:"jwt"`
}

// LoadFromFile loads config from a YAML file, applies defaults, and
// validates required fields.
func LoadFromFile(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyDefaults(&cfg)

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// Duration accessors (YAML carries unit-suffixed integers).

func (c *Config) RoutingRequestTimeout() time.Duration {
	return time.Duration(c.Routing.RequestTimeoutMS) * time.Millisecond
}

func (c *Config) RoutingCacheTTL() time.Duration {
	return time.Duration(c.Routing.CacheTTLSeconds) * time.Second
}

func (c *Config) TrackingSlowCooldown() time.Duration {
	return time.Duration(c.Tracking.SlowCooldownSeconds) * time.Second
}

func (c *Config) TrackingDebounce() time.Duration {
	return time.Duration(c.Tracking.DebounceMS) * time.Millisecond
}

func (c *Config) TrackingRefreshInterval() time.Duration {
	return time.Duration(c.Tracking.RefreshIntervalSeconds) * time.Second
}

func (c *Config) TrackingStaleWindow() time.Duration {
	return time.Duration(c.Tracking.StaleWindowSeconds) * time.Second
}

func (c *Config) TrackingDeviceStatusPoll() time.Duration {
	return time.Duration(c.Tracking.DeviceStatusPollSeconds) * time.Second
}

// applyDefaults sets safe defaults for optional fields. The tracking
// defaults are the tuned production values; the config file only needs to
// override them for experiments.
func applyDefaults(cfg *Config) {
	// Database
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}

	// RabbitMQ
	if cfg.RabbitMQ.Host == "" {
		cfg.RabbitMQ.Host = "localhost"
	}
	if cfg.RabbitMQ.Port == 0 {
		cfg.RabbitMQ.Port = 5672
	}

	// Routing
	if cfg.Routing.BaseURL == "" {
		cfg.Routing.BaseURL = "http://localhost:5000"
	}
	if cfg.Routing.RequestTimeoutMS == 0 {
		cfg.Routing.RequestTimeoutMS = 8000
	}
	if cfg.Routing.CacheTTLSeconds == 0 {
		cfg.Routing.CacheTTLSeconds = 10
	}

	// Tracking
	if cfg.Tracking.MinDisplacementMeters == 0 {
		cfg.Tracking.MinDisplacementMeters = 12
	}
	if cfg.Tracking.SlowSpeedMPS == 0 {
		cfg.Tracking.SlowSpeedMPS = 1
	}
	if cfg.Tracking.SlowCooldownSeconds == 0 {
		cfg.Tracking.SlowCooldownSeconds = 15
	}
	if cfg.Tracking.DebounceMS == 0 {
		cfg.Tracking.DebounceMS = 1500
	}
	if cfg.Tracking.RefreshIntervalSeconds == 0 {
		cfg.Tracking.RefreshIntervalSeconds = 10
	}
	if cfg.Tracking.StaleWindowSeconds == 0 {
		cfg.Tracking.StaleWindowSeconds = 60
	}
	if cfg.Tracking.NearThresholdMeters == 0 {
		cfg.Tracking.NearThresholdMeters = 300
	}
	if cfg.Tracking.FallbackSpeedKMH == 0 {
		cfg.Tracking.FallbackSpeedKMH = 55
	}
	if cfg.Tracking.DeviceStatusPollSeconds == 0 {
		cfg.Tracking.DeviceStatusPollSeconds = 15
	}

	// Service
	if cfg.Service.Port == 0 {
		cfg.Service.Port = 3002
	}

	// JWT
	if cfg.JWT.SecretKey == "" {
		key := make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			// fallback: time-based bytes
			key = []byte(fmt.Sprintf("%d", time.Now().UnixNano()))
		}
		cfg.JWT.SecretKey = base64.StdEncoding.EncodeToString(key)
	}
}
