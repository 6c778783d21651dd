package config

import (
	"errors"
	"log"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the overall client configuration.
type Config struct {
	API     APIConfig     `yaml:"api"`
	Sync    SyncConfig    `yaml:"sync"`
	Storage StorageConfig `yaml:"storage"`
	Push    PushConfig    `yaml:"push"`
	Bridge  BridgeConfig  `yaml:"bridge"`
}

// APIConfig holds the backend connection settings.
type APIConfig struct {
	BaseURL         string        `yaml:"base_url"`
	TimeoutSeconds  int           `yaml:"timeout_seconds"`
	Timeout         time.Duration `yaml:"-"`
	HTTPProxy       string        `yaml:"http_proxy"`
	RateLimitPerSec float64       `yaml:"rate_limit_per_sec"`
	Burst           int           `yaml:"burst"`
	Breaker         BreakerConfig `yaml:"breaker"`
}

// BreakerConfig controls the circuit breaker in front of the backend.
type BreakerConfig struct {
	Enabled     bool `yaml:"enabled"`
	MaxFailures int  `yaml:"max_failures"`
	OpenSeconds int  `yaml:"open_seconds"`
}

// Ownership decides how a stall is matched to the signed-in user.
type Ownership string

const (
	OwnershipByName Ownership = "name"
	OwnershipByID   Ownership = "id"
)

// SyncConfig holds the occupancy sync settings.
type SyncConfig struct {
	PollIntervalSeconds int           `yaml:"poll_interval_seconds"`
	PollInterval        time.Duration `yaml:"-"`
	Ownership           Ownership     `yaml:"ownership"`
}

// StorageConfig holds the persistent key-value storage settings.
type StorageConfig struct {
	DSN                    string `yaml:"dsn"`
	MaxOpenConns           int    `yaml:"max_open_conns"`
	MaxIdleConns           int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes"`
	LogQueries             bool   `yaml:"log_queries"`
}

// PushConfig holds the push registration and handling settings.
type PushConfig struct {
	DeviceType         string           `yaml:"device_type"`
	Token              string           `yaml:"token"`
	Subscription       *WebPushEndpoint `yaml:"subscription"`
	ReregisterSchedule string           `yaml:"reregister_schedule"`
	DedupWindowSeconds int              `yaml:"dedup_window_seconds"`
	DedupWindow        time.Duration    `yaml:"-"`
	Workers            int              `yaml:"workers"`
	AutoExtend         bool             `yaml:"auto_extend"`
	AutoOccupy         bool             `yaml:"auto_occupy"`
}

// WebPushEndpoint is a browser push subscription registered in place of a device token.
type WebPushEndpoint struct {
	Endpoint string `yaml:"endpoint"`
	P256DH   string `yaml:"p256dh"`
	Auth     string `yaml:"auth"`
}

// BridgeConfig holds the push transports feeding the notification bridge.
type BridgeConfig struct {
	HTTP  HTTPBridgeConfig  `yaml:"http"`
	NATS  NATSBridgeConfig  `yaml:"nats"`
	Redis RedisBridgeConfig `yaml:"redis"`
}

// HTTPBridgeConfig configures the local webhook receiver.
type HTTPBridgeConfig struct {
	Enabled         bool    `yaml:"enabled"`
	Port            int     `yaml:"port"`
	RateLimitPerSec float64 `yaml:"rate_limit_per_sec"`
}

// NATSBridgeConfig configures the NATS push subscription.
type NATSBridgeConfig struct {
	Enabled bool   `yaml:"enabled"`
	URL     string `yaml:"url"`
	Subject string `yaml:"subject"`
}

// RedisBridgeConfig configures the Redis pub/sub push subscription.
type RedisBridgeConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
	Channel string `yaml:"channel"`
}

// Load reads the configuration from the given path.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg Config
	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, err
	}

	if err := cfg.applyDefaults(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (cfg *Config) applyDefaults() error {
	cfg.API.BaseURL = strings.TrimRight(cfg.API.BaseURL, "/")
	if cfg.API.BaseURL == "" {
		return errors.New("api.base_url is required")
	}
	if cfg.API.TimeoutSeconds <= 0 {
		cfg.API.TimeoutSeconds = 15
	}
	cfg.API.Timeout = time.Duration(cfg.API.TimeoutSeconds) * time.Second
	if cfg.API.RateLimitPerSec <= 0 {
		cfg.API.RateLimitPerSec = 5
	}
	if cfg.API.Burst <= 0 {
		cfg.API.Burst = 5
	}
	if cfg.API.Breaker.MaxFailures <= 0 {
		cfg.API.Breaker.MaxFailures = 5
	}
	if cfg.API.Breaker.OpenSeconds <= 0 {
		cfg.API.Breaker.OpenSeconds = 30
	}

	if cfg.Sync.PollIntervalSeconds <= 0 {
		cfg.Sync.PollIntervalSeconds = 30
	}
	cfg.Sync.PollInterval = time.Duration(cfg.Sync.PollIntervalSeconds) * time.Second
	switch cfg.Sync.Ownership {
	case OwnershipByName, OwnershipByID:
	case "":
		cfg.Sync.Ownership = OwnershipByName
	default:
		log.Printf("sync.ownership %q is not recognized; defaulting to %q", cfg.Sync.Ownership, OwnershipByName)
		cfg.Sync.Ownership = OwnershipByName
	}

	if cfg.Storage.DSN == "" {
		cfg.Storage.DSN = "file:washroom.db"
	}

	if cfg.Push.DeviceType == "" {
		cfg.Push.DeviceType = "linux"
	}
	if cfg.Push.ReregisterSchedule == "" {
		cfg.Push.ReregisterSchedule = "@every 12h"
	}
	if cfg.Push.DedupWindowSeconds <= 0 {
		cfg.Push.DedupWindowSeconds = 10
	}
	cfg.Push.DedupWindow = time.Duration(cfg.Push.DedupWindowSeconds) * time.Second
	if cfg.Push.Workers <= 0 {
		log.Printf("push.workers is not set or invalid; defaulting to 1")
		cfg.Push.Workers = 1
	}

	if cfg.Bridge.HTTP.Port <= 0 {
		cfg.Bridge.HTTP.Port = 8085
	}
	if cfg.Bridge.HTTP.RateLimitPerSec <= 0 {
		cfg.Bridge.HTTP.RateLimitPerSec = 5
	}
	if cfg.Bridge.NATS.Subject == "" {
		cfg.Bridge.NATS.Subject = "washroom.push"
	}
	if cfg.Bridge.Redis.Channel == "" {
		cfg.Bridge.Redis.Channel = "washroom:push"
	}
	return nil
}
