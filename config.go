package fingov

import (
	"errors"
	"fmt"
	"time"

	"github.com/viant/fingov/service/commit"
	"github.com/viant/fingov/service/lock"
	lockredis "github.com/viant/fingov/service/lock/redis"
	"github.com/viant/fingov/service/notify"
)

// Store drivers.
const (
	StoreMemory = "memory"
	StoreSQLite = "sqlite"
)

// Lock drivers.
const (
	LockMemory = "memory"
	LockRedis  = "redis"
)

// Config is a serialisable representation of the engine configuration. It can
// be populated from YAML, JSON or viper. Zero sections inherit package defaults.
type Config struct {
	Store        StoreConfig   `json:"store" yaml:"store" mapstructure:"store"`
	Lock         LockConfig    `json:"lock" yaml:"lock" mapstructure:"lock"`
	Retry        commit.Retry  `json:"retry" yaml:"retry" mapstructure:"retry"`
	Notification notify.Config `json:"notification" yaml:"notification" mapstructure:"notification"`
	Audit        AuditConfig   `json:"audit" yaml:"audit" mapstructure:"audit"`
	Policy       PolicyConfig  `json:"policy" yaml:"policy" mapstructure:"policy"`
	HTTP         HTTPConfig    `json:"http" yaml:"http" mapstructure:"http"`
	Log          LogConfig     `json:"log" yaml:"log" mapstructure:"log"`
}

type StoreConfig struct {
	Driver string `json:"driver" yaml:"driver" mapstructure:"driver"`
	// Path is the SQLite database file.
	Path string `json:"path,omitempty" yaml:"path,omitempty" mapstructure:"path"`
}

type LockConfig struct {
	Driver string          `json:"driver" yaml:"driver" mapstructure:"driver"`
	Wait   time.Duration   `json:"wait" yaml:"wait" mapstructure:"wait"`
	Redis  RedisLockConfig `json:"redis" yaml:"redis" mapstructure:"redis"`
}

type RedisLockConfig struct {
	Addr     string            `json:"addr" yaml:"addr" mapstructure:"addr"`
	Password string            `json:"password,omitempty" yaml:"password,omitempty" mapstructure:"password"`
	DB       int               `json:"db" yaml:"db" mapstructure:"db"`
	Options  lockredis.Options `json:"options" yaml:"options" mapstructure:"options"`
}

type AuditConfig struct {
	// URL of the append-only archive (any afs scheme); empty keeps entries in memory.
	URL           string        `json:"url,omitempty" yaml:"url,omitempty" mapstructure:"url"`
	SweepInterval time.Duration `json:"sweepInterval" yaml:"sweepInterval" mapstructure:"sweepInterval"`
}

type PolicyConfig struct {
	// URL of the policy catalog document; empty uses built-in defaults.
	URL string `json:"url,omitempty" yaml:"url,omitempty" mapstructure:"url"`
	// BaseURL resolves relative catalog and roster locations.
	BaseURL string `json:"baseURL,omitempty" yaml:"baseURL,omitempty" mapstructure:"baseURL"`
}

type HTTPConfig struct {
	Addr            string        `json:"addr" yaml:"addr" mapstructure:"addr"`
	ShutdownTimeout time.Duration `json:"shutdownTimeout" yaml:"shutdownTimeout" mapstructure:"shutdownTimeout"`
}

type LogConfig struct {
	Level       string `json:"level" yaml:"level" mapstructure:"level"`
	Development bool   `json:"development" yaml:"development" mapstructure:"development"`
}

// DefaultConfig returns a Config populated with the defaults used by New.
// Callers may modify the returned struct before passing it to WithConfig.
func DefaultConfig() *Config {
	return &Config{
		Store: StoreConfig{Driver: StoreMemory},
		Lock: LockConfig{
			Driver: LockMemory,
			Wait:   lock.DefaultWait,
			Redis:  RedisLockConfig{Addr: "localhost:6379", Options: lockredis.DefaultOptions()},
		},
		Retry:        commit.DefaultRetry(),
		Notification: notify.DefaultConfig(),
		Audit:        AuditConfig{SweepInterval: time.Minute},
		HTTP:         HTTPConfig{Addr: ":8080", ShutdownTimeout: 10 * time.Second},
		Log:          LogConfig{Level: "info"},
	}
}

// Validate returns aggregated error describing invalid settings or nil.
func (c *Config) Validate() error {
	if c == nil {
		return nil
	}
	var errs []error
	switch c.Store.Driver {
	case "", StoreMemory:
	case StoreSQLite:
		if c.Store.Path == "" {
			errs = append(errs, fmt.Errorf("store.path is required for the %s driver", StoreSQLite))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported store.driver: %q", c.Store.Driver))
	}
	switch c.Lock.Driver {
	case "", LockMemory:
	case LockRedis:
		if c.Lock.Redis.Addr == "" {
			errs = append(errs, fmt.Errorf("lock.redis.addr is required for the %s driver", LockRedis))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported lock.driver: %q", c.Lock.Driver))
	}
	if c.Lock.Wait < 0 {
		errs = append(errs, fmt.Errorf("lock.wait must be >= 0"))
	}
	if c.Retry.MaxAttempts < 0 {
		errs = append(errs, fmt.Errorf("retry.maxAttempts must be >= 0"))
	}
	if c.Audit.SweepInterval < 0 {
		errs = append(errs, fmt.Errorf("audit.sweepInterval must be >= 0"))
	}
	return errors.Join(errs...)
}
