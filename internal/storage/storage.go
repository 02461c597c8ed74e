// Package storage provides the durable key/value storage that survives
// between spactl invocations. It plays the role a browser's localStorage
// plays for a web client: the session token and the user/subscription
// snapshot live here.
package storage

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Storage is a string key/value store.
//
// GetItem reports a missing key as ("", false, nil).
type Storage interface {
	GetItem(key string) (string, bool, error)
	SetItem(key, value string) error
	RemoveItem(key string) error
	Close() error
}

// Supported drivers
const (
	DriverFile   = "file"
	DriverRedis  = "redis"
	DriverMemory = "memory"
	DriverNoop   = "noop"
)

var (
	// ErrInvalidKey is returned for keys that cannot be stored safely
	ErrInvalidKey = errors.New("invalid storage key")

	// ErrUnknownDriver is returned by Open for an unsupported driver name
	ErrUnknownDriver = errors.New("unknown storage driver")
)

// Config selects and configures a storage driver
type Config struct {
	Driver string
	Dir    string
	Redis  RedisConfig
}

// RedisConfig configures the redis driver
type RedisConfig struct {
	Addr        string
	Password    string
	DB          int
	Prefix      string
	DialTimeout time.Duration
	Timeout     time.Duration
}

// Open returns the storage selected by cfg.Driver. An empty driver means file.
func Open(cfg Config) (Storage, error) {
	switch strings.ToLower(cfg.Driver) {
	case "", DriverFile:
		return NewFileStorage(cfg.Dir)
	case DriverRedis:
		return NewRedisStorage(cfg.Redis)
	case DriverMemory:
		return NewMemory(), nil
	case DriverNoop:
		return Noop{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.Driver)
	}
}

func validateKey(key string) error {
	if key == "" || strings.ContainsAny(key, `/\`) || key == "." || key == ".." {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return nil
}
