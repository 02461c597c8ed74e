package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"spactl/internal/storage"
)

const (
	// ConfigDirName is created in the user's home directory
	ConfigDirName  = ".spactl"
	ConfigFileName = "config.json"

	// EnvPrefix prefixes every environment override, e.g. SPACTL_API_URL
	EnvPrefix = "SPACTL"

	// HomeEnv relocates the config directory
	HomeEnv = "SPACTL_HOME"

	DefaultAPIURL   = "http://localhost:3001/api/v1"
	DefaultAppURL   = "http://localhost:3000"
	DefaultTimeout  = 30 * time.Second
	DefaultLogLevel = "warn"
)

// Config represents the application configuration
type Config struct {
	// Backend API base URL including the version prefix
	APIURL string `mapstructure:"api_url" validate:"required,url"`

	// Web app origin used for checkout return URLs
	AppURL string `mapstructure:"app_url" validate:"required,url"`

	Timeout  time.Duration `mapstructure:"timeout" validate:"gt=0"`
	LogLevel string        `mapstructure:"log_level" validate:"oneof=trace debug info warn warning error fatal panic"`

	Storage StorageConfig `mapstructure:"storage"`
}

// StorageConfig selects where the session token and user state are kept
type StorageConfig struct {
	Driver string      `mapstructure:"driver" validate:"oneof=file redis memory noop"`
	Dir    string      `mapstructure:"dir"`
	Redis  RedisConfig `mapstructure:"redis"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db" validate:"gte=0"`
	Prefix   string `mapstructure:"prefix"`
}

var defaults = map[string]any{
	"api_url":                DefaultAPIURL,
	"app_url":                DefaultAppURL,
	"timeout":                DefaultTimeout.String(),
	"log_level":              DefaultLogLevel,
	"storage.driver":         storage.DriverFile,
	"storage.dir":            "",
	"storage.redis.addr":     "localhost:6379",
	"storage.redis.password": "",
	"storage.redis.db":       0,
	"storage.redis.prefix":   "spactl:",
}

// Keys lists every configuration key, sorted
func Keys() []string {
	keys := make([]string, 0, len(defaults))
	for k := range defaults {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// IsKey reports whether key is a known configuration key
func IsKey(key string) bool {
	_, ok := defaults[key]
	return ok
}

// GetGlobalConfigDir returns the directory holding config.json and stored
// session files
func GetGlobalConfigDir() (string, error) {
	if dir := os.Getenv(HomeEnv); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("error finding home directory: %w", err)
	}
	return filepath.Join(home, ConfigDirName), nil
}

// GetGlobalConfigPath returns the path of the global config file
func GetGlobalConfigPath() (string, error) {
	dir, err := GetGlobalConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, ConfigFileName), nil
}

// LoadDotEnv loads variables from the given .env files (".env" when none
// are given). Missing files are ignored and existing variables win.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if _, err := os.Stat(p); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("error loading %s: %w", p, err)
		}
	}
	return nil
}

func newViper() *viper.Viper {
	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads the config file at path, applying defaults and SPACTL_*
// environment overrides. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(path)
	v.SetConfigType("json")

	if _, err := os.Stat(path); err == nil {
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config %s: %w", path, err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error decoding config: %w", err)
	}

	if cfg.Storage.Dir == "" {
		cfg.Storage.Dir = filepath.Dir(path)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the configuration values
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var errs validator.ValidationErrors
		if !errors.As(err, &errs) {
			return err
		}
		msgs := make([]string, 0, len(errs))
		for _, e := range errs {
			msgs = append(msgs, fmt.Sprintf("%s: invalid value %q (%s)", e.Namespace(), fmt.Sprint(e.Value()), e.Tag()))
		}
		return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
	}
	if c.Storage.Driver == storage.DriverRedis && c.Storage.Redis.Addr == "" {
		return errors.New("invalid config: storage.redis.addr is required for the redis driver")
	}
	return nil
}

// StorageOptions converts the storage section for storage.Open
func (c *Config) StorageOptions() storage.Config {
	return storage.Config{
		Driver: c.Storage.Driver,
		Dir:    c.Storage.Dir,
		Redis: storage.RedisConfig{
			Addr:     c.Storage.Redis.Addr,
			Password: c.Storage.Redis.Password,
			DB:       c.Storage.Redis.DB,
			Prefix:   c.Storage.Redis.Prefix,
		},
	}
}

// Get returns the effective value of key as a string
func (c *Config) Get(key string) (string, error) {
	switch key {
	case "api_url":
		return c.APIURL, nil
	case "app_url":
		return c.AppURL, nil
	case "timeout":
		return c.Timeout.String(), nil
	case "log_level":
		return c.LogLevel, nil
	case "storage.driver":
		return c.Storage.Driver, nil
	case "storage.dir":
		return c.Storage.Dir, nil
	case "storage.redis.addr":
		return c.Storage.Redis.Addr, nil
	case "storage.redis.password":
		return c.Storage.Redis.Password, nil
	case "storage.redis.db":
		return fmt.Sprint(c.Storage.Redis.DB), nil
	case "storage.redis.prefix":
		return c.Storage.Redis.Prefix, nil
	}
	return "", fmt.Errorf("unknown config key %q", key)
}

// Set writes key=value into the config file at path, keeping other keys.
// The resulting configuration must validate.
func Set(path, key, value string) error {
	if !IsKey(key) {
		return fmt.Errorf("unknown config key %q (known keys: %s)", key, strings.Join(Keys(), ", "))
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")
	if _, err := os.Stat(path); err == nil {
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("error reading config %s: %w", path, err)
		}
	}
	v.Set(key, value)

	// validate before writing
	check := newViper()
	if err := check.MergeConfigMap(v.AllSettings()); err != nil {
		return err
	}
	var cfg Config
	if err := check.Unmarshal(&cfg); err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	if cfg.Storage.Dir == "" {
		cfg.Storage.Dir = filepath.Dir(path)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	return v.WriteConfigAs(path)
}

// Save writes the whole configuration to path
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}

	doc := map[string]any{
		"api_url":   c.APIURL,
		"app_url":   c.AppURL,
		"timeout":   c.Timeout.String(),
		"log_level": c.LogLevel,
		"storage": map[string]any{
			"driver": c.Storage.Driver,
			"dir":    c.Storage.Dir,
			"redis": map[string]any{
				"addr":     c.Storage.Redis.Addr,
				"password": c.Storage.Redis.Password,
				"db":       c.Storage.Redis.DB,
				"prefix":   c.Storage.Redis.Prefix,
			},
		},
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}

// Default returns the built-in configuration with storage under dir
func Default(dir string) *Config {
	return &Config{
		APIURL:   DefaultAPIURL,
		AppURL:   DefaultAppURL,
		Timeout:  DefaultTimeout,
		LogLevel: DefaultLogLevel,
		Storage: StorageConfig{
			Driver: storage.DriverFile,
			Dir:    dir,
			Redis: RedisConfig{
				Addr:   "localhost:6379",
				Prefix: "spactl:",
			},
		},
	}
}
