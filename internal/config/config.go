// Package config loads flowdesigner settings from an optional YAML file,
// a .env file and FLOWDESIGNER_* environment variables, in increasing
// order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/flowgraph/flowdesigner/internal/core/snapshot"
	"github.com/flowgraph/flowdesigner/pkg/validation"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "FLOWDESIGNER"

// Config is the full application configuration.
type Config struct {
	Engine  EngineConfig  `mapstructure:"engine" json:"engine"`
	Storage StorageConfig `mapstructure:"storage" json:"storage"`
	Server  ServerConfig  `mapstructure:"server" json:"server"`
	Log     LogConfig     `mapstructure:"log" json:"log"`
}

// EngineConfig points at the workflow engine.
type EngineConfig struct {
	BaseURL     string        `mapstructure:"base_url" json:"base_url" validate:"required,url"`
	Timeout     time.Duration `mapstructure:"timeout" json:"timeout" validate:"gte=0"` // 0 means no limit
	ProcessName string        `mapstructure:"process_name" json:"process_name" validate:"required"`
}

// StorageConfig selects the snapshot store.
type StorageConfig struct {
	Driver      string `mapstructure:"driver" json:"driver" validate:"oneof=memory sqlite postgres pgx"`
	DSN         string `mapstructure:"dsn" json:"dsn" validate:"required_unless=Driver memory"`
	Key         string `mapstructure:"key" json:"key" validate:"required,max=255"`
	Codec       string `mapstructure:"codec" json:"codec" validate:"oneof=json msgpack"`
	Compression string `mapstructure:"compression" json:"compression" validate:"oneof=none gzip zstd"`
}

// ServerConfig configures flowdesigner-server.
type ServerConfig struct {
	Addr            string        `mapstructure:"addr" json:"addr" validate:"required"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" json:"shutdown_timeout" validate:"gt=0"`
}

// LogConfig configures zap.
type LogConfig struct {
	Level  string `mapstructure:"level" json:"level" validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" json:"format" validate:"oneof=json console"`
}

var defaults = map[string]interface{}{
	"engine.base_url":         "http://localhost:8080",
	"engine.timeout":          "0s",
	"engine.process_name":     "请假流程",
	"storage.driver":          "memory",
	"storage.dsn":             "",
	"storage.key":             snapshot.DefaultKey,
	"storage.codec":           "json",
	"storage.compression":     "none",
	"server.addr":             ":8090",
	"server.shutdown_timeout": "10s",
	"log.level":               "info",
	"log.format":              "json",
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	cfg, _ := load(newViper())
	return cfg
}

// Load reads path (may be empty), then .env, then the environment.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env: %w", err)
	}

	v := newViper()
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}
	return load(v)
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

func load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := validation.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}
