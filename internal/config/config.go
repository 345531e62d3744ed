package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration.
type Config struct {
	API    APIConfig
	Code   CodeConfig
	Log    LogConfig
	Server ServerConfig
}

// APIConfig points the client at the booking service.
type APIConfig struct {
	URL     string
	Timeout time.Duration
}

// CodeConfig controls verification code entry.
type CodeConfig struct {
	Length int
	Masked bool
}

// LogConfig holds logging settings. An empty File disables logging.
type LogConfig struct {
	File string
}

// ServerConfig holds dev server settings.
type ServerConfig struct {
	Addr        string
	CodeTTL     time.Duration `mapstructure:"code_ttl"`
	MaxAttempts int           `mapstructure:"max_attempts"`
}

// Load reads configuration from file and env. Env var overrides use prefix SALONCTL_.
func Load() (Config, error) {
	v := viper.New()

	v.SetDefault("api.url", "http://localhost:8787")
	v.SetDefault("api.timeout", 30*time.Second)
	v.SetDefault("code.length", 6)
	v.SetDefault("code.masked", false)
	v.SetDefault("log.file", "")
	v.SetDefault("server.addr", "127.0.0.1:8787")
	v.SetDefault("server.code_ttl", 5*time.Minute)
	v.SetDefault("server.max_attempts", 3)

	v.SetConfigType("toml")

	cfgPath := os.Getenv("SALONCTL_CONFIG")
	if cfgPath != "" {
		v.SetConfigFile(cfgPath)
	} else {
		v.AddConfigPath(filepath.Join(os.Getenv("HOME"), ".config", "salonctl"))
		v.SetConfigName("config")
	}

	v.SetEnvPrefix("SALONCTL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgPath != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate checks values that would otherwise fail later in confusing ways.
func (c Config) Validate() error {
	if c.API.URL == "" {
		return fmt.Errorf("api.url is required")
	}
	if c.Code.Length < 1 || c.Code.Length > 12 {
		return fmt.Errorf("code.length must be between 1 and 12, got %d", c.Code.Length)
	}
	if c.Server.MaxAttempts < 1 {
		return fmt.Errorf("server.max_attempts must be positive, got %d", c.Server.MaxAttempts)
	}
	return nil
}
