// Package config loads the on-disk YAML configuration shared by the
// graphdbd server and the graphdb CLI.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level shape of config.yaml.
type Config struct {
	Store struct {
		Path string `yaml:"path"`
	} `yaml:"store"`

	Server struct {
		ListenAddr string `yaml:"listen_addr"`
	} `yaml:"server"`

	Transaction struct {
		Timeout      time.Duration `yaml:"timeout"`
		MaxRetryTime time.Duration `yaml:"max_retry_time"`
	} `yaml:"transaction"`

	LogLevel string `yaml:"log_level"`
}

// rawConfig mirrors Config but spells durations as Go duration strings
// ("5m", "30s"), since yaml.v3 has no built-in notion of time.Duration.
type rawConfig struct {
	Store struct {
		Path string `yaml:"path"`
	} `yaml:"store"`

	Server struct {
		ListenAddr string `yaml:"listen_addr"`
	} `yaml:"server"`

	Transaction struct {
		Timeout      string `yaml:"timeout"`
		MaxRetryTime string `yaml:"max_retry_time"`
	} `yaml:"transaction"`

	LogLevel string `yaml:"log_level"`
}

// Default returns a Config with the same defaults the embedded Driver uses
// when no file is present.
func Default() Config {
	var c Config
	c.Store.Path = "graphdb.sqlite"
	c.Server.ListenAddr = ":7688"
	c.Transaction.Timeout = 5 * time.Minute
	c.Transaction.MaxRetryTime = 30 * time.Second
	c.LogLevel = "info"
	return c
}

// Load reads and parses the YAML file at path, filling in Default() for any
// field the file omits.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}

	raw := rawConfig{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}

	if raw.Store.Path != "" {
		cfg.Store.Path = raw.Store.Path
	}
	if raw.Server.ListenAddr != "" {
		cfg.Server.ListenAddr = raw.Server.ListenAddr
	}
	if raw.LogLevel != "" {
		cfg.LogLevel = raw.LogLevel
	}
	if raw.Transaction.Timeout != "" {
		d, err := time.ParseDuration(raw.Transaction.Timeout)
		if err != nil {
			return Config{}, fmt.Errorf("config: parse %s: transaction.timeout: %w", path, err)
		}
		cfg.Transaction.Timeout = d
	}
	if raw.Transaction.MaxRetryTime != "" {
		d, err := time.ParseDuration(raw.Transaction.MaxRetryTime)
		if err != nil {
			return Config{}, fmt.Errorf("config: parse %s: transaction.max_retry_time: %w", path, err)
		}
		cfg.Transaction.MaxRetryTime = d
	}
	return cfg, nil
}
