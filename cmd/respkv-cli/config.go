package main

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/pior/respkv"
)

const (
	defaultHost     = "127.0.0.1"
	defaultTimeout  = 5 * time.Second
	defaultLogLevel = "warn"
)

type cliConfig struct {
	Host           string
	Port           int
	Timeout        time.Duration
	LogLevel       string
	CircuitBreaker bool
}

func defaultConfig() cliConfig {
	return cliConfig{
		Host:     defaultHost,
		Port:     respkv.DefaultPort,
		Timeout:  defaultTimeout,
		LogLevel: defaultLogLevel,
	}
}

type fileConfig struct {
	Host           string `toml:"host"`
	Port           int    `toml:"port"`
	Timeout        string `toml:"timeout"`
	LogLevel       string `toml:"log_level"`
	CircuitBreaker bool   `toml:"circuit_breaker"`
}

func loadConfig(path string) (cliConfig, error) {
	cfg := defaultConfig()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return cliConfig{}, fmt.Errorf("load config: %w", err)
	}

	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return cliConfig{}, fmt.Errorf("load config: unknown key %q", undecoded[0].String())
	}

	if meta.IsDefined("host") {
		if host := strings.TrimSpace(raw.Host); host != "" {
			cfg.Host = host
		}
	}

	if meta.IsDefined("port") {
		if raw.Port <= 0 || raw.Port > 65535 {
			return cliConfig{}, fmt.Errorf("load config: invalid port %d", raw.Port)
		}
		cfg.Port = raw.Port
	}

	if meta.IsDefined("timeout") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.Timeout))
		if err != nil {
			return cliConfig{}, fmt.Errorf("parse timeout: %w", err)
		}
		cfg.Timeout = d
	}

	if meta.IsDefined("log_level") {
		cfg.LogLevel = strings.TrimSpace(raw.LogLevel)
	}

	if meta.IsDefined("circuit_breaker") {
		cfg.CircuitBreaker = raw.CircuitBreaker
	}

	return cfg, nil
}

func parseLogLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("invalid log level %q", s)
	}
	return level, nil
}
