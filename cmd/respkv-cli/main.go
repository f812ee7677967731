package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/pior/respkv"
	"github.com/spf13/cobra"
)

var (
	flagConfig   string
	flagHost     string
	flagPort     int
	flagTimeout  time.Duration
	flagLogLevel string
	flagBreaker  bool

	rootCmd = &cobra.Command{
		Use:           "respkv-cli",
		Short:         "Talk to a RESP key/value server",
		Long:          "respkv-cli runs single operations against a RESP server, or an interactive session when called without a subcommand.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runREPL(cmd)
		},
	}
)

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flagConfig, "config", "", "TOML config file")
	pf.StringVar(&flagHost, "host", defaultHost, "server host")
	pf.IntVar(&flagPort, "port", respkv.DefaultPort, "server port")
	pf.DurationVar(&flagTimeout, "timeout", defaultTimeout, "per-operation timeout")
	pf.StringVar(&flagLogLevel, "log-level", defaultLogLevel, "log level: debug, info, warn, error")
	pf.BoolVar(&flagBreaker, "circuit-breaker", false, "guard the connection with a circuit breaker")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// session bundles what every subcommand needs.
type session struct {
	client  *respkv.Client
	timeout time.Duration
	logger  *slog.Logger
}

func (s *session) ctx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), s.timeout)
}

func (s *session) Close() {
	if err := s.client.Close(); err != nil {
		s.logger.Warn("close failed", "error", err)
	}
}

// newSession resolves settings from defaults, then the config file, then
// explicitly set flags, and builds a client.
func newSession(cmd *cobra.Command) (*session, error) {
	cfg := defaultConfig()

	if flagConfig != "" {
		loaded, err := loadConfig(flagConfig)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("host") {
		cfg.Host = flagHost
	}
	if flags.Changed("port") {
		cfg.Port = flagPort
	}
	if flags.Changed("timeout") {
		cfg.Timeout = flagTimeout
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = flagLogLevel
	}
	if flags.Changed("circuit-breaker") {
		cfg.CircuitBreaker = flagBreaker
	}

	level, err := parseLogLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	clientCfg := respkv.Config{Logger: logger, Timeout: cfg.Timeout}
	if cfg.CircuitBreaker {
		clientCfg.NewCircuitBreaker = respkv.NewCircuitBreakerConfig(3, time.Minute, 10*time.Second)
	}

	logger.Debug("using server", "host", cfg.Host, "port", cfg.Port, "timeout", cfg.Timeout)

	return &session{
		client:  respkv.New(cfg.Host, cfg.Port, clientCfg),
		timeout: cfg.Timeout,
		logger:  logger,
	}, nil
}
