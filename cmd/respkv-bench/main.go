package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/google/uuid"
	"github.com/pior/respkv"
	"github.com/spf13/cobra"
)

var (
	flagHost        string
	flagPort        int
	flagConcurrency int
	flagCount       int64
	flagSize        int
	flagOnly        string
	flagKeepGoing   bool
	flagMaxErrors   int
	flagVerbose     bool

	rootCmd = &cobra.Command{
		Use:          "respkv-bench",
		Short:        "Measure respkv client throughput against a RESP server",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE:         run,
	}
)

func init() {
	f := rootCmd.Flags()
	f.StringVar(&flagHost, "host", "127.0.0.1", "server host")
	f.IntVar(&flagPort, "port", respkv.DefaultPort, "server port")
	f.IntVar(&flagConcurrency, "concurrency", 1, "number of concurrent workers")
	f.Int64Var(&flagCount, "count", 100_000, "target operation count per test")
	f.IntVar(&flagSize, "size", 32, "value size in bytes")
	f.StringVar(&flagOnly, "only", "", "run only the named test (e.g. 'set')")
	f.BoolVar(&flagKeepGoing, "keep-going", false, "count failed operations instead of stopping")
	f.IntVar(&flagMaxErrors, "max-errors", 10, "errors kept for the report with --keep-going")
	f.BoolVar(&flagVerbose, "verbose", false, "log connection events")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	if flagConcurrency < 1 {
		return fmt.Errorf("concurrency must be at least 1")
	}
	if flagSize < 1 {
		return fmt.Errorf("size must be at least 1")
	}

	level := slog.LevelWarn
	if flagVerbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	out := cmd.OutOrStdout()
	config := benchConfig{
		concurrency: flagConcurrency,
		count:       flagCount,
		keepGoing:   flagKeepGoing,
		maxErrors:   flagMaxErrors,
	}

	fmt.Fprintf(out, "RESP KV Speed Test\n")
	fmt.Fprintf(out, "==================\n")
	fmt.Fprintf(out, "Server:      %s:%d\n", flagHost, flagPort)
	fmt.Fprintf(out, "Concurrency: %d\n", config.concurrency)
	fmt.Fprintf(out, "Value size:  %d bytes\n", flagSize)
	fmt.Fprintf(out, "Target:      %s operations\n\n", formatNumber(config.count))

	pool, err := newClientPool(flagHost, flagPort, int32(config.concurrency), logger)
	if err != nil {
		return err
	}
	defer pool.Close()

	keys := keyspace{prefix: "bench:" + uuid.NewString()}
	value := makeValue(flagSize)

	if err := preflight(ctx, pool, keys, value); err != nil {
		return fmt.Errorf("preflight: %w", err)
	}
	fmt.Fprintf(out, "Connection verified!\n\n")

	var results []Result
	for _, test := range newTests(value) {
		if flagOnly != "" && test.Name != flagOnly {
			continue
		}

		fmt.Fprintf(out, "Running: %s\n", test.Name)
		result, err := runBenchmark(ctx, pool, config, keys, test)
		fmt.Fprintf(out, "  Completed in %s (%.0f ops/sec, %s avg latency, %d errors)\n",
			formatDuration(result.duration),
			result.opsPerSec,
			formatDuration(result.avgLatency),
			result.errors,
		)
		results = append(results, result)

		if err != nil {
			if !config.keepGoing {
				return err
			}
			logger.Warn("test had errors", "test", test.Name, "error", err)
		}
	}

	fmt.Fprintf(out, "\n%-14s %12s %10s %12s %12s %8s\n", "Operation", "Count", "Duration", "Ops/sec", "Avg Latency", "Errors")
	for _, r := range results {
		fmt.Fprintf(out, "%-14s %12s %10s %12s %12s %8d\n",
			r.name,
			formatNumber(r.count),
			formatDuration(r.duration),
			formatNumber(int64(r.opsPerSec)),
			formatDuration(r.avgLatency),
			r.errors,
		)
	}

	s := pool.Stats()
	fmt.Fprintf(out, "\nClients: %d total, %d idle, %d created, %d destroyed, %d acquires (%d waited)\n",
		s.Total, s.Idle, s.Created, s.Destroyed, s.Acquires, s.EmptyAcquire)
	return nil
}

// preflight checks a round trip before any timing starts.
func preflight(ctx context.Context, pool *clientPool, keys keyspace, value []byte) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	key := keys.prefix + ":preflight"
	return pool.with(ctx, func(client *respkv.Client) error {
		ok, err := client.SetRaw(ctx, key, value)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("set %s not acknowledged", key)
		}
		got, found, err := client.GetRaw(ctx, key)
		if err != nil {
			return err
		}
		if !found || digest(got) != digest(value) {
			return fmt.Errorf("%w: preflight key", errMismatch)
		}
		_, err = client.Delete(ctx, key)
		return err
	})
}

// makeValue returns printable filler so get-value reads it back as a string.
func makeValue(size int) []byte {
	const alphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
	b := make([]byte, size)
	for i := range b {
		b[i] = alphabet[i%len(alphabet)]
	}
	return b
}
