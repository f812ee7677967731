package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/pior/respkv"
	"github.com/zeebo/xxh3"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
)

var errMismatch = errors.New("value mismatch")

type OperationFunc func(ctx context.Context, client *respkv.Client, key string) error

type Test struct {
	Name      string
	Operation OperationFunc
}

type Result struct {
	name       string
	count      int64
	errors     int64
	duration   time.Duration
	opsPerSec  float64
	avgLatency time.Duration
}

type benchConfig struct {
	concurrency int
	count       int64
	keepGoing   bool
	maxErrors   int
}

// keyspace names the keys of one run. The prefix keeps concurrent runs
// against the same server apart.
type keyspace struct {
	prefix string
}

func (k keyspace) key(workerID int, operationID int64) string {
	return k.prefix + ":" + strconv.Itoa(workerID) + ":" + strconv.FormatInt(operationID, 10)
}

// digest identifies a payload without keeping a copy of it around.
func digest(b []byte) uint64 {
	return xxh3.Hash(b)
}

func newTests(value []byte) []Test {
	want := digest(value)
	text := string(value)

	return []Test{
		{
			Name: "get-miss",
			Operation: func(ctx context.Context, client *respkv.Client, key string) error {
				_, found, err := client.GetRaw(ctx, key)
				if err == nil && found {
					return fmt.Errorf("%w: %s should not exist", errMismatch, key)
				}
				return err
			},
		},
		{
			Name: "set",
			Operation: func(ctx context.Context, client *respkv.Client, key string) error {
				ok, err := client.SetRaw(ctx, key, value)
				if err == nil && !ok {
					return fmt.Errorf("set %s not acknowledged", key)
				}
				return err
			},
		},
		{
			Name: "exists",
			Operation: func(ctx context.Context, client *respkv.Client, key string) error {
				ok, err := client.Exists(ctx, key)
				if err == nil && !ok {
					return fmt.Errorf("%w: %s missing", errMismatch, key)
				}
				return err
			},
		},
		{
			Name: "get-hit",
			Operation: func(ctx context.Context, client *respkv.Client, key string) error {
				got, found, err := client.GetRaw(ctx, key)
				if err != nil {
					return err
				}
				if !found || digest(got) != want {
					return fmt.Errorf("%w: %s", errMismatch, key)
				}
				return nil
			},
		},
		{
			Name: "get-value",
			Operation: func(ctx context.Context, client *respkv.Client, key string) error {
				v, found, err := client.GetValue(ctx, key)
				if err != nil {
					return err
				}
				if !found || v.Str() != text {
					return fmt.Errorf("%w: %s", errMismatch, key)
				}
				return nil
			},
		},
		{
			Name: "delete-found",
			Operation: func(ctx context.Context, client *respkv.Client, key string) error {
				ok, err := client.Delete(ctx, key)
				if err == nil && !ok {
					return fmt.Errorf("%w: %s already gone", errMismatch, key)
				}
				return err
			},
		},
		{
			Name: "delete-miss",
			Operation: func(ctx context.Context, client *respkv.Client, key string) error {
				_, err := client.Delete(ctx, key)
				return err
			},
		},
	}
}

// errorCollector keeps the first maxErrors operation errors.
type errorCollector struct {
	mu    sync.Mutex
	err   error
	count int64
	max   int
}

func (c *errorCollector) add(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.count++
	if c.max <= 0 || len(multierr.Errors(c.err)) < c.max {
		c.err = multierr.Append(c.err, err)
	}
}

// runBenchmark executes the test from config.concurrency workers, each working
// on its own slice of the key space.
func runBenchmark(ctx context.Context, pool *clientPool, config benchConfig, keys keyspace, test Test) (Result, error) {
	opsPerWorker := config.count / int64(config.concurrency)
	collector := &errorCollector{max: config.maxErrors}

	g, gctx := errgroup.WithContext(ctx)
	start := time.Now()

	for i := range config.concurrency {
		workerID := i
		g.Go(func() error {
			for j := range opsPerWorker {
				key := keys.key(workerID, j)
				err := pool.with(gctx, func(client *respkv.Client) error {
					return test.Operation(gctx, client, key)
				})
				if err == nil {
					continue
				}
				if !config.keepGoing {
					return fmt.Errorf("%s: %w", test.Name, err)
				}
				collector.add(err)
			}
			return nil
		})
	}

	err := g.Wait()
	duration := time.Since(start)

	total := opsPerWorker * int64(config.concurrency)
	result := Result{
		name:       test.Name,
		count:      total,
		errors:     collector.count,
		duration:   duration,
		opsPerSec:  float64(total) / duration.Seconds(),
		avgLatency: duration / time.Duration(max(opsPerWorker, 1)),
	}

	return result, multierr.Append(err, collector.err)
}

func formatNumber(n int64) string {
	if n >= 1_000_000 {
		return fmt.Sprintf("%.2fM", float64(n)/1_000_000)
	} else if n >= 1_000 {
		return fmt.Sprintf("%.2fK", float64(n)/1_000)
	}
	return fmt.Sprintf("%d", n)
}

func formatDuration(d time.Duration) string {
	if d >= time.Second {
		return fmt.Sprintf("%.2fs", d.Seconds())
	} else if d >= time.Millisecond {
		return fmt.Sprintf("%.2fms", float64(d.Microseconds())/1000)
	}
	return fmt.Sprintf("%.2fµs", float64(d.Nanoseconds())/1000)
}
