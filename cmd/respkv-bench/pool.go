package main

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/jackc/puddle/v2"
	"github.com/pior/respkv"
)

// clientPool hands out connected clients, one per worker at a time.
// Each respkv.Client owns a single connection, so parallel load needs
// several of them.
type clientPool struct {
	pool           *puddle.Pool[*respkv.Client]
	createdConns   atomic.Int64
	destroyedConns atomic.Int64
}

func newClientPool(host string, port int, maxSize int32, logger *slog.Logger) (*clientPool, error) {
	p := &clientPool{}

	poolConfig := &puddle.Config[*respkv.Client]{
		Constructor: func(ctx context.Context) (*respkv.Client, error) {
			client := respkv.New(host, port, respkv.Config{Logger: logger})
			if err := client.Connect(ctx); err != nil {
				return nil, err
			}
			p.createdConns.Add(1)
			return client, nil
		},
		Destructor: func(c *respkv.Client) {
			p.destroyedConns.Add(1)
			_ = c.Close()
		},
		MaxSize: maxSize,
	}

	pool, err := puddle.NewPool(poolConfig)
	if err != nil {
		return nil, err
	}
	p.pool = pool
	return p, nil
}

// with runs fn on a pooled client. A client whose connection failed is
// destroyed instead of being returned to the pool.
func (p *clientPool) with(ctx context.Context, fn func(*respkv.Client) error) error {
	res, err := p.pool.Acquire(ctx)
	if err != nil {
		return err
	}

	client := res.Value()
	err = fn(client)
	if err != nil && !client.IsConnected() {
		res.Destroy()
		return err
	}
	res.Release()
	return err
}

func (p *clientPool) Close() {
	p.pool.Close()
}

type poolStats struct {
	Total        int32
	Idle         int32
	Created      int64
	Destroyed    int64
	Acquires     int64
	EmptyAcquire int64
}

func (p *clientPool) Stats() poolStats {
	s := p.pool.Stat()
	return poolStats{
		Total:        s.TotalResources(),
		Idle:         s.IdleResources(),
		Created:      p.createdConns.Load(),
		Destroyed:    p.destroyedConns.Load(),
		Acquires:     s.AcquireCount(),
		EmptyAcquire: s.EmptyAcquireCount(),
	}
}
