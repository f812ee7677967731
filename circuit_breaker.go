package respkv

import (
	"time"

	"github.com/pior/respkv/resp"
	"github.com/sony/gobreaker/v2"
)

// CircuitBreaker guards the exchanges of a Client.
// *gobreaker.CircuitBreaker[*resp.Reply] satisfies it.
//
// The breaker only sees transport and framing failures. Error replies from the
// server are successful exchanges and do not trip it. A tripped breaker fails
// fast with gobreaker.ErrOpenState; nothing is retried.
type CircuitBreaker interface {
	Execute(req func() (*resp.Reply, error)) (*resp.Reply, error)
	State() gobreaker.State
}

var _ CircuitBreaker = (*gobreaker.CircuitBreaker[*resp.Reply])(nil)

// NewCircuitBreakerConfig returns a function that creates a circuit breaker for a server.
// This is a helper for common use cases.
func NewCircuitBreakerConfig(maxRequests uint32, interval, timeout time.Duration) func(addr string) CircuitBreaker {
	return func(addr string) CircuitBreaker {
		settings := gobreaker.Settings{
			Name:        addr,
			MaxRequests: maxRequests,
			Interval:    interval,
			Timeout:     timeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
				return counts.Requests >= 3 && failureRatio >= 0.6
			},
		}
		return gobreaker.NewCircuitBreaker[*resp.Reply](settings)
	}
}
