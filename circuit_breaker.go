package memcache

import (
	"time"

	"github.com/sony/gobreaker/v2"
)

// NewCircuitBreakerConfig returns a Config.NewCircuitBreaker function creating
// one breaker per server.
//
// Only transport failures count against a server. Misses, NOT_STORED and
// SERVER_ERROR replies are answers from a healthy server.
// While a breaker is open the server is treated as dead.
func NewCircuitBreakerConfig(maxRequests uint32, interval, timeout time.Duration) func(string) *gobreaker.CircuitBreaker[struct{}] {
	return func(serverAddr string) *gobreaker.CircuitBreaker[struct{}] {
		settings := gobreaker.Settings{
			Name:        serverAddr,
			MaxRequests: maxRequests,
			Interval:    interval,
			Timeout:     timeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
				return counts.Requests >= 3 && failureRatio >= 0.6
			},
			IsSuccessful: func(err error) bool {
				return err == nil || !isTransportFailure(err)
			},
		}
		return gobreaker.NewCircuitBreaker[struct{}](settings)
	}
}
