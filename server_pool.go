package memcache

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/sony/gobreaker/v2"
)

// serverNode is a configured server with its liveness state and connections.
type serverNode struct {
	addr    string
	weight  int
	pool    *connPool
	breaker *gobreaker.CircuitBreaker[struct{}] // nil if not configured

	// deadUntil is unix nanos; zero means alive.
	deadUntil atomic.Int64
}

func (s *serverNode) isAlive(now time.Time) bool {
	until := s.deadUntil.Load()
	return until == 0 || now.UnixNano() >= until
}

// execute runs fn on a pooled connection, through the circuit breaker when
// one is configured.
func (s *serverNode) execute(ctx context.Context, fn func(*Connection) error) error {
	if s.breaker == nil {
		return s.pool.with(ctx, fn)
	}

	_, err := s.breaker.Execute(func() (struct{}, error) {
		return struct{}{}, s.pool.with(ctx, fn)
	})
	return err
}

// serverPool routes keys to servers over a weighted bucket space and tracks
// dead servers.
type serverPool struct {
	servers   []*serverNode
	buckets   []*serverNode
	hash      HashFunc
	bucket    BucketFunc
	deadRetry time.Duration
	now       func() time.Time
	logger    *slog.Logger
}

func newServerPool(servers []Server, config *Config) (*serverPool, error) {
	if len(servers) == 0 {
		return nil, fmt.Errorf("memcache: no servers provided")
	}

	sp := &serverPool{
		hash:      config.Hash,
		bucket:    config.SelectBucket,
		deadRetry: config.DeadRetry,
		now:       config.Now,
		logger:    config.Logger,
	}

	for _, s := range servers {
		weight := s.Weight
		if weight == 0 {
			weight = 1
		}
		if weight < 0 {
			sp.close()
			return nil, fmt.Errorf("memcache: invalid weight %d for %s", s.Weight, s.Addr)
		}

		network, address, err := resolveAddr(s.Addr)
		if err != nil {
			sp.close()
			return nil, err
		}

		node := &serverNode{addr: s.Addr, weight: weight}

		addr := s.Addr
		node.pool, err = newConnPool(func() *Connection {
			return newConnection(addr, network, address, config.Dialer, config.Timeout)
		}, config.MaxConnsPerServer)
		if err != nil {
			sp.close()
			return nil, err
		}

		if config.NewCircuitBreaker != nil {
			node.breaker = config.NewCircuitBreaker(s.Addr)
		}

		sp.servers = append(sp.servers, node)
		for range weight {
			sp.buckets = append(sp.buckets, node)
		}
	}

	return sp, nil
}

// route returns the server for key. When the selected server is dead the
// following buckets are probed in order, wrapping around, so the choice is
// deterministic for a given set of alive servers.
func (sp *serverPool) route(key string) (*serverNode, error) {
	total := len(sp.buckets)
	now := sp.now()

	start := sp.bucket(sp.hash(key), total) % total
	if start < 0 {
		start += total
	}
	for i := range total {
		node := sp.buckets[(start+i)%total]
		if node.isAlive(now) {
			if i > 0 {
				sp.logger.Debug("memcache: routed past dead server", "key", key, "server", node.addr, "probes", i)
			}
			return node, nil
		}
	}

	return nil, ErrNoServersAvailable
}

// markDead excludes node from routing for the dead-retry period and drops
// its idle connections.
func (sp *serverPool) markDead(node *serverNode, reason error) {
	until := sp.now().Add(sp.deadRetry).UnixNano()
	node.deadUntil.Store(until)
	node.pool.closeIdle()

	sp.logger.Warn("memcache: marking server dead",
		"server", node.addr,
		"retry_in", sp.deadRetry,
		"error", reason,
	)
}

func (sp *serverPool) markAlive(node *serverNode) {
	node.deadUntil.Store(0)
}

// forgetDeadServers makes every server routable again.
func (sp *serverPool) forgetDeadServers() {
	for _, node := range sp.servers {
		sp.markAlive(node)
	}
}

// alive returns the servers currently routable, in configuration order.
func (sp *serverPool) alive() []*serverNode {
	now := sp.now()
	nodes := make([]*serverNode, 0, len(sp.servers))
	for _, node := range sp.servers {
		if node.isAlive(now) {
			nodes = append(nodes, node)
		}
	}
	return nodes
}

func (sp *serverPool) close() {
	for _, node := range sp.servers {
		node.pool.close()
	}
}

// ServerStats describes one configured server.
type ServerStats struct {
	Addr                 string
	Weight               int
	Alive                bool
	DeadUntil            time.Time // zero when alive
	PoolStats            PoolStats
	CircuitBreakerState  gobreaker.State
	CircuitBreakerCounts gobreaker.Counts
}

func (sp *serverPool) stats() []ServerStats {
	now := sp.now()
	stats := make([]ServerStats, 0, len(sp.servers))
	for _, node := range sp.servers {
		stats = append(stats, node.stats(now))
	}
	return stats
}

func (s *serverNode) stats(now time.Time) ServerStats {
	stats := ServerStats{
		Addr:      s.addr,
		Weight:    s.weight,
		Alive:     s.isAlive(now),
		PoolStats: s.pool.stats(),
	}
	if !stats.Alive {
		stats.DeadUntil = time.Unix(0, s.deadUntil.Load())
	}
	if s.breaker != nil {
		stats.CircuitBreakerState = s.breaker.State()
		stats.CircuitBreakerCounts = s.breaker.Counts()
	}
	return stats
}
