package memcache

import (
	"fmt"

	"github.com/VictoriaMetrics/metrics"
)

// RegisterMetrics exposes the client and pool statistics on set, as
// Prometheus-style gauges computed on scrape:
//
//	set := metrics.NewSet()
//	client.RegisterMetrics(set)
//	set.WritePrometheus(w)
//
// Registering the same client twice on one set panics.
func (c *Client) RegisterMetrics(set *metrics.Set) {
	counter := func(name string, get func(ClientStats) uint64) {
		set.NewGauge(name, func() float64 {
			return float64(get(c.Stats()))
		})
	}

	counter("memcache_client_gets_total", func(s ClientStats) uint64 { return s.Gets })
	counter("memcache_client_get_hits_total", func(s ClientStats) uint64 { return s.GetHits })
	counter("memcache_client_sets_total", func(s ClientStats) uint64 { return s.Sets })
	counter("memcache_client_cas_total", func(s ClientStats) uint64 { return s.CompareAndSwaps })
	counter("memcache_client_deletes_total", func(s ClientStats) uint64 { return s.Deletes })
	counter("memcache_client_touches_total", func(s ClientStats) uint64 { return s.Touches })
	counter("memcache_client_increments_total", func(s ClientStats) uint64 { return s.Increments })
	counter("memcache_client_errors_total", func(s ClientStats) uint64 { return s.Errors })
	counter("memcache_client_soft_failures_total", func(s ClientStats) uint64 { return s.SoftFailures })
	counter("memcache_client_servers_marked_dead_total", func(s ClientStats) uint64 { return s.ServersMarkedDead })

	for _, node := range c.servers.servers {
		label := fmt.Sprintf(`{server=%q}`, node.addr)

		server := func(name string, get func(ServerStats) float64) {
			set.NewGauge(name+label, func() float64 {
				return get(node.stats(c.config.Now()))
			})
		}

		server("memcache_server_alive", func(s ServerStats) float64 {
			if s.Alive {
				return 1
			}
			return 0
		})
		server("memcache_pool_total_conns", func(s ServerStats) float64 { return float64(s.PoolStats.TotalConns) })
		server("memcache_pool_idle_conns", func(s ServerStats) float64 { return float64(s.PoolStats.IdleConns) })
		server("memcache_pool_active_conns", func(s ServerStats) float64 { return float64(s.PoolStats.ActiveConns) })
		server("memcache_pool_acquires_total", func(s ServerStats) float64 { return float64(s.PoolStats.AcquireCount) })
		server("memcache_pool_acquire_waits_total", func(s ServerStats) float64 { return float64(s.PoolStats.AcquireWaitCount) })
		server("memcache_pool_created_conns_total", func(s ServerStats) float64 { return float64(s.PoolStats.CreatedConns) })
		server("memcache_pool_destroyed_conns_total", func(s ServerStats) float64 { return float64(s.PoolStats.DestroyedConns) })
	}
}
