package memcache

import (
	"sync/atomic"
)

// ClientStats counts client operations since NewClient.
//
// For Prometheus integration, expose these with RegisterMetrics, or as:
//   - Counters: one per operation, plus Errors, SoftFailures, ServersMarkedDead
//   - Counter: GetHits (derive hit rate as GetHits/Gets)
type ClientStats struct {
	Gets              uint64 // Keys requested by Get, Gets and GetMulti
	GetHits           uint64 // Keys found
	Sets              uint64 // Set, Add, Replace, Append and Prepend calls
	CompareAndSwaps   uint64
	Deletes           uint64
	Touches           uint64
	Increments        uint64 // Incr and Decr calls
	Errors            uint64 // Errors returned to the caller
	SoftFailures      uint64 // Transport failures absorbed as a miss
	ServersMarkedDead uint64
}

// clientStatsCollector updates ClientStats atomically.
type clientStatsCollector struct {
	gets              atomic.Uint64
	getHits           atomic.Uint64
	sets              atomic.Uint64
	compareAndSwaps   atomic.Uint64
	deletes           atomic.Uint64
	touches           atomic.Uint64
	increments        atomic.Uint64
	errors            atomic.Uint64
	softFailures      atomic.Uint64
	serversMarkedDead atomic.Uint64
}

func newClientStatsCollector() *clientStatsCollector {
	return &clientStatsCollector{}
}

func (c *clientStatsCollector) recordGet(keys, hits int) {
	c.gets.Add(uint64(keys))
	c.getHits.Add(uint64(hits))
}

func (c *clientStatsCollector) recordSet()            { c.sets.Add(1) }
func (c *clientStatsCollector) recordCompareAndSwap() { c.compareAndSwaps.Add(1) }
func (c *clientStatsCollector) recordDelete()         { c.deletes.Add(1) }
func (c *clientStatsCollector) recordTouch()          { c.touches.Add(1) }
func (c *clientStatsCollector) recordIncrement()      { c.increments.Add(1) }
func (c *clientStatsCollector) recordError()          { c.errors.Add(1) }
func (c *clientStatsCollector) recordSoftFailure()    { c.softFailures.Add(1) }
func (c *clientStatsCollector) recordMarkedDead()     { c.serversMarkedDead.Add(1) }

func (c *clientStatsCollector) snapshot() ClientStats {
	return ClientStats{
		Gets:              c.gets.Load(),
		GetHits:           c.getHits.Load(),
		Sets:              c.sets.Load(),
		CompareAndSwaps:   c.compareAndSwaps.Load(),
		Deletes:           c.deletes.Load(),
		Touches:           c.touches.Load(),
		Increments:        c.increments.Load(),
		Errors:            c.errors.Load(),
		SoftFailures:      c.softFailures.Load(),
		ServersMarkedDead: c.serversMarkedDead.Load(),
	}
}
