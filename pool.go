package memcache

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/jackc/puddle/v2"
	"github.com/pior/memcache-classic/protocol"
)

// connPool is the per-server pool of Connections. Resources are created
// unconnected; the operation that acquires one dials it on first use.
type connPool struct {
	pool           *puddle.Pool[*Connection]
	createdConns   atomic.Int64
	destroyedConns atomic.Int64
}

func newConnPool(newConn func() *Connection, maxSize int32) (*connPool, error) {
	p := &connPool{}

	pool, err := puddle.NewPool(&puddle.Config[*Connection]{
		Constructor: func(ctx context.Context) (*Connection, error) {
			p.createdConns.Add(1)
			return newConn(), nil
		},
		Destructor: func(c *Connection) {
			p.destroyedConns.Add(1)
			_ = c.Close()
		},
		MaxSize: maxSize,
	})
	if err != nil {
		return nil, err
	}

	p.pool = pool
	return p, nil
}

// with runs fn on an exclusively held Connection. The Connection goes back to
// the pool unless the error leaves its stream in an unknown state.
func (p *connPool) with(ctx context.Context, fn func(*Connection) error) error {
	res, err := p.pool.Acquire(ctx)
	if err != nil {
		if errors.Is(err, puddle.ErrClosedPool) {
			return ErrClientClosed
		}
		return err
	}

	err = fn(res.Value())
	if err != nil && protocol.ShouldCloseConnection(err) {
		res.Destroy()
		return err
	}

	res.Release()
	return err
}

// closeIdle destroys every idle connection.
func (p *connPool) closeIdle() {
	for _, res := range p.pool.AcquireAllIdle() {
		res.Destroy()
	}
}

func (p *connPool) close() {
	p.pool.Close()
}

// PoolStats is a snapshot of a server's connection pool.
type PoolStats struct {
	AcquireCount      uint64 // Total successful acquires
	AcquireWaitCount  uint64 // Acquires that had to wait for a connection
	CreatedConns      uint64 // Total connections created
	DestroyedConns    uint64 // Total connections destroyed
	AcquireErrors     uint64 // Acquires canceled by their context
	AcquireWaitTimeNs uint64 // Total nanoseconds spent waiting

	TotalConns  int32 // Connections in the pool (active + idle)
	IdleConns   int32 // Idle connections available
	ActiveConns int32 // Connections currently in use
}

func (p *connPool) stats() PoolStats {
	s := p.pool.Stat()

	return PoolStats{
		TotalConns:        s.TotalResources(),
		IdleConns:         s.IdleResources(),
		ActiveConns:       s.AcquiredResources(),
		AcquireCount:      uint64(s.AcquireCount()),
		AcquireWaitCount:  uint64(s.EmptyAcquireCount()),
		CreatedConns:      uint64(p.createdConns.Load()),
		DestroyedConns:    uint64(p.destroyedConns.Load()),
		AcquireErrors:     uint64(s.CanceledAcquireCount()),
		AcquireWaitTimeNs: uint64(s.EmptyAcquireWaitTime().Nanoseconds()),
	}
}
