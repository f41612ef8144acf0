package memcache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pior/memcache-classic/codec"
	"github.com/sony/gobreaker/v2"
)

const (
	DefaultTimeout           = 3 * time.Second
	DefaultDeadRetry         = 30 * time.Second
	DefaultMaxConnsPerServer = 4
	DefaultMaxValueLength    = 1024 * 1024
	DefaultPipelineDepth     = 128
)

// Config holds the client configuration. The zero value is usable: every
// field has a default.
type Config struct {
	// Timeout bounds dialing and each request/reply round trip.
	// Zero means DefaultTimeout, negative disables it.
	Timeout time.Duration

	// DeadRetry is how long a server stays out of routing after a transport
	// failure. Zero means DefaultDeadRetry.
	DeadRetry time.Duration

	// MinCompressLen enables compression of payloads longer than this many
	// bytes. Zero disables compression.
	MinCompressLen int

	// MaxConnsPerServer is the connection pool size of each server.
	// Zero means DefaultMaxConnsPerServer.
	MaxConnsPerServer int32

	// MaxValueLength rejects larger encoded values before sending them.
	// Zero means DefaultMaxValueLength, negative disables the check.
	MaxValueLength int

	// PipelineDepth is the number of commands SetMulti and DeleteMulti
	// write to a server before reading their replies.
	// Zero means DefaultPipelineDepth.
	PipelineDepth int

	// SerializerProtocol picks the built-in serializer for values that are
	// neither strings nor integers. Ignored when Serializer is set.
	SerializerProtocol codec.Protocol

	// Serializer overrides the built-in serializers.
	Serializer codec.Serializer

	// Compressor compresses payloads. Defaults to zlib.
	Compressor codec.Compressor

	// Dialer opens server connections. Defaults to a net.Dialer.
	Dialer Dialer

	// Hash maps keys to routing hashes. Defaults to DefaultHash (xxh3).
	Hash HashFunc

	// SelectBucket maps a hash to a bucket of the weighted server list.
	// Defaults to ModuloBucket.
	SelectBucket BucketFunc

	// NewCircuitBreaker creates a circuit breaker for a server.
	// Called once per server. If nil, no circuit breaker is used.
	NewCircuitBreaker func(serverAddr string) *gobreaker.CircuitBreaker[struct{}]

	// Logger receives dead-server warnings. Defaults to slog.Default().
	Logger *slog.Logger

	// Now is the clock used for dead-server tracking and absolute exptimes.
	// Socket deadlines always use the wall clock. Defaults to time.Now.
	Now func() time.Time
}

func (c Config) withDefaults() (Config, error) {
	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}
	if c.Timeout < 0 {
		c.Timeout = 0
	}
	if c.DeadRetry == 0 {
		c.DeadRetry = DefaultDeadRetry
	}
	if c.MaxConnsPerServer == 0 {
		c.MaxConnsPerServer = DefaultMaxConnsPerServer
	}
	if c.MaxConnsPerServer < 0 {
		return c, fmt.Errorf("memcache: invalid MaxConnsPerServer %d", c.MaxConnsPerServer)
	}
	if c.MaxValueLength == 0 {
		c.MaxValueLength = DefaultMaxValueLength
	}
	if c.PipelineDepth == 0 {
		c.PipelineDepth = DefaultPipelineDepth
	}
	if c.PipelineDepth < 0 {
		return c, fmt.Errorf("memcache: invalid PipelineDepth %d", c.PipelineDepth)
	}
	if c.MinCompressLen < 0 {
		return c, fmt.Errorf("memcache: invalid MinCompressLen %d", c.MinCompressLen)
	}
	if c.Serializer == nil {
		s, err := codec.NewSerializer(c.SerializerProtocol)
		if err != nil {
			return c, err
		}
		c.Serializer = s
	}
	if c.Compressor == nil {
		c.Compressor = codec.ZlibCompressor{}
	}
	if c.Dialer == nil {
		c.Dialer = &net.Dialer{}
	}
	if c.Hash == nil {
		c.Hash = DefaultHash
	}
	if c.SelectBucket == nil {
		c.SelectBucket = ModuloBucket
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	return c, nil
}

// Item is the result of a retrieval.
type Item struct {
	Key   string
	Value any
	Flags uint32
	CasID uint64 // set by Gets
	Found bool   // indicates whether the key was found in cache
}

// Client is a memcache client for the classic text protocol.
//
// Transport failures are not returned as errors: the server is marked dead
// for Config.DeadRetry, the pooled connection is dropped and the operation
// reports its miss value (not found, not stored). Protocol violations, usage
// errors and SERVER_ERROR replies are returned.
//
// A Client is safe for concurrent use and starts no goroutines.
type Client struct {
	config  Config
	servers *serverPool
	codec   *codec.Codec
	cas     *casCache
	stats   *clientStatsCollector
	logger  *slog.Logger

	closed    atomic.Bool
	closeOnce sync.Once
}

// NewClient creates a client for servers. Connections are opened on first
// use.
func NewClient(servers []Server, config Config) (*Client, error) {
	config, err := config.withDefaults()
	if err != nil {
		return nil, err
	}

	pool, err := newServerPool(servers, &config)
	if err != nil {
		return nil, err
	}

	return &Client{
		config:  config,
		servers: pool,
		codec:   codec.New(config.Serializer, config.Compressor),
		cas:     newCasCache(),
		stats:   newClientStatsCollector(),
		logger:  config.Logger,
	}, nil
}

// Close closes every pooled connection. Operations started after Close fail
// with ErrClientClosed.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		c.servers.close()
	})
}

// Stats returns a snapshot of the client counters.
func (c *Client) Stats() ClientStats {
	return c.stats.snapshot()
}

// ServerPoolStats returns the state of every configured server.
func (c *Client) ServerPoolStats() []ServerStats {
	return c.servers.stats()
}

// ResetCas forgets every recorded cas-id.
func (c *Client) ResetCas() {
	c.cas.reset()
}

// ForgetDeadServers makes every server routable again without waiting for
// DeadRetry.
func (c *Client) ForgetDeadServers() {
	c.servers.forgetDeadServers()
}

// route selects the server for key.
func (c *Client) route(key string) (*serverNode, error) {
	if c.closed.Load() {
		return nil, ErrClientClosed
	}
	node, err := c.servers.route(key)
	if err != nil {
		c.stats.recordError()
		return nil, err
	}
	return node, nil
}

// run executes fn on a connection to node.
//
// ok is false when the server could not be reached: the server has been
// marked dead and the caller reports its miss value with a nil error.
// Any other error is returned as is.
func (c *Client) run(ctx context.Context, node *serverNode, op string, fn func(*Connection) error) (ok bool, err error) {
	err = node.execute(ctx, func(conn *Connection) error {
		if err := conn.EnsureOpen(ctx); err != nil {
			return err
		}
		return fn(conn)
	})
	if err == nil {
		return true, nil
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		c.stats.recordError()
		return false, ctxErr
	}

	if isTransportFailure(err) {
		c.servers.markDead(node, err)
		c.stats.recordMarkedDead()
		c.stats.recordSoftFailure()
		c.logger.Warn("memcache: operation failed, reporting a miss",
			"op", op,
			"server", node.addr,
			"error", err,
		)
		return false, nil
	}

	c.stats.recordError()
	if errors.Is(err, ErrClientClosed) {
		return false, err
	}
	return false, fmt.Errorf("memcache: %s on %s: %w", op, node.addr, err)
}

// fail records err as returned to the caller.
func (c *Client) fail(err error) error {
	c.stats.recordError()
	return err
}
