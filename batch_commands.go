package memcache

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/pior/memcache-classic/protocol"
	"github.com/valyala/bytebufferpool"
	"golang.org/x/sync/errgroup"
)

// keyGroup is the share of a multi-key operation sent to one server.
type keyGroup struct {
	node *serverNode
	keys []string
}

// groupKeys routes keys and groups them by server, in first-seen order.
// Keys that cannot be routed are returned in unrouted.
func (c *Client) groupKeys(keys []string) (groups []*keyGroup, unrouted []string) {
	byNode := make(map[*serverNode]*keyGroup)
	seen := make(map[string]struct{}, len(keys))

	for _, key := range keys {
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		node, err := c.servers.route(key)
		if err != nil {
			unrouted = append(unrouted, key)
			continue
		}

		g, ok := byNode[node]
		if !ok {
			g = &keyGroup{node: node}
			byNode[node] = g
			groups = append(groups, g)
		}
		g.keys = append(g.keys, key)
	}

	return groups, unrouted
}

// GetMulti retrieves several keys with one get per server, servers being
// queried in parallel. Missing keys, keys of unreachable servers and keys
// that cannot be routed are absent from the result.
//
// ErrNoServersAvailable is returned only when no key could be routed.
// Protocol errors are joined and returned along with the partial result.
func (c *Client) GetMulti(ctx context.Context, keys []string) (map[string]Item, error) {
	if c.closed.Load() {
		return nil, ErrClientClosed
	}

	items := make(map[string]Item, len(keys))
	if len(keys) == 0 {
		return items, nil
	}

	for _, key := range keys {
		if err := protocol.ValidateKey(key); err != nil {
			return nil, c.fail(err)
		}
	}

	groups, unrouted := c.groupKeys(keys)
	if len(groups) == 0 {
		return items, c.fail(ErrNoServersAvailable)
	}

	var (
		mu   sync.Mutex
		errs []error
		hits int
	)

	var g errgroup.Group
	for _, group := range groups {
		g.Go(func() error {
			var values []protocol.Value

			_, err := c.run(ctx, group.node, "get_multi", func(conn *Connection) error {
				values = values[:0]

				buf := bytebufferpool.Get()
				defer bytebufferpool.Put(buf)

				buf.B = protocol.AppendRetrieval(buf.B, protocol.CmdGet, group.keys...)
				if err := conn.Send(ctx, buf.B); err != nil {
					return err
				}

				return protocol.ReadValues(conn, func(v protocol.Value) {
					values = append(values, v)
				})
			})

			mu.Lock()
			defer mu.Unlock()

			if err != nil {
				errs = append(errs, err)
				return nil
			}

			for _, v := range values {
				if !slices.Contains(group.keys, v.Key) {
					continue
				}
				item, err := c.decodeItem(v)
				if err != nil {
					errs = append(errs, err)
					continue
				}
				items[v.Key] = item
				hits++
			}
			return nil
		})
	}
	_ = g.Wait()

	c.stats.recordGet(len(keys)-len(unrouted), hits)
	return items, errors.Join(errs...)
}

// SetMulti stores several items, pipelining the commands to each server
// in writes of at most Config.PipelineDepth commands.
// It returns the keys that were not stored, sorted.
//
// Keys and values are validated and encoded before anything is sent; the
// first failure is returned and nothing is stored.
func (c *Client) SetMulti(ctx context.Context, items map[string]any, opts ...Option) ([]string, error) {
	if c.closed.Load() {
		return nil, ErrClientClosed
	}

	o := c.options(opts)
	exptime := o.exptime(c.config.Now())

	keys := make([]string, 0, len(items))
	for key := range items {
		keys = append(keys, key)
	}
	slices.Sort(keys)

	type encoded struct {
		flags   uint32
		payload []byte
	}
	values := make(map[string]encoded, len(items))

	for _, key := range keys {
		if err := protocol.ValidateKey(key); err != nil {
			return nil, c.fail(err)
		}
		flags, payload, err := c.codec.Encode(items[key], o.minCompressLen)
		if err != nil {
			return nil, c.fail(err)
		}
		if c.config.MaxValueLength > 0 && len(payload) > c.config.MaxValueLength {
			return nil, c.fail(ErrValueTooLarge)
		}
		values[key] = encoded{flags: flags, payload: payload}
	}

	groups, unrouted := c.groupKeys(keys)
	if len(groups) == 0 && len(unrouted) > 0 {
		return unrouted, c.fail(ErrNoServersAvailable)
	}

	var (
		mu     sync.Mutex
		errs   []error
		failed = unrouted
	)

	var g errgroup.Group
	for _, group := range groups {
		g.Go(func() error {
			var notStored []string

			ok, err := c.run(ctx, group.node, "set_multi", func(conn *Connection) error {
				notStored = notStored[:0]

				return c.pipeline(ctx, conn, group.keys, o.noReply,
					func(dst []byte, key string) []byte {
						v := values[key]
						return protocol.AppendStore(dst, protocol.CmdSet, key, v.flags, exptime, v.payload, 0, o.noReply)
					},
					func(key string, line []byte) error {
						stored, err := protocol.ParseStoreReply(line)
						if err != nil {
							return err
						}
						if !stored {
							notStored = append(notStored, key)
						}
						return nil
					},
				)
			})

			mu.Lock()
			defer mu.Unlock()

			for range group.keys {
				c.stats.recordSet()
			}

			if !ok {
				failed = append(failed, group.keys...)
				if err != nil {
					errs = append(errs, err)
				}
				return nil
			}
			failed = append(failed, notStored...)
			return nil
		})
	}
	_ = g.Wait()

	slices.Sort(failed)
	return failed, errors.Join(errs...)
}

// DeleteMulti deletes several keys, pipelining the commands to each server
// in writes of at most Config.PipelineDepth commands.
// It returns true when every server answered every delete, whether the key
// existed or not.
func (c *Client) DeleteMulti(ctx context.Context, keys []string, opts ...Option) (bool, error) {
	if c.closed.Load() {
		return false, ErrClientClosed
	}

	o := c.options(opts)

	for _, key := range keys {
		if err := protocol.ValidateKey(key); err != nil {
			return false, c.fail(err)
		}
	}

	groups, unrouted := c.groupKeys(keys)
	if len(groups) == 0 && len(unrouted) > 0 {
		return false, c.fail(ErrNoServersAvailable)
	}

	var (
		mu      sync.Mutex
		errs    []error
		success = len(unrouted) == 0
	)

	var g errgroup.Group
	for _, group := range groups {
		g.Go(func() error {
			ok, err := c.run(ctx, group.node, "delete_multi", func(conn *Connection) error {
				return c.pipeline(ctx, conn, group.keys, o.noReply,
					func(dst []byte, key string) []byte {
						return protocol.AppendDelete(dst, key, o.noReply)
					},
					func(_ string, line []byte) error {
						_, err := protocol.ParseDeleteReply(line)
						return err
					},
				)
			})

			mu.Lock()
			defer mu.Unlock()

			for range group.keys {
				c.stats.recordDelete()
			}
			if !ok {
				success = false
				if err != nil {
					errs = append(errs, err)
				}
			}
			return nil
		})
	}
	_ = g.Wait()

	return success, errors.Join(errs...)
}

// pipeline sends one command per key on conn, at most Config.PipelineDepth
// commands per write. The replies of a write are read before the next one,
// so neither side's socket buffer fills up with a large batch.
func (c *Client) pipeline(
	ctx context.Context,
	conn *Connection,
	keys []string,
	noReply bool,
	build func(dst []byte, key string) []byte,
	read func(key string, line []byte) error,
) error {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	for chunk := range slices.Chunk(keys, c.config.PipelineDepth) {
		buf.Reset()
		for _, key := range chunk {
			buf.B = build(buf.B, key)
		}
		if err := conn.Send(ctx, buf.B); err != nil {
			return err
		}
		if noReply {
			continue
		}

		for _, key := range chunk {
			line, err := conn.ReadLine()
			if err != nil {
				return err
			}
			if err := read(key, line); err != nil {
				return err
			}
		}
	}
	return nil
}

// broadcast runs fn on every alive server in parallel. Unreachable servers
// are marked dead and skipped; protocol errors are joined.
func (c *Client) broadcast(ctx context.Context, op string, fn func(addr string, conn *Connection) error) error {
	if c.closed.Load() {
		return ErrClientClosed
	}

	nodes := c.servers.alive()
	if len(nodes) == 0 {
		return c.fail(ErrNoServersAvailable)
	}

	var (
		mu   sync.Mutex
		errs []error
	)

	var g errgroup.Group
	for _, node := range nodes {
		g.Go(func() error {
			_, err := c.run(ctx, node, op, func(conn *Connection) error {
				return fn(node.addr, conn)
			})
			if err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	return errors.Join(errs...)
}

// FlushAll invalidates every item on every alive server, after delay when
// it is positive.
func (c *Client) FlushAll(ctx context.Context, delay time.Duration) error {
	seconds := int64(delay / time.Second)

	return c.broadcast(ctx, string(protocol.CmdFlushAll), func(_ string, conn *Connection) error {
		if err := conn.Send(ctx, protocol.AppendFlushAll(nil, seconds)); err != nil {
			return err
		}
		line, err := conn.ReadLine()
		if err != nil {
			return err
		}
		_, err = protocol.ParseReply(line, protocol.ReplyOK)
		return err
	})
}

// ServerStats returns the "stats" output of every alive server, by server
// address. arg selects a stats group such as "slabs" or "items"; empty
// means general stats.
func (c *Client) ServerStats(ctx context.Context, arg string) (map[string]map[string]string, error) {
	var mu sync.Mutex
	result := make(map[string]map[string]string)

	err := c.broadcast(ctx, string(protocol.CmdStats), func(addr string, conn *Connection) error {
		if err := conn.Send(ctx, protocol.AppendStats(nil, arg)); err != nil {
			return err
		}
		stats, err := protocol.ReadStats(conn)
		if err != nil {
			return err
		}

		mu.Lock()
		result[addr] = stats
		mu.Unlock()
		return nil
	})

	return result, err
}

// Version returns the version of every alive server, by server address.
func (c *Client) Version(ctx context.Context) (map[string]string, error) {
	var mu sync.Mutex
	result := make(map[string]string)

	err := c.broadcast(ctx, string(protocol.CmdVersion), func(addr string, conn *Connection) error {
		if err := conn.Send(ctx, protocol.AppendVersion(nil)); err != nil {
			return err
		}
		line, err := conn.ReadLine()
		if err != nil {
			return err
		}
		version, err := protocol.ParseVersionReply(line)
		if err != nil {
			return err
		}

		mu.Lock()
		result[addr] = version
		mu.Unlock()
		return nil
	})

	return result, err
}
