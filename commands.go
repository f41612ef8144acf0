package memcache

import (
	"context"

	"github.com/pior/memcache-classic/protocol"
	"github.com/valyala/bytebufferpool"
)

// Outcome is the result of Delete and Touch.
type Outcome int

const (
	// NotFound means the key does not exist, or the server was unreachable.
	NotFound Outcome = iota
	// Sent means the command was sent with noreply; the result is unknown.
	Sent
	// Done means the key was deleted or touched.
	Done
)

func (o Outcome) String() string {
	switch o {
	case NotFound:
		return "not_found"
	case Sent:
		return "sent"
	case Done:
		return "done"
	default:
		return "unknown"
	}
}

// Get retrieves a single item. A miss returns an Item with Found false and a
// nil error.
func (c *Client) Get(ctx context.Context, key string) (Item, error) {
	return c.get(ctx, protocol.CmdGet, key)
}

// Gets retrieves a single item with its cas-id, and records the cas-id for
// a later CompareAndSwap on the same key.
func (c *Client) Gets(ctx context.Context, key string) (Item, error) {
	item, err := c.get(ctx, protocol.CmdGets, key)
	if err == nil && item.Found {
		c.cas.store(key, item.CasID)
	}
	return item, err
}

func (c *Client) get(ctx context.Context, cmd protocol.Command, key string) (Item, error) {
	if err := protocol.ValidateKey(key); err != nil {
		return Item{}, c.fail(err)
	}

	node, err := c.route(key)
	if err != nil {
		return Item{}, err
	}

	var value protocol.Value
	var found bool

	ok, err := c.run(ctx, node, string(cmd), func(conn *Connection) error {
		buf := bytebufferpool.Get()
		defer bytebufferpool.Put(buf)

		buf.B = protocol.AppendRetrieval(buf.B, cmd, key)
		if err := conn.Send(ctx, buf.B); err != nil {
			return err
		}

		return protocol.ReadValues(conn, func(v protocol.Value) {
			if v.Key == key {
				value = v
				found = true
			}
		})
	})
	if !ok {
		c.stats.recordGet(1, 0)
		return Item{Key: key}, err
	}

	if !found {
		c.stats.recordGet(1, 0)
		return Item{Key: key}, nil
	}

	item, err := c.decodeItem(value)
	if err != nil {
		return Item{}, c.fail(err)
	}

	c.stats.recordGet(1, 1)
	return item, nil
}

func (c *Client) decodeItem(v protocol.Value) (Item, error) {
	decoded, err := c.codec.Decode(v.Flags, v.Data)
	if err != nil {
		return Item{}, err
	}
	return Item{
		Key:   v.Key,
		Value: decoded,
		Flags: v.Flags,
		CasID: v.CasID,
		Found: true,
	}, nil
}

// Set stores value under key unconditionally.
func (c *Client) Set(ctx context.Context, key string, value any, opts ...Option) (bool, error) {
	return c.store(ctx, protocol.CmdSet, key, value, 0, opts)
}

// Add stores value only if key does not exist.
func (c *Client) Add(ctx context.Context, key string, value any, opts ...Option) (bool, error) {
	return c.store(ctx, protocol.CmdAdd, key, value, 0, opts)
}

// Replace stores value only if key exists.
func (c *Client) Replace(ctx context.Context, key string, value any, opts ...Option) (bool, error) {
	return c.store(ctx, protocol.CmdReplace, key, value, 0, opts)
}

// Append adds value after the existing data of key. The flags of the
// existing item are kept by the server, so value should encode like it.
func (c *Client) Append(ctx context.Context, key string, value any, opts ...Option) (bool, error) {
	return c.store(ctx, protocol.CmdAppend, key, value, 0, opts)
}

// Prepend adds value before the existing data of key.
func (c *Client) Prepend(ctx context.Context, key string, value any, opts ...Option) (bool, error) {
	return c.store(ctx, protocol.CmdPrepend, key, value, 0, opts)
}

// CompareAndSwap stores value only if key was not modified since the Gets
// that recorded its cas-id. It returns ErrNoCasID if no Gets recorded one.
func (c *Client) CompareAndSwap(ctx context.Context, key string, value any, opts ...Option) (bool, error) {
	casID, ok := c.cas.load(key)
	if !ok {
		return false, c.fail(ErrNoCasID)
	}
	c.stats.recordCompareAndSwap()
	return c.store(ctx, protocol.CmdCas, key, value, casID, opts)
}

// store runs one command of the storage family. It reports true for STORED,
// and for anything sent with noreply.
func (c *Client) store(ctx context.Context, cmd protocol.Command, key string, value any, casID uint64, opts []Option) (bool, error) {
	o := c.options(opts)

	if err := protocol.ValidateKey(key); err != nil {
		return false, c.fail(err)
	}

	flags, payload, err := c.codec.Encode(value, o.minCompressLen)
	if err != nil {
		return false, c.fail(err)
	}
	if c.config.MaxValueLength > 0 && len(payload) > c.config.MaxValueLength {
		return false, c.fail(ErrValueTooLarge)
	}

	node, err := c.route(key)
	if err != nil {
		return false, err
	}

	if cmd != protocol.CmdCas {
		c.stats.recordSet()
	}

	stored := o.noReply
	ok, err := c.run(ctx, node, string(cmd), func(conn *Connection) error {
		buf := bytebufferpool.Get()
		defer bytebufferpool.Put(buf)

		buf.B = protocol.AppendStore(buf.B, cmd, key, flags, o.exptime(c.config.Now()), payload, casID, o.noReply)
		if err := conn.Send(ctx, buf.B); err != nil {
			return err
		}
		if o.noReply {
			return nil
		}

		line, err := conn.ReadLine()
		if err != nil {
			return err
		}
		stored, err = protocol.ParseStoreReply(line)
		return err
	})
	if !ok {
		return false, err
	}
	return stored, nil
}

// Incr increments the decimal number stored at key by delta and returns the
// new value. found is false when the key does not exist, the server was
// unreachable, or the command was sent with noreply.
func (c *Client) Incr(ctx context.Context, key string, delta uint64, opts ...Option) (value uint64, found bool, err error) {
	return c.arithmetic(ctx, protocol.CmdIncr, key, delta, opts)
}

// Decr decrements the number stored at key by delta. The server clamps the
// result at zero.
func (c *Client) Decr(ctx context.Context, key string, delta uint64, opts ...Option) (value uint64, found bool, err error) {
	return c.arithmetic(ctx, protocol.CmdDecr, key, delta, opts)
}

func (c *Client) arithmetic(ctx context.Context, cmd protocol.Command, key string, delta uint64, opts []Option) (uint64, bool, error) {
	o := c.options(opts)

	if err := protocol.ValidateKey(key); err != nil {
		return 0, false, c.fail(err)
	}

	node, err := c.route(key)
	if err != nil {
		return 0, false, err
	}

	c.stats.recordIncrement()

	var value uint64
	var found bool

	ok, err := c.run(ctx, node, string(cmd), func(conn *Connection) error {
		buf := bytebufferpool.Get()
		defer bytebufferpool.Put(buf)

		buf.B = protocol.AppendArithmetic(buf.B, cmd, key, delta, o.noReply)
		if err := conn.Send(ctx, buf.B); err != nil {
			return err
		}
		if o.noReply {
			return nil
		}

		line, err := conn.ReadLine()
		if err != nil {
			return err
		}
		value, found, err = protocol.ParseArithmeticReply(line)
		return err
	})
	if !ok {
		return 0, false, err
	}
	return value, found, nil
}

// Delete removes key.
func (c *Client) Delete(ctx context.Context, key string, opts ...Option) (Outcome, error) {
	c.stats.recordDelete()
	return c.keyCommand(ctx, protocol.CmdDelete, key, opts, func(dst []byte, o opOptions) []byte {
		return protocol.AppendDelete(dst, key, o.noReply)
	}, protocol.ParseDeleteReply)
}

// Touch updates the expiration of key to the TTL given with WithTTL.
// Without WithTTL the item no longer expires.
func (c *Client) Touch(ctx context.Context, key string, opts ...Option) (Outcome, error) {
	c.stats.recordTouch()
	return c.keyCommand(ctx, protocol.CmdTouch, key, opts, func(dst []byte, o opOptions) []byte {
		return protocol.AppendTouch(dst, key, o.exptime(c.config.Now()), o.noReply)
	}, protocol.ParseTouchReply)
}

func (c *Client) keyCommand(
	ctx context.Context,
	cmd protocol.Command,
	key string,
	opts []Option,
	build func(dst []byte, o opOptions) []byte,
	parse func(line []byte) (bool, error),
) (Outcome, error) {
	o := c.options(opts)

	if err := protocol.ValidateKey(key); err != nil {
		return NotFound, c.fail(err)
	}

	node, err := c.route(key)
	if err != nil {
		return NotFound, err
	}

	outcome := Sent
	ok, err := c.run(ctx, node, string(cmd), func(conn *Connection) error {
		buf := bytebufferpool.Get()
		defer bytebufferpool.Put(buf)

		buf.B = build(buf.B, o)
		if err := conn.Send(ctx, buf.B); err != nil {
			return err
		}
		if o.noReply {
			return nil
		}

		line, err := conn.ReadLine()
		if err != nil {
			return err
		}
		done, err := parse(line)
		if err != nil {
			return err
		}
		outcome = NotFound
		if done {
			outcome = Done
		}
		return nil
	})
	if !ok {
		return NotFound, err
	}
	return outcome, nil
}
