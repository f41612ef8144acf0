package memcache

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"time"

	"github.com/pior/memcache-classic/protocol"
)

// Dialer opens stream connections. *net.Dialer implements it.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

const readBufferSize = 16 * 1024

// Connection is one stream socket to one server. It dials lazily and carries
// at most one request at a time: it is owned by a single operation between
// pool Acquire and Release.
type Connection struct {
	addr    string
	network string
	address string
	dialer  Dialer
	timeout time.Duration

	conn   net.Conn
	reader *bufio.Reader
}

func newConnection(addr, network, address string, dialer Dialer, timeout time.Duration) *Connection {
	return &Connection{
		addr:    addr,
		network: network,
		address: address,
		dialer:  dialer,
		timeout: timeout,
	}
}

// Addr returns the server address as configured.
func (c *Connection) Addr() string {
	return c.addr
}

// IsOpen reports whether the socket is connected.
func (c *Connection) IsOpen() bool {
	return c.conn != nil
}

// EnsureOpen dials the server if the connection is not open yet.
func (c *Connection) EnsureOpen(ctx context.Context) error {
	if c.conn != nil {
		return nil
	}

	dialCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	conn, err := c.dialer.DialContext(dialCtx, c.network, c.address)
	if err != nil {
		return c.fail("dial", err)
	}

	if tcpConn, ok := conn.(*net.TCPConn); ok {
		_ = tcpConn.SetNoDelay(true)
	}

	c.conn = conn
	if c.reader == nil {
		c.reader = bufio.NewReaderSize(conn, readBufferSize)
	} else {
		c.reader.Reset(conn)
	}
	return nil
}

// Send writes b fully. The deadline it sets also bounds the reads of the
// reply that follow.
func (c *Connection) Send(ctx context.Context, b []byte) error {
	if c.conn == nil {
		return c.fail("write", net.ErrClosed)
	}

	if err := c.conn.SetDeadline(c.deadline(ctx)); err != nil {
		return c.fail("write", err)
	}

	if _, err := c.conn.Write(b); err != nil {
		return c.fail("write", err)
	}
	return nil
}

func (c *Connection) deadline(ctx context.Context) time.Time {
	var deadline time.Time
	if c.timeout > 0 {
		deadline = time.Now().Add(c.timeout)
	}
	if ctxDeadline, ok := ctx.Deadline(); ok && (deadline.IsZero() || ctxDeadline.Before(deadline)) {
		deadline = ctxDeadline
	}
	return deadline
}

// ReadLine returns the next line without its CRLF terminator.
// The slice is only valid until the next read.
func (c *Connection) ReadLine() ([]byte, error) {
	if c.reader == nil || c.conn == nil {
		return nil, c.fail("read", net.ErrClosed)
	}

	line, err := c.reader.ReadSlice('\n')
	if err != nil {
		if errors.Is(err, bufio.ErrBufferFull) {
			return nil, &protocol.ParseError{Message: "reply line too long"}
		}
		return nil, c.fail("read", err)
	}

	line = bytes.TrimSuffix(line[:len(line)-1], []byte("\r"))
	return line, nil
}

// ReadExact returns the n bytes of a data block and consumes the CRLF that
// terminates it.
func (c *Connection) ReadExact(n int) ([]byte, error) {
	if c.reader == nil || c.conn == nil {
		return nil, c.fail("read", net.ErrClosed)
	}
	if n < 0 || n > protocol.MaxDataBlockSize {
		return nil, &protocol.ParseError{Message: "invalid data block size"}
	}

	buf := make([]byte, n+len(protocol.CRLF))
	if _, err := io.ReadFull(c.reader, buf); err != nil {
		return nil, c.fail("read", err)
	}

	if !bytes.HasSuffix(buf, []byte(protocol.CRLF)) {
		return nil, &protocol.ParseError{Message: "invalid data block terminator"}
	}
	return buf[:n], nil
}

// Close closes the socket. It is idempotent.
func (c *Connection) Close() error {
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}

func (c *Connection) fail(op string, err error) error {
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
	return &ConnectionError{Addr: c.addr, Op: op, Err: err}
}
