package testutils

import (
	"bytes"
	"context"
	"net"
	"slices"
	"strings"
	"sync"
	"time"
)

// ConnectionMock is a scripted net.Conn. Replies queued with AddResponse are
// served in order; everything written is recorded for Commands.
type ConnectionMock struct {
	mu       sync.Mutex
	readBuf  *bytes.Buffer
	writeBuf *bytes.Buffer
	writes   []string
	closed   bool
	readErr  error
	writeErr error
}

// NewConnectionMock creates a mock whose read side holds the given lines,
// each terminated by CRLF.
func NewConnectionMock(lines ...string) *ConnectionMock {
	m := &ConnectionMock{
		readBuf:  &bytes.Buffer{},
		writeBuf: &bytes.Buffer{},
	}
	m.AddResponse(lines...)
	return m
}

// AddResponse queues lines, each terminated by CRLF.
func (m *ConnectionMock) AddResponse(lines ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, line := range lines {
		m.readBuf.WriteString(line)
		m.readBuf.WriteString("\r\n")
	}
}

// AddRaw queues bytes as is.
func (m *ConnectionMock) AddRaw(data string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.readBuf.WriteString(data)
}

// FailReads makes every following Read return err.
func (m *ConnectionMock) FailReads(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.readErr = err
}

// FailWrites makes every following Write return err.
func (m *ConnectionMock) FailWrites(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writeErr = err
}

// Clear drops queued replies and recorded writes.
func (m *ConnectionMock) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.readBuf.Reset()
	m.writeBuf.Reset()
	m.writes = nil
}

func (m *ConnectionMock) Read(b []byte) (n int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return 0, net.ErrClosed
	}
	if m.readErr != nil {
		return 0, m.readErr
	}
	return m.readBuf.Read(b)
}

func (m *ConnectionMock) Write(b []byte) (n int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return 0, net.ErrClosed
	}
	if m.writeErr != nil {
		return 0, m.writeErr
	}
	m.writes = append(m.writes, string(b))
	return m.writeBuf.Write(b)
}

func (m *ConnectionMock) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// IsClosed reports whether Close was called since the last dial.
func (m *ConnectionMock) IsClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

func (m *ConnectionMock) reopen() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = false
}

func (m *ConnectionMock) LocalAddr() net.Addr {
	return &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 0}
}

func (m *ConnectionMock) RemoteAddr() net.Addr {
	return &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 11211}
}

func (m *ConnectionMock) SetDeadline(t time.Time) error      { return nil }
func (m *ConnectionMock) SetReadDeadline(t time.Time) error  { return nil }
func (m *ConnectionMock) SetWriteDeadline(t time.Time) error { return nil }

// GetWrittenRequest returns the raw bytes written to the mock connection.
func (m *ConnectionMock) GetWrittenRequest() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writeBuf.String()
}

// Writes returns the payload of each Write call, in order.
func (m *ConnectionMock) Writes() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.writes)
}

// Commands returns the written bytes split on CRLF, so a storage command
// shows up as its command line followed by its data block.
func (m *ConnectionMock) Commands() []string {
	written := m.GetWrittenRequest()
	if written == "" {
		return nil
	}
	cmds := strings.Split(written, "\r\n")
	if cmds[len(cmds)-1] == "" {
		cmds = cmds[:len(cmds)-1]
	}
	return cmds
}

// DialerMock hands out ConnectionMocks by address.
type DialerMock struct {
	mu    sync.Mutex
	conns map[string]*ConnectionMock
	errs  map[string]error
	dials map[string]int
}

func NewDialerMock() *DialerMock {
	return &DialerMock{
		conns: make(map[string]*ConnectionMock),
		errs:  make(map[string]error),
		dials: make(map[string]int),
	}
}

// Conn returns the mock served for addr, creating it on first use.
// A redial after Close hands out the same mock again.
func (d *DialerMock) Conn(addr string) *ConnectionMock {
	d.mu.Lock()
	defer d.mu.Unlock()
	conn, ok := d.conns[addr]
	if !ok {
		conn = NewConnectionMock()
		d.conns[addr] = conn
	}
	return conn
}

// FailDial makes dialing addr return err. A nil err clears the failure.
func (d *DialerMock) FailDial(addr string, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err == nil {
		delete(d.errs, addr)
		return
	}
	d.errs[addr] = err
}

// Dials returns how many times addr was dialed.
func (d *DialerMock) Dials(addr string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dials[addr]
}

func (d *DialerMock) DialContext(ctx context.Context, network, addr string) (net.Conn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	d.mu.Lock()
	d.dials[addr]++
	err := d.errs[addr]
	d.mu.Unlock()

	if err != nil {
		return nil, &net.OpError{Op: "dial", Net: network, Err: err}
	}

	conn := d.Conn(addr)
	conn.reopen()
	return conn, nil
}
