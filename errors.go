package memcache

import (
	"errors"
	"fmt"

	"github.com/pior/memcache-classic/codec"
	"github.com/pior/memcache-classic/protocol"
	"github.com/sony/gobreaker/v2"
)

var (
	// ErrNoServersAvailable is returned when every server is marked dead.
	ErrNoServersAvailable = errors.New("memcache: no servers available")

	// ErrNoCasID is returned by CompareAndSwap when no cas-id was recorded
	// for the key by a previous Gets.
	ErrNoCasID = errors.New("memcache: no cas id for key")

	// ErrValueTooLarge is returned when the encoded value exceeds
	// Config.MaxValueLength.
	ErrValueTooLarge = errors.New("memcache: value too large")

	// ErrClientClosed is returned by operations on a closed Client.
	ErrClientClosed = errors.New("memcache: client closed")

	// ErrMalformedKey is returned for keys that cannot be sent on the wire.
	ErrMalformedKey = protocol.ErrMalformedKey

	// ErrUnsupportedType is returned for values the serializer cannot encode.
	ErrUnsupportedType = codec.ErrUnsupportedType
)

// ConnectionError is a transport failure on a server connection: dial,
// write, read, timeout or an unexpected close.
//
// The client handles it by marking the server dead, so it is not returned
// from data operations.
type ConnectionError struct {
	Addr string
	Op   string
	Err  error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("memcache: %s %s: %v", e.Op, e.Addr, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// ShouldCloseConnection returns true - the stream is unusable
func (e *ConnectionError) ShouldCloseConnection() bool {
	return true
}

// isTransportFailure reports whether err means the server could not be
// talked to, as opposed to the server answering with an error.
func isTransportFailure(err error) bool {
	var connErr *ConnectionError
	return errors.As(err, &connErr) ||
		errors.Is(err, gobreaker.ErrOpenState) ||
		errors.Is(err, gobreaker.ErrTooManyRequests)
}
