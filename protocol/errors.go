package protocol

import (
	"errors"
	"fmt"
)

// Error types for text protocol operations.
// They tell the caller whether the connection state is still usable.

// ClientError represents a CLIENT_ERROR reply.
// The server rejected the request and may not have consumed it fully, so the
// connection must be closed.
type ClientError struct {
	Message string
}

func (e *ClientError) Error() string {
	return "CLIENT_ERROR: " + e.Message
}

// ShouldCloseConnection returns true - client errors require closing connection
func (e *ClientError) ShouldCloseConnection() bool {
	return true
}

// ServerError represents a SERVER_ERROR reply, e.g. "object too large for cache"
// or "out of memory storing object". The message is kept verbatim.
//
// Connection handling: the connection can be reused.
type ServerError struct {
	Message string
}

func (e *ServerError) Error() string {
	return "SERVER_ERROR: " + e.Message
}

// ShouldCloseConnection returns false - server errors don't corrupt protocol state
func (e *ServerError) ShouldCloseConnection() bool {
	return false
}

// GenericError represents a bare ERROR reply (unknown command).
type GenericError struct {
	Message string
}

func (e *GenericError) Error() string {
	return e.Message
}

// ShouldCloseConnection returns true - generic errors indicate protocol issues
func (e *GenericError) ShouldCloseConnection() bool {
	return true
}

// InvalidKeyError is returned when a key fails validation before being sent.
// It matches ErrMalformedKey with errors.Is.
type InvalidKeyError struct {
	Key     string
	Message string
}

func (e *InvalidKeyError) Error() string {
	return fmt.Sprintf("memcache: invalid key %q: %s", e.Key, e.Message)
}

func (e *InvalidKeyError) Unwrap() error {
	return ErrMalformedKey
}

// ShouldCloseConnection returns false - nothing was written
func (e *InvalidKeyError) ShouldCloseConnection() bool {
	return false
}

// ParseError represents a reply the client could not make sense of:
// an unexpected token, a malformed VALUE header or a bad data terminator.
//
// Connection handling: CLOSE, the stream position is unknown.
type ParseError struct {
	Message string
	Line    string // offending line, if any
	Err     error  // Underlying error, if any
}

func (e *ParseError) Error() string {
	msg := "parse error: " + e.Message
	if e.Line != "" {
		msg += fmt.Sprintf(" (line %q)", e.Line)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying error for error chain inspection
func (e *ParseError) Unwrap() error {
	return e.Err
}

// ShouldCloseConnection returns true - parse errors indicate corrupted state
func (e *ParseError) ShouldCloseConnection() bool {
	return true
}

// ErrorWithConnectionState is implemented by errors that know whether the
// connection they happened on can be reused.
type ErrorWithConnectionState interface {
	error
	ShouldCloseConnection() bool
}

// ShouldCloseConnection reports whether err leaves the connection in an
// unknown state. Unknown error types are treated conservatively.
func ShouldCloseConnection(err error) bool {
	if err == nil {
		return false
	}

	var e ErrorWithConnectionState
	if errors.As(err, &e) {
		return e.ShouldCloseConnection()
	}

	return true
}

// IsProtocolViolation reports whether err means the server and the client
// disagree about the protocol.
func IsProtocolViolation(err error) bool {
	var (
		pe *ParseError
		ge *GenericError
		ce *ClientError
	)
	return errors.As(err, &pe) || errors.As(err, &ge) || errors.As(err, &ce)
}
