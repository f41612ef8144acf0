// Package codec turns Go values into memcache payloads and back.
//
// A stored item carries a 32-bit flags word next to its bytes. The flags tell
// a reader how the bytes were produced:
//
//	0  FlagNone        string or []byte, stored as is
//	1  FlagSerialized  Serializer output
//	2  FlagInt         int (and narrower integers) as decimal text
//	4  FlagLong        int64, uint, uint64 or *big.Int as decimal text
//	8  FlagCompressed  payload went through the Compressor
//
// The values are the ones used by the classic memcache clients, so items are
// readable across implementations as long as they agree on the serializer.
package codec

import (
	"bytes"
	"errors"
	"fmt"
	"math/big"
	"strconv"
)

const (
	FlagNone       uint32 = 0
	FlagSerialized uint32 = 1 << 0
	FlagInt        uint32 = 1 << 1
	FlagLong       uint32 = 1 << 2
	FlagCompressed uint32 = 1 << 3
)

// ErrUnsupportedType is returned by Encode when the value cannot be
// represented by the configured Serializer.
var ErrUnsupportedType = errors.New("memcache: unsupported value type")

// DecodeError is returned when a payload does not match its flags.
// It is a protocol violation: the item was written by an incompatible client
// or corrupted.
type DecodeError struct {
	Flags   uint32
	Message string
	Err     error
}

func (e *DecodeError) Error() string {
	msg := fmt.Sprintf("memcache: cannot decode value with flags %d: %s", e.Flags, e.Message)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Codec encodes and decodes values. It is safe for concurrent use as long as
// its Serializer and Compressor are.
type Codec struct {
	serializer Serializer
	compressor Compressor
}

// New returns a Codec. A nil serializer defaults to gob, a nil compressor to
// zlib.
func New(serializer Serializer, compressor Compressor) *Codec {
	if serializer == nil {
		serializer = GobSerializer{}
	}
	if compressor == nil {
		compressor = ZlibCompressor{}
	}
	return &Codec{serializer: serializer, compressor: compressor}
}

// Encode returns the flags and payload for value.
//
// The payload is compressed when minCompressLen > 0, the plain payload is
// longer than minCompressLen and compression actually makes it shorter.
func (c *Codec) Encode(value any, minCompressLen int) (uint32, []byte, error) {
	flags, payload, err := c.encodePlain(value)
	if err != nil {
		return 0, nil, err
	}

	if minCompressLen > 0 && len(payload) > minCompressLen {
		compressed, err := c.compressor.Compress(payload)
		if err != nil {
			return 0, nil, fmt.Errorf("memcache: compress with %s: %w", c.compressor.Name(), err)
		}
		if len(compressed) < len(payload) {
			flags |= FlagCompressed
			payload = compressed
		}
	}

	return flags, payload, nil
}

func (c *Codec) encodePlain(value any) (uint32, []byte, error) {
	switch v := value.(type) {
	case string:
		return FlagNone, []byte(v), nil
	case []byte:
		return FlagNone, v, nil

	case int:
		return FlagInt, strconv.AppendInt(nil, int64(v), 10), nil
	case int8:
		return FlagInt, strconv.AppendInt(nil, int64(v), 10), nil
	case int16:
		return FlagInt, strconv.AppendInt(nil, int64(v), 10), nil
	case int32:
		return FlagInt, strconv.AppendInt(nil, int64(v), 10), nil
	case uint8:
		return FlagInt, strconv.AppendUint(nil, uint64(v), 10), nil
	case uint16:
		return FlagInt, strconv.AppendUint(nil, uint64(v), 10), nil
	case uint32:
		return FlagInt, strconv.AppendUint(nil, uint64(v), 10), nil

	case int64:
		return FlagLong, strconv.AppendInt(nil, v, 10), nil
	case uint:
		return FlagLong, strconv.AppendUint(nil, uint64(v), 10), nil
	case uint64:
		return FlagLong, strconv.AppendUint(nil, v, 10), nil
	case *big.Int:
		if v == nil {
			return 0, nil, fmt.Errorf("%w: nil *big.Int", ErrUnsupportedType)
		}
		return FlagLong, v.Append(nil, 10), nil
	}

	payload, err := c.serializer.Marshal(value)
	if err != nil {
		if errors.Is(err, ErrUnsupportedType) {
			return 0, nil, err
		}
		return 0, nil, fmt.Errorf("%w: %T: %w", ErrUnsupportedType, value, err)
	}
	return FlagSerialized, payload, nil
}

// Decode reverses Encode. Strings come back as string, FlagInt as int and
// FlagLong as int64, or *big.Int when the number does not fit.
func (c *Codec) Decode(flags uint32, payload []byte) (any, error) {
	if flags&FlagCompressed != 0 {
		plain, err := c.compressor.Decompress(payload)
		if err != nil {
			return nil, &DecodeError{Flags: flags, Message: "decompression failed", Err: err}
		}
		payload = plain
	}

	switch residual := flags &^ FlagCompressed; residual {
	case FlagNone:
		return string(payload), nil

	case FlagInt:
		n, err := strconv.Atoi(string(bytes.TrimSpace(payload)))
		if err != nil {
			return nil, &DecodeError{Flags: flags, Message: "invalid integer", Err: err}
		}
		return n, nil

	case FlagLong:
		text := string(bytes.TrimSpace(payload))
		n, err := strconv.ParseInt(text, 10, 64)
		if err == nil {
			return n, nil
		}
		if b, ok := new(big.Int).SetString(text, 10); ok {
			return b, nil
		}
		return nil, &DecodeError{Flags: flags, Message: "invalid long integer", Err: err}

	case FlagSerialized:
		v, err := c.serializer.Unmarshal(payload)
		if err != nil {
			return nil, &DecodeError{Flags: flags, Message: "unserialize with " + c.serializer.Name(), Err: err}
		}
		return v, nil

	default:
		return nil, &DecodeError{Flags: flags, Message: "unknown flag combination"}
	}
}
