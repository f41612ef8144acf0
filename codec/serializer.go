package codec

import (
	"bytes"
	"encoding/gob"
	"fmt"

	"github.com/bytedance/sonic"
)

// Serializer encodes values that are neither strings nor integers.
type Serializer interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte) (any, error)
	// Name identifies the serializer in errors and logs.
	Name() string
}

// Protocol selects one of the built-in serializers.
type Protocol int

const (
	// ProtocolGob uses encoding/gob. Go-only, keeps concrete types.
	ProtocolGob Protocol = iota
	// ProtocolJSON uses JSON. Readable by other languages, decodes into
	// map[string]any, []any, float64, string, bool or nil.
	ProtocolJSON
)

func (p Protocol) String() string {
	switch p {
	case ProtocolGob:
		return "gob"
	case ProtocolJSON:
		return "json"
	default:
		return fmt.Sprintf("Protocol(%d)", int(p))
	}
}

// ParseProtocol maps "gob" or "json" to a Protocol.
func ParseProtocol(name string) (Protocol, error) {
	switch name {
	case "gob", "":
		return ProtocolGob, nil
	case "json":
		return ProtocolJSON, nil
	default:
		return 0, fmt.Errorf("memcache: unknown serializer %q", name)
	}
}

// NewSerializer returns the built-in serializer for p.
func NewSerializer(p Protocol) (Serializer, error) {
	switch p {
	case ProtocolGob:
		return GobSerializer{}, nil
	case ProtocolJSON:
		return JSONSerializer{}, nil
	default:
		return nil, fmt.Errorf("memcache: unknown serializer %s", p)
	}
}

// gobEnvelope lets gob carry any registered concrete type through an
// interface field.
type gobEnvelope struct {
	V any
}

// GobSerializer serializes with encoding/gob. Types other than gob's
// predeclared ones must be registered with gob.Register before use,
// on both the writing and the reading side.
type GobSerializer struct{}

func (GobSerializer) Name() string { return "gob" }

func (GobSerializer) Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(gobEnvelope{V: v}); err != nil {
		return nil, fmt.Errorf("%w: %T: %w", ErrUnsupportedType, v, err)
	}
	return buf.Bytes(), nil
}

func (GobSerializer) Unmarshal(data []byte) (any, error) {
	var env gobEnvelope
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&env); err != nil {
		return nil, err
	}
	return env.V, nil
}

// JSONSerializer serializes with sonic.
type JSONSerializer struct{}

func (JSONSerializer) Name() string { return "json" }

func (JSONSerializer) Marshal(v any) ([]byte, error) {
	data, err := sonic.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %T: %w", ErrUnsupportedType, v, err)
	}
	return data, nil
}

func (JSONSerializer) Unmarshal(data []byte) (any, error) {
	var v any
	if err := sonic.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return v, nil
}
