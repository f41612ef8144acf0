package protocol

import "errors"

// ErrMalformedKey is returned when a key is empty, longer than MaxKeyLength,
// or contains whitespace or control characters.
var ErrMalformedKey = errors.New("memcache: malformed key")

func IsValidKey(key string) bool {
	if len(key) < MinKeyLength || len(key) > MaxKeyLength {
		return false
	}

	for _, b := range []byte(key) {
		if b <= 32 || b == 127 {
			return false
		}
	}

	return true
}

// ValidateKey returns an *InvalidKeyError wrapping ErrMalformedKey when key
// cannot be sent on the wire.
func ValidateKey(key string) error {
	switch {
	case len(key) < MinKeyLength:
		return &InvalidKeyError{Key: key, Message: "key is empty"}
	case len(key) > MaxKeyLength:
		return &InvalidKeyError{Key: key, Message: "key exceeds maximum length of 250 bytes"}
	case !IsValidKey(key):
		return &InvalidKeyError{Key: key, Message: "key contains whitespace or control characters"}
	}
	return nil
}
