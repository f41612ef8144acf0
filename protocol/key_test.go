package protocol

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateKey(t *testing.T) {
	tests := []struct {
		key     string
		message string
	}{
		{"foo", ""},
		{"foo_bar-123:baz", ""},
		{"test-ключ", ""},
		{strings.Repeat("a", MaxKeyLength), ""},
		{"", "key is empty"},
		{strings.Repeat("a", MaxKeyLength+1), "key exceeds maximum length of 250 bytes"},
		{"foo bar", "key contains whitespace or control characters"},
		{"foo\tbar", "key contains whitespace or control characters"},
		{"foo\r\nbar", "key contains whitespace or control characters"},
		{"foo\x00bar", "key contains whitespace or control characters"},
		{"foo\x7fbar", "key contains whitespace or control characters"},
	}

	for _, tt := range tests {
		err := ValidateKey(tt.key)
		assert.Equal(t, tt.message == "", IsValidKey(tt.key), "key %q", tt.key)

		if tt.message == "" {
			assert.NoError(t, err, "key %q", tt.key)
			continue
		}

		require.ErrorIs(t, err, ErrMalformedKey, "key %q", tt.key)
		var keyErr *InvalidKeyError
		require.ErrorAs(t, err, &keyErr)
		assert.Equal(t, tt.key, keyErr.Key)
		assert.Equal(t, tt.message, keyErr.Message)
	}
}

func BenchmarkIsValidKey(b *testing.B) {
	for name, key := range map[string]string{
		"short":   "user:42",
		"max":     strings.Repeat("k", MaxKeyLength),
		"invalid": "user 42",
	} {
		b.Run(name, func(b *testing.B) {
			for b.Loop() {
				IsValidKey(key)
			}
		})
	}
}

func FuzzValidateKey(f *testing.F) {
	f.Add("foo")
	f.Add("")
	f.Add(strings.Repeat("a", MaxKeyLength+1))
	f.Add("key with space")
	f.Add("key\x00null")

	f.Fuzz(func(t *testing.T, key string) {
		valid := IsValidKey(key)
		if valid != (ValidateKey(key) == nil) {
			t.Fatalf("IsValidKey and ValidateKey disagree on %q", key)
		}
		if valid && strings.ContainsAny(key, " \r\n\t\x00\x7f") {
			t.Fatalf("key %q accepted with a separator", key)
		}
	})
}
