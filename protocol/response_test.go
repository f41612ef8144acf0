package protocol

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// lineReader is a minimal LineReader over a string, for tests.
type lineReader struct {
	r *bufio.Reader
}

func newLineReader(s string) *lineReader {
	return &lineReader{r: bufio.NewReader(strings.NewReader(s))}
}

func (lr *lineReader) ReadLine() ([]byte, error) {
	line, err := lr.r.ReadBytes('\n')
	if err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(line, []byte(CRLF)), nil
}

func (lr *lineReader) ReadExact(n int) ([]byte, error) {
	if n > 1<<20 {
		return nil, &ParseError{Message: "data block too large"}
	}
	buf := make([]byte, n+2)
	if _, err := io.ReadFull(lr.r, buf); err != nil {
		return nil, err
	}
	if !bytes.HasSuffix(buf, []byte(CRLF)) {
		return nil, &ParseError{Message: "invalid data block terminator"}
	}
	return buf[:n], nil
}

func TestParseStoreReply(t *testing.T) {
	tests := []struct {
		line   string
		stored bool
	}{
		{"STORED", true},
		{"NOT_STORED", false},
		{"EXISTS", false},
		{"NOT_FOUND", false},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			stored, err := ParseStoreReply([]byte(tt.line))
			require.NoError(t, err)
			assert.Equal(t, tt.stored, stored)
		})
	}
}

func TestParseStoreReply_Errors(t *testing.T) {
	_, err := ParseStoreReply([]byte("SERVER_ERROR object too large for cache"))
	var serverErr *ServerError
	require.ErrorAs(t, err, &serverErr)
	assert.Equal(t, "object too large for cache", serverErr.Message)
	assert.False(t, ShouldCloseConnection(err))

	_, err = ParseStoreReply([]byte("CLIENT_ERROR bad data chunk"))
	var clientErr *ClientError
	require.ErrorAs(t, err, &clientErr)
	assert.Equal(t, "bad data chunk", clientErr.Message)
	assert.True(t, ShouldCloseConnection(err))

	_, err = ParseStoreReply([]byte("ERROR"))
	var genericErr *GenericError
	require.ErrorAs(t, err, &genericErr)
	assert.True(t, IsProtocolViolation(err))

	_, err = ParseStoreReply([]byte("DELETED"))
	var parseErr *ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Equal(t, "DELETED", parseErr.Line)
	assert.True(t, ShouldCloseConnection(err))
}

func TestParseDeleteAndTouchReply(t *testing.T) {
	deleted, err := ParseDeleteReply([]byte("DELETED"))
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = ParseDeleteReply([]byte("NOT_FOUND"))
	require.NoError(t, err)
	assert.False(t, deleted)

	touched, err := ParseTouchReply([]byte("TOUCHED"))
	require.NoError(t, err)
	assert.True(t, touched)

	touched, err = ParseTouchReply([]byte("NOT_FOUND"))
	require.NoError(t, err)
	assert.False(t, touched)

	_, err = ParseTouchReply([]byte("STORED"))
	assert.Error(t, err)
}

func TestParseArithmeticReply(t *testing.T) {
	value, found, err := ParseArithmeticReply([]byte("2"))
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, uint64(2), value)

	value, found, err = ParseArithmeticReply([]byte("18446744073709551615"))
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, uint64(18446744073709551615), value)

	value, found, err = ParseArithmeticReply([]byte("42  "))
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, uint64(42), value)

	_, found, err = ParseArithmeticReply([]byte("NOT_FOUND"))
	require.NoError(t, err)
	assert.False(t, found)

	_, _, err = ParseArithmeticReply([]byte("CLIENT_ERROR cannot increment or decrement non-numeric value"))
	var clientErr *ClientError
	assert.ErrorAs(t, err, &clientErr)

	_, _, err = ParseArithmeticReply([]byte("abc"))
	var parseErr *ParseError
	assert.ErrorAs(t, err, &parseErr)
}

func TestParseValueHeader(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		want    ValueHeader
		wantErr bool
	}{
		{
			name: "without cas",
			line: "VALUE test-int 2 1",
			want: ValueHeader{Key: "test-int", Flags: 2, Size: 1},
		},
		{
			name: "with cas",
			line: "VALUE test 0 7 123",
			want: ValueHeader{Key: "test", Flags: 0, Size: 7, CasID: 123, HasCas: true},
		},
		{
			name: "large flags",
			line: "VALUE k 4294967295 0",
			want: ValueHeader{Key: "k", Flags: 4294967295, Size: 0},
		},
		{name: "missing size", line: "VALUE k 0", wantErr: true},
		{name: "too many fields", line: "VALUE k 0 1 2 3", wantErr: true},
		{name: "bad flags", line: "VALUE k x 1", wantErr: true},
		{name: "flags overflow", line: "VALUE k 4294967296 1", wantErr: true},
		{name: "negative size", line: "VALUE k 0 -1", wantErr: true},
		{name: "size above max block", line: "VALUE k 0 1073741825", wantErr: true},
		{name: "size overflows int", line: "VALUE k 0 9223372036854775807", wantErr: true},
		{name: "bad cas", line: "VALUE k 0 1 abc", wantErr: true},
		{name: "not a value line", line: "STORED", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseValueHeader([]byte(tt.line))
			if tt.wantErr {
				var parseErr *ParseError
				require.ErrorAs(t, err, &parseErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestReadValues(t *testing.T) {
	r := newLineReader("VALUE a 0 5\r\nhello\r\nVALUE b 2 2 99\r\n42\r\nEND\r\n")

	var values []Value
	err := ReadValues(r, func(v Value) { values = append(values, v) })
	require.NoError(t, err)

	require.Len(t, values, 2)
	assert.Equal(t, Value{Key: "a", Flags: 0, Data: []byte("hello")}, values[0])
	assert.Equal(t, Value{Key: "b", Flags: 2, CasID: 99, HasCas: true, Data: []byte("42")}, values[1])
}

func TestReadValues_Miss(t *testing.T) {
	r := newLineReader("END\r\n")

	called := false
	err := ReadValues(r, func(Value) { called = true })
	require.NoError(t, err)
	assert.False(t, called)
}

func TestReadValues_NotFoundEndsReply(t *testing.T) {
	r := newLineReader("NOT_FOUND\r\nEND\r\n")

	called := false
	err := ReadValues(r, func(Value) { called = true })
	require.NoError(t, err)
	assert.False(t, called)

	// the next reply starts right after NOT_FOUND
	line, err := r.ReadLine()
	require.NoError(t, err)
	assert.Equal(t, "END", string(line))
}

func TestReadValues_DataContainsCRLF(t *testing.T) {
	r := newLineReader("VALUE a 0 4\r\n\r\n\r\n\r\nEND\r\n")

	var values []Value
	require.NoError(t, ReadValues(r, func(v Value) { values = append(values, v) }))
	require.Len(t, values, 1)
	assert.Equal(t, []byte("\r\n\r\n"), values[0].Data)
}

func TestReadValues_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"unexpected token", "STORED\r\n"},
		{"oversized block", "VALUE a 0 9223372036854775807\r\nx\r\n"},
		{"server error", "SERVER_ERROR out of memory\r\n"},
		{"bad terminator", "VALUE a 0 2\r\nabXX"},
		{"truncated", "VALUE a 0 5\r\nab"},
		{"eof before end", "VALUE a 0 1\r\nx\r\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ReadValues(newLineReader(tt.input), func(Value) {})
			assert.Error(t, err)
		})
	}
}

func TestReadStats(t *testing.T) {
	r := newLineReader("STAT pid 12345\r\nSTAT version 1.6.21\r\nSTAT libevent 2.1.12-stable extra\r\nEND\r\n")

	stats, err := ReadStats(r)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"pid":      "12345",
		"version":  "1.6.21",
		"libevent": "2.1.12-stable extra",
	}, stats)
}

func TestReadStats_Errors(t *testing.T) {
	_, err := ReadStats(newLineReader("ERROR\r\n"))
	var genericErr *GenericError
	assert.ErrorAs(t, err, &genericErr)

	_, err = ReadStats(newLineReader("VALUE a 0 1\r\n"))
	var parseErr *ParseError
	assert.ErrorAs(t, err, &parseErr)

	_, err = ReadStats(newLineReader("STAT lonely\r\n"))
	assert.ErrorAs(t, err, &parseErr)
}

func TestParseVersionReply(t *testing.T) {
	version, err := ParseVersionReply([]byte("VERSION 1.6.21"))
	require.NoError(t, err)
	assert.Equal(t, "1.6.21", version)

	_, err = ParseVersionReply([]byte("STORED"))
	assert.Error(t, err)
}

func TestShouldCloseConnection(t *testing.T) {
	assert.False(t, ShouldCloseConnection(nil))
	assert.False(t, ShouldCloseConnection(&ServerError{Message: "x"}))
	assert.False(t, ShouldCloseConnection(ValidateKey("")))
	assert.True(t, ShouldCloseConnection(&ClientError{Message: "x"}))
	assert.True(t, ShouldCloseConnection(&GenericError{Message: "ERROR"}))
	assert.True(t, ShouldCloseConnection(&ParseError{Message: "x"}))
	assert.True(t, ShouldCloseConnection(errors.New("unknown")))
}
