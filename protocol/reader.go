package protocol

import (
	"bytes"
	"strconv"
)

// LineReader is the read side of a connection: ReadLine returns the next
// line without its terminator, ReadExact returns exactly n bytes of a data
// block and consumes the CRLF that follows it.
type LineReader interface {
	ReadLine() ([]byte, error)
	ReadExact(n int) ([]byte, error)
}

// Value is one VALUE block of a retrieval reply.
type Value struct {
	Key    string
	Flags  uint32
	CasID  uint64
	HasCas bool
	Data   []byte
}

// ValueHeader is the parsed "VALUE <key> <flags> <bytes>[ <cas unique>]" line.
type ValueHeader struct {
	Key    string
	Flags  uint32
	Size   int
	CasID  uint64
	HasCas bool
}

var (
	valuePrefix       = []byte(ValuePrefix + " ")
	statPrefix        = []byte(StatPrefix + " ")
	versionPrefix     = []byte(VersionPrefix + " ")
	errorGenericBytes = []byte(ErrorGeneric)
	clientErrorPrefix = []byte(ErrorClientPrefix)
	serverErrorPrefix = []byte(ErrorServerPrefix)
)

// ErrorFromLine returns the typed error carried by an ERROR, CLIENT_ERROR or
// SERVER_ERROR line, or nil for any other line.
func ErrorFromLine(line []byte) error {
	switch {
	case bytes.Equal(line, errorGenericBytes):
		return &GenericError{Message: ErrorGeneric}
	case bytes.HasPrefix(line, clientErrorPrefix):
		return &ClientError{Message: trimMessage(line[len(clientErrorPrefix):])}
	case bytes.HasPrefix(line, serverErrorPrefix):
		return &ServerError{Message: trimMessage(line[len(serverErrorPrefix):])}
	}
	return nil
}

func trimMessage(b []byte) string {
	return string(bytes.TrimPrefix(b, []byte(Space)))
}

// ParseReply matches line against the expected reply tokens.
// Error lines come back as their typed error, anything else as *ParseError.
func ParseReply(line []byte, expected ...Reply) (Reply, error) {
	for _, r := range expected {
		if string(line) == string(r) {
			return r, nil
		}
	}
	if err := ErrorFromLine(line); err != nil {
		return "", err
	}
	return "", &ParseError{Message: "unexpected reply", Line: string(line)}
}

// ParseStoreReply maps a storage reply to its boolean outcome:
// STORED is true; NOT_STORED, EXISTS and NOT_FOUND are false.
func ParseStoreReply(line []byte) (bool, error) {
	reply, err := ParseReply(line, ReplyStored, ReplyNotStored, ReplyExists, ReplyNotFound)
	if err != nil {
		return false, err
	}
	return reply == ReplyStored, nil
}

// ParseDeleteReply returns true for DELETED and false for NOT_FOUND.
func ParseDeleteReply(line []byte) (bool, error) {
	reply, err := ParseReply(line, ReplyDeleted, ReplyNotFound)
	if err != nil {
		return false, err
	}
	return reply == ReplyDeleted, nil
}

// ParseTouchReply returns true for TOUCHED and false for NOT_FOUND.
func ParseTouchReply(line []byte) (bool, error) {
	reply, err := ParseReply(line, ReplyTouched, ReplyNotFound)
	if err != nil {
		return false, err
	}
	return reply == ReplyTouched, nil
}

// ParseArithmeticReply parses the reply to incr/decr: the new value as
// decimal text, or NOT_FOUND (found is false).
func ParseArithmeticReply(line []byte) (value uint64, found bool, err error) {
	if string(line) == string(ReplyNotFound) {
		return 0, false, nil
	}
	if err := ErrorFromLine(line); err != nil {
		return 0, false, err
	}

	// older servers pad the value with trailing spaces
	digits := bytes.TrimRight(line, Space)
	value, err = strconv.ParseUint(string(digits), 10, 64)
	if err != nil {
		return 0, false, &ParseError{Message: "invalid arithmetic reply", Line: string(line), Err: err}
	}
	return value, true, nil
}

// ParseValueHeader parses a "VALUE <key> <flags> <bytes>[ <cas unique>]" line.
func ParseValueHeader(line []byte) (ValueHeader, error) {
	var h ValueHeader

	errf := func(msg string, err error) (ValueHeader, error) {
		return ValueHeader{}, &ParseError{Message: msg, Line: string(line), Err: err}
	}

	if !bytes.HasPrefix(line, valuePrefix) {
		return errf("expected VALUE line", nil)
	}

	fields := bytes.Fields(line[len(valuePrefix):])
	if len(fields) != 3 && len(fields) != 4 {
		return errf("malformed VALUE line", nil)
	}

	h.Key = string(fields[0])

	flags, err := strconv.ParseUint(string(fields[1]), 10, 32)
	if err != nil {
		return errf("invalid flags in VALUE line", err)
	}
	h.Flags = uint32(flags)

	size, err := strconv.Atoi(string(fields[2]))
	if err != nil {
		return errf("invalid size in VALUE line", err)
	}
	if size < 0 {
		return errf("negative size in VALUE line", nil)
	}
	if size > MaxDataBlockSize {
		return errf("size in VALUE line exceeds maximum data block size", nil)
	}
	h.Size = size

	if len(fields) == 4 {
		h.CasID, err = strconv.ParseUint(string(fields[3]), 10, 64)
		if err != nil {
			return errf("invalid cas unique in VALUE line", err)
		}
		h.HasCas = true
	}

	return h, nil
}

// ReadValues reads VALUE blocks until END, calling fn for each.
// Some servers answer a retrieval of missing keys with a bare NOT_FOUND,
// which also ends the reply.
func ReadValues(r LineReader, fn func(Value)) error {
	for {
		line, err := r.ReadLine()
		if err != nil {
			return err
		}

		if string(line) == string(ReplyEnd) || string(line) == string(ReplyNotFound) {
			return nil
		}

		if err := ErrorFromLine(line); err != nil {
			return err
		}

		h, err := ParseValueHeader(line)
		if err != nil {
			return err
		}

		data, err := r.ReadExact(h.Size)
		if err != nil {
			return err
		}

		fn(Value{
			Key:    h.Key,
			Flags:  h.Flags,
			CasID:  h.CasID,
			HasCas: h.HasCas,
			Data:   data,
		})
	}
}

// ReadStats reads "STAT <name> <value>" lines until END.
//
// Example reply:
//
//	STAT pid 12345
//	STAT uptime 3600
//	END
func ReadStats(r LineReader) (map[string]string, error) {
	stats := make(map[string]string)

	for {
		line, err := r.ReadLine()
		if err != nil {
			return stats, err
		}

		if string(line) == string(ReplyEnd) {
			return stats, nil
		}

		if err := ErrorFromLine(line); err != nil {
			return stats, err
		}

		if !bytes.HasPrefix(line, statPrefix) {
			return stats, &ParseError{Message: "invalid stats line", Line: string(line)}
		}

		// value may contain spaces
		name, value, ok := bytes.Cut(line[len(statPrefix):], []byte(Space))
		if !ok {
			return stats, &ParseError{Message: "invalid STAT line format", Line: string(line)}
		}

		stats[string(name)] = string(value)
	}
}

// ParseVersionReply returns the version from a "VERSION <version>" line.
func ParseVersionReply(line []byte) (string, error) {
	if err := ErrorFromLine(line); err != nil {
		return "", err
	}
	if !bytes.HasPrefix(line, versionPrefix) {
		return "", &ParseError{Message: "expected VERSION line", Line: string(line)}
	}
	return string(line[len(versionPrefix):]), nil
}
