package protocol

import (
	"strconv"
)

// Request builders append the wire form of a command to dst and return the
// extended slice, in the style of strconv.AppendInt. Keys are not validated
// here; callers run ValidateKey first.

// AppendRetrieval appends "get <key>*\r\n" or "gets <key>*\r\n".
func AppendRetrieval(dst []byte, cmd Command, keys ...string) []byte {
	dst = append(dst, cmd...)
	for _, key := range keys {
		dst = append(dst, ' ')
		dst = append(dst, key...)
	}
	return append(dst, CRLF...)
}

// AppendStore appends a storage command followed by its data block:
//
//	<cmd> <key> <flags> <exptime> <bytes>[ <cas unique>][ noreply]\r\n<data>\r\n
//
// casID is only written for CmdCas.
func AppendStore(dst []byte, cmd Command, key string, flags uint32, exptime int64, data []byte, casID uint64, noreply bool) []byte {
	dst = append(dst, cmd...)
	dst = append(dst, ' ')
	dst = append(dst, key...)
	dst = append(dst, ' ')
	dst = strconv.AppendUint(dst, uint64(flags), 10)
	dst = append(dst, ' ')
	dst = strconv.AppendInt(dst, exptime, 10)
	dst = append(dst, ' ')
	dst = strconv.AppendInt(dst, int64(len(data)), 10)
	if cmd == CmdCas {
		dst = append(dst, ' ')
		dst = strconv.AppendUint(dst, casID, 10)
	}
	dst = appendNoReply(dst, noreply)
	dst = append(dst, CRLF...)
	dst = append(dst, data...)
	return append(dst, CRLF...)
}

// AppendArithmetic appends "incr|decr <key> <delta>[ noreply]\r\n".
func AppendArithmetic(dst []byte, cmd Command, key string, delta uint64, noreply bool) []byte {
	dst = append(dst, cmd...)
	dst = append(dst, ' ')
	dst = append(dst, key...)
	dst = append(dst, ' ')
	dst = strconv.AppendUint(dst, delta, 10)
	dst = appendNoReply(dst, noreply)
	return append(dst, CRLF...)
}

// AppendDelete appends "delete <key>[ noreply]\r\n".
func AppendDelete(dst []byte, key string, noreply bool) []byte {
	dst = append(dst, CmdDelete...)
	dst = append(dst, ' ')
	dst = append(dst, key...)
	dst = appendNoReply(dst, noreply)
	return append(dst, CRLF...)
}

// AppendTouch appends "touch <key>[ <exptime>][ noreply]\r\n".
// A zero exptime is left out, matching what other clients send.
func AppendTouch(dst []byte, key string, exptime int64, noreply bool) []byte {
	dst = append(dst, CmdTouch...)
	dst = append(dst, ' ')
	dst = append(dst, key...)
	if exptime != 0 {
		dst = append(dst, ' ')
		dst = strconv.AppendInt(dst, exptime, 10)
	}
	dst = appendNoReply(dst, noreply)
	return append(dst, CRLF...)
}

// AppendFlushAll appends "flush_all[ <delay>]\r\n".
func AppendFlushAll(dst []byte, delay int64) []byte {
	dst = append(dst, CmdFlushAll...)
	if delay > 0 {
		dst = append(dst, ' ')
		dst = strconv.AppendInt(dst, delay, 10)
	}
	return append(dst, CRLF...)
}

// AppendStats appends "stats[ <arg>]\r\n", e.g. arg "slabs" or "items".
func AppendStats(dst []byte, arg string) []byte {
	dst = append(dst, CmdStats...)
	if arg != "" {
		dst = append(dst, ' ')
		dst = append(dst, arg...)
	}
	return append(dst, CRLF...)
}

// AppendVersion appends "version\r\n".
func AppendVersion(dst []byte) []byte {
	dst = append(dst, CmdVersion...)
	return append(dst, CRLF...)
}

func appendNoReply(dst []byte, noreply bool) []byte {
	if !noreply {
		return dst
	}
	dst = append(dst, ' ')
	return append(dst, NoReply...)
}
