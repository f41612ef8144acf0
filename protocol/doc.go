// Package protocol implements the wire format of the classic memcached text
// protocol: request builders and reply parsers.
//
// It does not own connections. Builders append to a caller-provided byte
// slice; parsers work on single lines, and ReadValues/ReadStats drive a
// LineReader for multi-line replies.
//
// # Requests
//
//	buf = protocol.AppendStore(buf[:0], protocol.CmdSet, "k", 0, 0, []byte("v"), 0, false)
//	// "set k 0 0 1\r\nv\r\n"
//
//	buf = protocol.AppendRetrieval(buf[:0], protocol.CmdGets, "a", "b")
//	// "gets a b\r\n"
//
// # Replies
//
//	stored, err := protocol.ParseStoreReply(line)
//	err = protocol.ReadValues(conn, func(v protocol.Value) { ... })
//
// # Error Handling
//
//   - ClientError: CLIENT_ERROR reply, CLOSE connection
//   - ServerError: SERVER_ERROR reply, connection can be REUSED
//   - GenericError: ERROR reply, CLOSE connection
//   - ParseError: unexpected or malformed reply, CLOSE connection
//   - InvalidKeyError: rejected before sending
//
// ShouldCloseConnection classifies any error returned by this package.
package protocol
