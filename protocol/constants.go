package protocol

// Command is a text protocol command verb.
type Command string

// Commands of the classic text protocol.
const (
	// Retrieval: get <key>*\r\n
	CmdGet  Command = "get"
	CmdGets Command = "gets"

	// Storage: <cmd> <key> <flags> <exptime> <bytes> [noreply]\r\n<data>\r\n
	CmdSet     Command = "set"
	CmdAdd     Command = "add"
	CmdReplace Command = "replace"
	CmdAppend  Command = "append"
	CmdPrepend Command = "prepend"

	// Compare and swap: cas <key> <flags> <exptime> <bytes> <cas unique> [noreply]\r\n<data>\r\n
	CmdCas Command = "cas"

	// Arithmetic: incr|decr <key> <delta> [noreply]\r\n
	CmdIncr Command = "incr"
	CmdDecr Command = "decr"

	CmdDelete   Command = "delete"
	CmdTouch    Command = "touch"
	CmdFlushAll Command = "flush_all"
	CmdStats    Command = "stats"
	CmdVersion  Command = "version"
)

// IsStorage reports whether cmd carries a data block.
func (cmd Command) IsStorage() bool {
	switch cmd {
	case CmdSet, CmdAdd, CmdReplace, CmdAppend, CmdPrepend, CmdCas:
		return true
	}
	return false
}

// Reply is a single-token reply line.
type Reply string

// Reply tokens. Spelling is part of the wire contract.
const (
	ReplyStored    Reply = "STORED"
	ReplyNotStored Reply = "NOT_STORED"
	ReplyExists    Reply = "EXISTS"
	ReplyNotFound  Reply = "NOT_FOUND"
	ReplyDeleted   Reply = "DELETED"
	ReplyTouched   Reply = "TOUCHED"
	ReplyEnd       Reply = "END"
	ReplyOK        Reply = "OK"
)

// Line prefixes.
const (
	ValuePrefix   = "VALUE"
	StatPrefix    = "STAT"
	VersionPrefix = "VERSION"

	ErrorGeneric      = "ERROR"
	ErrorClientPrefix = "CLIENT_ERROR"
	ErrorServerPrefix = "SERVER_ERROR"
)

// Protocol delimiters and tokens
const (
	// CRLF terminates every line and data block
	CRLF = "\r\n"

	Space = " "

	NoReply = "noreply"
)

// Limits
const (
	MinKeyLength = 1
	MaxKeyLength = 250

	// MaxDataBlockSize bounds the size announced by a VALUE line. It matches
	// the largest item size memcached can be configured with.
	MaxDataBlockSize = 1 << 30
)
