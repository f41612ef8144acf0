package protocol

import (
	"testing"
)

func TestAppendRetrieval(t *testing.T) {
	tests := []struct {
		name     string
		cmd      Command
		keys     []string
		expected string
	}{
		{"get single key", CmdGet, []string{"test-int"}, "get test-int\r\n"},
		{"gets single key", CmdGets, []string{"test"}, "gets test\r\n"},
		{"get multiple keys", CmdGet, []string{"a", "b", "c"}, "get a b c\r\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := string(AppendRetrieval(nil, tt.cmd, tt.keys...))
			if got != tt.expected {
				t.Errorf("AppendRetrieval() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestAppendStore(t *testing.T) {
	tests := []struct {
		name     string
		cmd      Command
		key      string
		flags    uint32
		exptime  int64
		data     string
		casID    uint64
		noreply  bool
		expected string
	}{
		{
			name:     "set string",
			cmd:      CmdSet,
			key:      "test",
			data:     "test!",
			expected: "set test 0 0 5\r\ntest!\r\n",
		},
		{
			name:     "set integer",
			cmd:      CmdSet,
			key:      "test-int",
			flags:    2,
			data:     "1",
			expected: "set test-int 2 0 1\r\n1\r\n",
		},
		{
			name:     "set noreply",
			cmd:      CmdSet,
			key:      "test-int",
			flags:    2,
			data:     "1",
			noreply:  true,
			expected: "set test-int 2 0 1 noreply\r\n1\r\n",
		},
		{
			name:     "add with exptime",
			cmd:      CmdAdd,
			key:      "test",
			flags:    2,
			exptime:  60,
			data:     "1",
			expected: "add test 2 60 1\r\n1\r\n",
		},
		{
			name:     "prepend",
			cmd:      CmdPrepend,
			key:      "test",
			data:     "prefix",
			expected: "prepend test 0 0 6\r\nprefix\r\n",
		},
		{
			name:     "append noreply",
			cmd:      CmdAppend,
			key:      "test",
			data:     "postfix",
			noreply:  true,
			expected: "append test 0 0 7 noreply\r\npostfix\r\n",
		},
		{
			name:     "cas",
			cmd:      CmdCas,
			key:      "test",
			data:     "gfedcba",
			casID:    123,
			expected: "cas test 0 0 7 123\r\ngfedcba\r\n",
		},
		{
			name:     "cas noreply",
			cmd:      CmdCas,
			key:      "test",
			data:     "gfedcba",
			casID:    123,
			noreply:  true,
			expected: "cas test 0 0 7 123 noreply\r\ngfedcba\r\n",
		},
		{
			name:     "cas id ignored for set",
			cmd:      CmdSet,
			key:      "test",
			data:     "x",
			casID:    99,
			expected: "set test 0 0 1\r\nx\r\n",
		},
		{
			name:     "empty value",
			cmd:      CmdSet,
			key:      "test",
			expected: "set test 0 0 0\r\n\r\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := string(AppendStore(nil, tt.cmd, tt.key, tt.flags, tt.exptime, []byte(tt.data), tt.casID, tt.noreply))
			if got != tt.expected {
				t.Errorf("AppendStore() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestAppendArithmetic(t *testing.T) {
	tests := []struct {
		cmd      Command
		delta    uint64
		noreply  bool
		expected string
	}{
		{CmdIncr, 1, false, "incr test 1\r\n"},
		{CmdIncr, 1, true, "incr test 1 noreply\r\n"},
		{CmdDecr, 1, false, "decr test 1\r\n"},
		{CmdDecr, 42, true, "decr test 42 noreply\r\n"},
	}

	for _, tt := range tests {
		got := string(AppendArithmetic(nil, tt.cmd, "test", tt.delta, tt.noreply))
		if got != tt.expected {
			t.Errorf("AppendArithmetic() = %q, want %q", got, tt.expected)
		}
	}
}

func TestAppendDeleteAndTouch(t *testing.T) {
	tests := []struct {
		name     string
		got      []byte
		expected string
	}{
		{"delete", AppendDelete(nil, "test", false), "delete test\r\n"},
		{"delete noreply", AppendDelete(nil, "test", true), "delete test noreply\r\n"},
		{"touch without exptime", AppendTouch(nil, "test", 0, false), "touch test\r\n"},
		{"touch noreply", AppendTouch(nil, "test", 0, true), "touch test noreply\r\n"},
		{"touch with exptime", AppendTouch(nil, "test", 300, false), "touch test 300\r\n"},
		{"touch with exptime noreply", AppendTouch(nil, "test", 300, true), "touch test 300 noreply\r\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if string(tt.got) != tt.expected {
				t.Errorf("got %q, want %q", tt.got, tt.expected)
			}
		})
	}
}

func TestAppendServerCommands(t *testing.T) {
	if got := string(AppendFlushAll(nil, 0)); got != "flush_all\r\n" {
		t.Errorf("AppendFlushAll(0) = %q", got)
	}
	if got := string(AppendFlushAll(nil, 10)); got != "flush_all 10\r\n" {
		t.Errorf("AppendFlushAll(10) = %q", got)
	}
	if got := string(AppendStats(nil, "")); got != "stats\r\n" {
		t.Errorf("AppendStats() = %q", got)
	}
	if got := string(AppendStats(nil, "slabs")); got != "stats slabs\r\n" {
		t.Errorf("AppendStats(slabs) = %q", got)
	}
	if got := string(AppendVersion(nil)); got != "version\r\n" {
		t.Errorf("AppendVersion() = %q", got)
	}
}

func TestAppendReusesBuffer(t *testing.T) {
	buf := make([]byte, 0, 64)
	buf = AppendDelete(buf, "a", false)
	buf = AppendDelete(buf, "b", true)

	if got := string(buf); got != "delete a\r\ndelete b noreply\r\n" {
		t.Errorf("got %q", got)
	}
}

func TestCommandIsStorage(t *testing.T) {
	for _, cmd := range []Command{CmdSet, CmdAdd, CmdReplace, CmdAppend, CmdPrepend, CmdCas} {
		if !cmd.IsStorage() {
			t.Errorf("%s should be a storage command", cmd)
		}
	}
	for _, cmd := range []Command{CmdGet, CmdGets, CmdIncr, CmdDecr, CmdDelete, CmdTouch} {
		if cmd.IsStorage() {
			t.Errorf("%s should not be a storage command", cmd)
		}
	}
}
