package memcache

import (
	"fmt"
	"net"
	"path/filepath"
	"strconv"
	"strings"
)

const DefaultPort = "11211"

// Server is one entry of the server list given to NewClient.
type Server struct {
	// Addr is "host:port", "[v6]:port", "unix:/path/to.sock" or an absolute
	// socket path. A bare host gets DefaultPort.
	Addr string

	// Weight is the share of the key space routed to this server.
	// Zero means 1.
	Weight int
}

// ParseServers parses addresses with an optional ":weight" suffix on TCP
// addresses:
//
//	ParseServers("a:11211", "b:11211:3", "unix:/tmp/memcached.sock")
func ParseServers(entries ...string) ([]Server, error) {
	servers := make([]Server, 0, len(entries))
	for _, entry := range entries {
		s, err := parseServer(strings.TrimSpace(entry))
		if err != nil {
			return nil, err
		}
		servers = append(servers, s)
	}
	return servers, nil
}

func parseServer(entry string) (Server, error) {
	if entry == "" {
		return Server{}, fmt.Errorf("memcache: empty server address")
	}

	if isUnixAddr(entry) {
		return Server{Addr: entry, Weight: 1}, nil
	}

	if _, _, err := net.SplitHostPort(entry); err == nil {
		return Server{Addr: entry, Weight: 1}, nil
	}

	if i := strings.LastIndexByte(entry, ':'); i > 0 {
		addr, weightText := entry[:i], entry[i+1:]
		if weight, err := strconv.Atoi(weightText); err == nil {
			if _, port, err := net.SplitHostPort(addr); err == nil && port != "" {
				if weight < 1 {
					return Server{}, fmt.Errorf("memcache: invalid weight in %q", entry)
				}
				return Server{Addr: addr, Weight: weight}, nil
			}
		}
	}

	if !strings.Contains(entry, ":") {
		return Server{Addr: net.JoinHostPort(entry, DefaultPort), Weight: 1}, nil
	}

	return Server{}, fmt.Errorf("memcache: invalid server address %q", entry)
}

func isUnixAddr(addr string) bool {
	return strings.HasPrefix(addr, "unix:") || filepath.IsAbs(addr)
}

// resolveAddr splits an address into the network and address arguments of
// Dialer.DialContext.
func resolveAddr(addr string) (network, address string, err error) {
	switch {
	case strings.HasPrefix(addr, "unix:"):
		path := strings.TrimPrefix(addr, "unix:")
		if path == "" {
			return "", "", fmt.Errorf("memcache: empty unix socket path")
		}
		return "unix", path, nil
	case filepath.IsAbs(addr):
		return "unix", addr, nil
	}

	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		if strings.Contains(addr, ":") {
			return "", "", fmt.Errorf("memcache: invalid server address %q: %w", addr, err)
		}
		host, port = addr, DefaultPort
	}
	if port == "" {
		port = DefaultPort
	}
	return "tcp", net.JoinHostPort(host, port), nil
}
