// Package transport builds the net.Listener slimd serves connections on.
// Grounded on the teacher's common/socket package, generalized from a fixed
// krd.sock UNIX path to a caller-supplied address of any net.Listen-able
// network.
package transport

import (
	"fmt"
	"net"
	"os"
	"strings"
)

// listenOverride lets listen_windows.go contribute a "pipe:" scheme without
// this file importing go-winio on platforms that lack it.
var listenOverride func(addr string) (net.Listener, bool, error)

// Listen opens a listener for addr. A "unix:" or "unix!" prefix (and a bare
// path starting with "/" or "./") opens a UNIX domain socket, removing any
// stale socket file first exactly as the teacher's DaemonListen/AgentListenUnix
// do; anything else is passed to net.Listen("tcp", addr).
func Listen(addr string) (net.Listener, error) {
	if listenOverride != nil {
		if listener, handled, err := listenOverride(addr); handled {
			if err != nil {
				return nil, fmt.Errorf("transport: listen %s: %w", addr, err)
			}
			return listener, nil
		}
	}

	if path, ok := unixSocketPath(addr); ok {
		// Delete a stale socket in case a previous slimd was not shut down
		// cleanly.
		_ = os.Remove(path)
		listener, err := net.Listen("unix", path)
		if err != nil {
			return nil, fmt.Errorf("transport: listen unix %s: %w", path, err)
		}
		return listener, nil
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("transport: listen tcp %s: %w", addr, err)
	}
	return listener, nil
}

func unixSocketPath(addr string) (string, bool) {
	switch {
	case strings.HasPrefix(addr, "unix:"):
		return strings.TrimPrefix(addr, "unix:"), true
	case strings.HasPrefix(addr, "unix!"):
		return strings.TrimPrefix(addr, "unix!"), true
	case strings.HasPrefix(addr, "/"), strings.HasPrefix(addr, "./"):
		return addr, true
	default:
		return "", false
	}
}
