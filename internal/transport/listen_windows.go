//go:build windows

package transport

import (
	"net"
	"strings"

	"github.com/Microsoft/go-winio"
)

// An addr of "pipe:\\.\pipe\name" opens a Windows named pipe instead of a
// TCP or UNIX socket, grounded on the teacher's AgentListen (socket_windows.go).
func init() {
	listenOverride = func(addr string) (net.Listener, bool, error) {
		if !strings.HasPrefix(addr, "pipe:") {
			return nil, false, nil
		}
		pipeName := strings.TrimPrefix(addr, "pipe:")
		listener, err := winio.ListenPipe(pipeName, nil)
		return listener, true, err
	}
}
