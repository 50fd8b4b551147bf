package ports

import (
	"fmt"
	"net"
	"time"
)

// dialBindProbe is the production occupancy probe. A port counts as
// occupied if someone accepts a connection on it, or if we cannot bind
// a listener on it ourselves. Sockets opened by the probe are always
// closed before it returns.
func dialBindProbe(port int, timeout time.Duration) bool {
	conn, err := net.DialTimeout("tcp", fmt.Sprintf("127.0.0.1:%d", port), timeout)
	if err == nil {
		conn.Close()
		return true
	}

	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return true
	}
	ln.Close()
	return false
}

// bindAndRelease binds a listener with address reuse enabled and drops
// it immediately, nudging the OS into relinquishing a port that was
// held by a recently killed process. Returns true if the bind worked.
func bindAndRelease(port int) bool {
	ln, err := reuseListen(port)
	if err != nil {
		return false
	}
	ln.Close()
	return true
}

// flushConnection makes one short-lived connection attempt to the port
// to hasten teardown of half-open state on the remote side.
func flushConnection(port int) {
	conn, err := net.DialTimeout("tcp", fmt.Sprintf("127.0.0.1:%d", port), 100*time.Millisecond)
	if err != nil {
		return
	}
	conn.Close()
}
