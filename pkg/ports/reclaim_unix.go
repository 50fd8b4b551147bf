//go:build unix

package ports

import (
	"context"
	"fmt"
	"net"
	"os/exec"
	"strconv"
	"strings"
	"syscall"

	"golang.org/x/sys/unix"

	"github.com/playgrid/warden/pkg/log"
)

// lsofReclaimer resolves the owner of a TCP port via lsof and kills it.
type lsofReclaimer struct{}

// NewOSReclaimer returns the platform reclaimer.
func NewOSReclaimer() Reclaimer {
	return &lsofReclaimer{}
}

func (l *lsofReclaimer) KillOwner(port int) error {
	// lsof -t prints bare PIDs, one per line. It exits non-zero when
	// nothing is listening, which is the common case here.
	out, err := exec.Command("lsof", "-t", "-i", fmt.Sprintf("tcp:%d", port)).Output()
	if err != nil {
		return fmt.Errorf("lsof lookup for port %d: %w", port, err)
	}

	logger := log.WithComponent("ports")
	killed := 0
	for _, field := range strings.Fields(string(out)) {
		pid, err := strconv.Atoi(field)
		if err != nil || pid <= 1 {
			continue
		}
		if err := unix.Kill(pid, unix.SIGKILL); err != nil {
			logger.Warn().Err(err).Int("pid", pid).Int("port", port).Msg("failed to kill port owner")
			continue
		}
		logger.Info().Int("pid", pid).Int("port", port).Msg("killed process holding port")
		killed++
	}
	if killed == 0 {
		return fmt.Errorf("no killable process found on port %d", port)
	}
	return nil
}

// reuseListen binds a TCP listener with SO_REUSEADDR so a port in
// TIME_WAIT after a kill can still be claimed.
func reuseListen(port int) (net.Listener, error) {
	lc := net.ListenConfig{
		Control: func(network, address string, c syscall.RawConn) error {
			var sockErr error
			if err := c.Control(func(fd uintptr) {
				sockErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1)
			}); err != nil {
				return err
			}
			return sockErr
		},
	}
	return lc.Listen(context.Background(), "tcp", fmt.Sprintf(":%d", port))
}
