//go:build windows

package ports

import (
	"fmt"
	"net"
	"strconv"
	"strings"

	"os/exec"

	"github.com/playgrid/warden/pkg/log"
)

// netstatReclaimer resolves the owner of a TCP port by parsing
// netstat -ano output and terminates it with taskkill.
type netstatReclaimer struct{}

// NewOSReclaimer returns the platform reclaimer.
func NewOSReclaimer() Reclaimer {
	return &netstatReclaimer{}
}

func (n *netstatReclaimer) KillOwner(port int) error {
	out, err := exec.Command("netstat", "-ano", "-p", "tcp").Output()
	if err != nil {
		return fmt.Errorf("netstat lookup for port %d: %w", port, err)
	}

	logger := log.WithComponent("ports")
	suffix := fmt.Sprintf(":%d", port)
	killed := 0
	for _, line := range strings.Split(string(out), "\n") {
		fields := strings.Fields(line)
		// Proto Local Foreign State PID
		if len(fields) < 5 || !strings.HasSuffix(fields[1], suffix) {
			continue
		}
		pid, err := strconv.Atoi(fields[4])
		if err != nil || pid <= 4 {
			continue
		}
		if out, err := exec.Command("taskkill", "/F", "/PID", strconv.Itoa(pid)).CombinedOutput(); err != nil {
			logger.Warn().Err(err).Int("pid", pid).Int("port", port).Str("output", string(out)).Msg("failed to kill port owner")
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

// reuseListen binds a TCP listener on the port. Windows sockets allow
// rebinding a freshly closed port without SO_REUSEADDR, so a plain
// listen suffices here.
func reuseListen(port int) (net.Listener, error) {
	return net.Listen("tcp", fmt.Sprintf(":%d", port))
}
