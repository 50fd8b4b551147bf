package ports

// Reclaimer terminates whatever OS process is bound to a port. The
// registry's reclamation logic is OS-independent; only the
// lookup-and-kill step differs per platform, so it sits behind this
// interface and tests substitute a stub.
type Reclaimer interface {
	// KillOwner resolves the process listening on the port and sends
	// it a kill signal. Returns an error if no process was found or
	// the kill failed; callers treat any error as "nothing killed".
	KillOwner(port int) error
}
