/*
Package supervisor runs the actual game-server OS processes.

ServerProcess is the launch.Process implementation the scheduler
admits: Start allocates a port from the port registry, injects it into
the child's environment, spawns the configured command and watches it
until exit. A launch that cannot obtain a port fails the same way as
any other start failure: the process marks itself closed, the failure
is journaled, and the scheduler reclaims the slot on its next sweep.

InstanceRegistry is the node-wide directory of known launches, used by
the scheduler's register/unregister bracketing and by cancellation
lookups.
*/
package supervisor
