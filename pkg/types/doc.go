/*
Package types defines the core data structures shared across the Warden
node agent.

It contains the domain model used by every other package: server
specifications, process lifecycle phases, port classification states, and
the agent configuration struct. Keeping these in a leaf package avoids
import cycles between the scheduler, the port registry and the supervisor.

All enums are small closed sets of string constants so they render
directly in logs and the event journal.
*/
package types
