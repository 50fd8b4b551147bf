/*
Package history journals agent events to a local BoltDB file.

The journal answers "what happened on this node" after the fact:
launch admissions and failures, port reservations and force
reclamations. It subscribes to the event broker and appends every
event with a monotonic sequence number. Writing is best-effort; the
agent never fails an operation because its journal did.
*/
package history
