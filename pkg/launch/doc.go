/*
Package launch implements admission control for game-server starts.

Starting a game server is expensive: template sync, JVM warmup, world
load. Letting every requested server start at once would bury the node,
so the Scheduler keeps pending launches in a priority queue and lets at
most a configured number be mid-start at any instant.

# The tick loop

The scheduler runs one background goroutine on a fixed interval
(default 200ms). Each tick it:

 1. Sweeps the active set, freeing the slot of every launch whose
    process has settled (visible, invisible or closed).
 2. Admits the highest-priority pending launch if a slot is free,
    starting it on its own goroutine.
 3. Fires one batched state-changed notification if anything moved.

Ties between equal priorities go to the earlier enqueue, by an explicit
sequence number rather than incidental heap ordering. A panic inside a
tick or inside an individual start is logged and never takes down the
loop.

# Collaborators

The scheduler owns only queue and active-set membership. Spawning the
process, phase transitions and port acquisition belong to the Process
implementation (see pkg/supervisor); bookkeeping of known processes
belongs to the Registry; the Notifier is a best-effort hook for status
surfaces.
*/
package launch
