/*
Package events provides a lightweight pub/sub broker for agent events.

The scheduler, port registry and supervisor publish events here; the
launch journal and any console/status surface subscribe. Delivery is
best-effort: slow subscribers are skipped rather than allowed to block
the agent's control loops.

	broker := events.NewBroker()
	broker.Start()
	defer broker.Stop()

	sub := broker.Subscribe()
	broker.Publish(events.New(events.EventLaunchQueued, "lobby-1 queued", nil))
	ev := <-sub
*/
package events
