/*
Package log provides structured logging for the Warden agent, built on
zerolog.

Call Init once at startup, then either use the package-level helpers for
one-off messages or derive a component-scoped child logger:

	log.Init(log.Config{Level: log.InfoLevel})
	logger := log.WithComponent("scheduler")
	logger.Info().Int("pending", n).Msg("tick complete")

Console output is the default; JSON output is meant for fleet-level log
collection.
*/
package log
