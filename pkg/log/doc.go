/*
Package log provides structured logging for murphyd using zerolog.

It wraps zerolog with a package-level global logger, JSON or console
output, and helpers for attaching the context fields this daemon's
components care about: zone, resource set id, and resolver target.

# Usage

	log.Init(log.Config{Level: log.InfoLevel, JSONOutput: true})
	log.Info("murphyd starting")

	zoneLog := log.WithZone("driver-seat")
	zoneLog.Info().Msg("arbitration run complete")

	setLog := log.WithSetID(set.ID)
	setLog.Debug().Msg("acquire requested")
*/
package log
