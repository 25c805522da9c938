// Package logging provides structured logging using uber/zap.
//
// Two modes are supported:
//   - Production: JSON output for machine parsing
//   - Development: colored console output
//
// Scoped loggers carry the fields the host uses for correlation:
//
//	log := logging.NewDefault()
//	log.ForLoader("directory").Info("scan complete", zap.Int("items", 3))
//	log.ForItem("team/api").Warn("skipped", zap.Error(err))
package logging
