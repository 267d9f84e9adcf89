// Package logger provides the structured logging interface used across the
// crawler. It wraps zerolog and writes human-readable output to stderr so
// that reports printed on stdout stay clean.
//
//	logger.Initialize(&cfg.Logging)
//	log := logger.GetLogger().WithField("tier", "web")
//	log.InfoWithFields("page fetched", map[string]interface{}{"page": 3, "new": 20})
package logger
