// Package logger wraps zerolog behind a small structured-logging interface.
//
// Components receive a Logger explicitly and fall back to the global one
// from GetLogger when given nil. Console output goes to stderr; setting
// logging.file additionally appends JSON lines to that file.
//
//	logger.Initialize(&cfg.Logging)
//	log := logger.GetLogger().WithField("user_id", "42")
//	log.InfoWithFields("reel fetched", map[string]interface{}{"items": 3})
//
// TestLogger records every message for assertions in tests.
package logger
