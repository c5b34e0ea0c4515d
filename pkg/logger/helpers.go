package logger

import "time"

// LogRequest logs a finished HTTP attempt at a level matching its status
func LogRequest(l Logger, method, url string, statusCode, attempt int, duration time.Duration) {
	fields := map[string]interface{}{
		"method":   method,
		"url":      url,
		"status":   statusCode,
		"attempt":  attempt,
		"duration": duration,
	}

	switch {
	case statusCode >= 500:
		l.WarnWithFields("HTTP request server error", fields)
	case statusCode >= 400:
		l.WarnWithFields("HTTP request client error", fields)
	default:
		l.DebugWithFields("HTTP request completed", fields)
	}
}

// LogDownload logs the result of a single download
func LogDownload(l Logger, path string, written int64, existed bool, err error) {
	fields := map[string]interface{}{
		"path":  path,
		"bytes": written,
	}

	switch {
	case err != nil:
		l.WithError(err).WarnWithFields("download failed", fields)
	case existed:
		l.DebugWithFields("already downloaded", fields)
	default:
		l.InfoWithFields("download completed", fields)
	}
}

// NewNopLogger creates a no-operation logger
func NewNopLogger() Logger {
	return nopLogger{}
}

type nopLogger struct{}

func (nopLogger) Debug(string)                                 {}
func (nopLogger) Info(string)                                  {}
func (nopLogger) Warn(string)                                  {}
func (nopLogger) Error(string)                                 {}
func (n nopLogger) WithField(string, interface{}) Logger       { return n }
func (n nopLogger) WithFields(map[string]interface{}) Logger   { return n }
func (n nopLogger) WithError(error) Logger                     { return n }
func (nopLogger) DebugWithFields(string, map[string]interface{}) {}
func (nopLogger) InfoWithFields(string, map[string]interface{})  {}
func (nopLogger) WarnWithFields(string, map[string]interface{})  {}
func (nopLogger) ErrorWithFields(string, map[string]interface{}) {}
