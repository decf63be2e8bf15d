package testutil

import "log/slog"

// DiscardLogger returns a logger that drops all output. Use it in tests
// where log noise is not wanted.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
