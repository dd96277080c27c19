package conveyor

import "log/slog"

var logger = slog.Default()

// SetLogger replaces the package logger. Call before Run.
func SetLogger(l *slog.Logger) {
	logger = l
}
