package logging

import (
	"log/slog"
	"os"
	"strings"
)

// Init configures the global slog logger.
// In production (ENVIRONMENT=production) it uses JSON output for log aggregation.
// Otherwise it uses the human-readable text handler.
func Init() {
	env := strings.ToLower(os.Getenv("ENVIRONMENT"))

	var handler slog.Handler
	if env == "production" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})
	}

	slog.SetDefault(slog.New(handler))
}

// WithRequest returns a logger with export-request context fields
// attached. Use this for all logging within one export request.
func WithRequest(requestID, serialization string, recordCount int) *slog.Logger {
	return slog.With(
		"request_id", requestID,
		"serialization", serialization,
		"record_count", recordCount,
	)
}

// WithRecord returns a logger scoped to one record within a request.
func WithRecord(logger *slog.Logger, recordIndex int, controlNumber string) *slog.Logger {
	return logger.With(
		"record_index", recordIndex,
		"control_number", controlNumber,
	)
}
