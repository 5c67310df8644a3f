package audit

import (
	"context"
	"log"
	"time"
)

// LogLogger writes audit entries to a *log.Logger when no database is configured.
type LogLogger struct {
	logger *log.Logger
}

// NewLogLogger constructs a log-backed audit logger.
func NewLogLogger(logger *log.Logger) *LogLogger {
	if logger == nil {
		logger = log.Default()
	}
	return &LogLogger{logger: logger}
}

// Log writes the entry as a single line.
func (l *LogLogger) Log(ctx context.Context, entry Entry) error {
	_ = ctx
	entry = normalize(entry, time.Now())
	l.logger.Printf("audit: id=%s tenant=%s actor=%s role=%s action=%s resource=%s/%s ip=%s digest=%s metadata=%s",
		entry.ID, entry.TenantID, entry.Actor, entry.Role, entry.Action, entry.ResourceType, entry.ResourceID,
		entry.IP, entry.PayloadDigest, string(entry.Metadata))
	return nil
}
