// Package audit writes security events to a dedicated structured log stream.
package audit

import (
	"context"
	"log/slog"

	"github.com/you/feedauth/domain"
)

// SlogAuditLogger implements domain.AuditLogger on top of slog
type SlogAuditLogger struct {
	logger *slog.Logger
}

// NewSlogAuditLogger tags every record with component=audit
func NewSlogAuditLogger(logger *slog.Logger) *SlogAuditLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogAuditLogger{logger: logger.With("component", "audit")}
}

// LogEvent implements domain.AuditLogger. Failed events log at warn.
func (a *SlogAuditLogger) LogEvent(ctx context.Context, event *domain.AuditEvent) {
	if event == nil {
		return
	}

	attrs := []slog.Attr{
		slog.String("event_type", string(event.EventType)),
		slog.String("email", event.Email),
		slog.Time("timestamp", event.Timestamp),
		slog.Bool("success", event.Success),
	}
	if event.Device != nil {
		attrs = append(attrs, slog.Group("device",
			slog.String("browser", event.Device.Browser),
			slog.String("os", event.Device.OS),
			slog.String("class", string(event.Device.Class)),
			slog.String("ip", event.Device.IP),
		))
	}
	if event.ErrorMsg != "" {
		attrs = append(attrs, slog.String("error", event.ErrorMsg))
	}
	if len(event.Metadata) > 0 {
		meta := make([]any, 0, len(event.Metadata)*2)
		for k, v := range event.Metadata {
			meta = append(meta, k, v)
		}
		attrs = append(attrs, slog.Group("metadata", meta...))
	}

	level := slog.LevelInfo
	if !event.Success {
		level = slog.LevelWarn
	}
	a.logger.LogAttrs(ctx, level, "audit event", attrs...)
}

var _ domain.AuditLogger = (*SlogAuditLogger)(nil)
