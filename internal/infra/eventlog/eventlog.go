// Package eventlog provides sync event sinks that need no storage of their own.
package eventlog

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"provider-sync-service/internal/domain"
)

// ZapLogger writes every sync event as a structured log line.
type ZapLogger struct {
	logger *zap.Logger
}

// NewZapLogger creates a sink writing to logger.
func NewZapLogger(logger *zap.Logger) *ZapLogger {
	return &ZapLogger{logger: logger.Named("sync_events")}
}

// Log implements domain.EventLogger. SyncError events are logged at warn level.
func (l *ZapLogger) Log(_ context.Context, event domain.SyncEvent) error {
	fields := []zap.Field{
		zap.String("provider", string(event.Provider)),
		zap.String("scope", event.Scope),
		zap.String("type", string(event.Type)),
		zap.Time("date", event.Date),
	}
	if event.Payload != "" {
		fields = append(fields, zap.String("payload", event.Payload))
	}

	if event.Type == domain.SyncError {
		l.logger.Warn("sync event", fields...)
	} else {
		l.logger.Info("sync event", fields...)
	}

	return nil
}

// Multi fans events out to several sinks. Every sink receives the event even
// when an earlier one fails; the failures are joined.
type Multi []domain.EventLogger

// NewMulti builds a fan-out over the non-nil sinks.
func NewMulti(sinks ...domain.EventLogger) Multi {
	m := make(Multi, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			m = append(m, s)
		}
	}

	return m
}

// Log implements domain.EventLogger.
func (m Multi) Log(ctx context.Context, event domain.SyncEvent) error {
	var errs []error
	for _, sink := range m {
		if err := sink.Log(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}
