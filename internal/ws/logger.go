package ws

import (
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Logger provides structured logging for realtime channel events
type Logger struct {
	logger *zap.Logger
}

// NewLogger creates a realtime channel logger
func NewLogger() *Logger {
	return &Logger{
		logger: zap.L().With(zap.String("component", "realtime")),
	}
}

// Info logs info level event
func (l *Logger) Info(event string, userID uuid.UUID, connID string, fields ...zap.Field) {
	allFields := append([]zap.Field{
		zap.String("event", event),
		zap.String("user_id", userID.String()),
		zap.String("conn_id", connID),
	}, fields...)
	l.logger.Info("realtime_event", allFields...)
}

// Error logs error level event
func (l *Logger) Error(event string, userID uuid.UUID, connID string, err error, fields ...zap.Field) {
	allFields := append([]zap.Field{
		zap.String("event", event),
		zap.String("user_id", userID.String()),
		zap.String("conn_id", connID),
		zap.Error(err),
	}, fields...)
	l.logger.Error("realtime_error", allFields...)
}

// Warn logs warning level event
func (l *Logger) Warn(event string, userID uuid.UUID, connID string, fields ...zap.Field) {
	allFields := append([]zap.Field{
		zap.String("event", event),
		zap.String("user_id", userID.String()),
		zap.String("conn_id", connID),
	}, fields...)
	l.logger.Warn("realtime_warning", allFields...)
}
