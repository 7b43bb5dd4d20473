package websocket

import (
	"sentinal-social/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// connLogger provides structured logging for websocket connection events
type connLogger struct {
	logger *zap.Logger
}

func newConnLogger(l *logger.Logger) *connLogger {
	base := zap.NewNop()
	if l != nil && l.Logger != nil {
		base = l.Logger
	}
	return &connLogger{logger: base.With(zap.String("component", "websocket"))}
}

func (l *connLogger) Info(event string, userID uuid.UUID, clientID string, fields ...zap.Field) {
	all := append([]zap.Field{
		zap.String("event", event),
		zap.String("user_id", userID.String()),
		zap.String("client_id", clientID),
	}, fields...)
	l.logger.Info("websocket_event", all...)
}

func (l *connLogger) Warn(event string, userID uuid.UUID, clientID string, err error, fields ...zap.Field) {
	all := append([]zap.Field{
		zap.String("event", event),
		zap.String("user_id", userID.String()),
		zap.String("client_id", clientID),
		zap.Error(err),
	}, fields...)
	l.logger.Warn("websocket_error", all...)
}
