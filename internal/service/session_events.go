package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/jionu102/codeit-image-post-auth/internal/events"
)

// SessionEventLogger writes an audit line for every credential lifecycle
// event.
type SessionEventLogger struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// NewSessionEventLogger creates the listener.
func NewSessionEventLogger(dispatcher events.Dispatcher, logger *zap.Logger) *SessionEventLogger {
	return &SessionEventLogger{dispatcher: dispatcher, logger: logger}
}

// RegisterHandlers subscribes to events.
func (l *SessionEventLogger) RegisterHandlers() {
	if l.dispatcher == nil {
		return
	}
	l.dispatcher.Subscribe(events.EventSessionCreated, l.handleSessionCreated)
	l.dispatcher.Subscribe(events.EventSessionDestroyed, l.handleSessionDestroyed)
	l.dispatcher.Subscribe(events.EventSessionEvicted, l.handleSessionEvicted)
	l.dispatcher.Subscribe(events.EventTokenIssued, l.handleTokenIssued)
	l.dispatcher.Subscribe(events.EventTokenRevoked, l.handleTokenRevoked)
}

func (l *SessionEventLogger) handleSessionCreated(_ context.Context, event events.Event) error {
	l.logger.Info("SessionCreated", actorFields(event, zap.Any("payload", event.Payload))...)
	return nil
}

func (l *SessionEventLogger) handleSessionDestroyed(_ context.Context, event events.Event) error {
	l.logger.Info("SessionDestroyed", actorFields(event, zap.Any("payload", event.Payload))...)
	return nil
}

func (l *SessionEventLogger) handleSessionEvicted(_ context.Context, event events.Event) error {
	l.logger.Warn("SessionEvicted", actorFields(event, zap.Any("payload", event.Payload))...)
	return nil
}

func (l *SessionEventLogger) handleTokenIssued(_ context.Context, event events.Event) error {
	l.logger.Debug("TokenIssued", actorFields(event)...)
	return nil
}

func (l *SessionEventLogger) handleTokenRevoked(_ context.Context, event events.Event) error {
	l.logger.Info("TokenRevoked", actorFields(event, zap.Any("payload", event.Payload))...)
	return nil
}

func actorFields(event events.Event, extra ...zap.Field) []zap.Field {
	fields := []zap.Field{
		zap.String("event_id", event.ID),
		zap.String("principal_id", event.Actor.PrincipalID),
		zap.String("username", event.Actor.Username),
		zap.String("role", string(event.Actor.Role)),
	}
	return append(fields, extra...)
}
