package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/mail-service/internal/events"
	"github.com/spec-kit/mail-service/internal/observability"
)

// AuditService records domain events in the log and in metrics.
type AuditService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	metrics    *observability.Metrics
}

// NewAuditService creates the service.
func NewAuditService(dispatcher events.Dispatcher, logger *zap.Logger, metrics *observability.Metrics) *AuditService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuditService{
		dispatcher: dispatcher,
		logger:     logger,
		metrics:    metrics,
	}
}

// RegisterHandlers subscribes to events.
func (a *AuditService) RegisterHandlers() {
	if a.dispatcher == nil {
		return
	}
	a.dispatcher.Subscribe(events.EventUserRegistered, a.handleUserRegistered)
	a.dispatcher.Subscribe(events.EventPasswordChanged, a.handlePasswordChanged)
	a.dispatcher.Subscribe(events.EventMessageSent, a.handleMessageSent)
	a.dispatcher.Subscribe(events.EventMessageActionApplied, a.handleMessageActionApplied)
}

func (a *AuditService) handleUserRegistered(_ context.Context, event events.Event) error {
	a.logger.Info("UserRegistered", zap.Int64("actor_id", event.ActorID), zap.Any("payload", event.Payload))
	a.metrics.RecordEvent(string(event.Type))
	return nil
}

func (a *AuditService) handlePasswordChanged(_ context.Context, event events.Event) error {
	a.logger.Info("PasswordChanged", zap.Int64("actor_id", event.ActorID))
	a.metrics.RecordEvent(string(event.Type))
	return nil
}

func (a *AuditService) handleMessageSent(_ context.Context, event events.Event) error {
	payload, _ := event.Payload.(events.MessageSentPayload)
	a.logger.Info("MessageSent",
		zap.Int64("actor_id", event.ActorID),
		zap.Int64("message_id", payload.MessageID),
		zap.Int64("recipient_id", payload.RecipientID),
		zap.Bool("is_spam", payload.IsSpam))
	a.metrics.RecordEvent(string(event.Type))
	return nil
}

func (a *AuditService) handleMessageActionApplied(_ context.Context, event events.Event) error {
	a.logger.Info("MessageActionApplied", zap.Int64("actor_id", event.ActorID), zap.Any("payload", event.Payload))
	a.metrics.RecordEvent(string(event.Type))
	return nil
}
