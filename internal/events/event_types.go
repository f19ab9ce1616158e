package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/mail-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventUserRegistered       EventType = "user_registered"
	EventPasswordChanged      EventType = "password_changed"
	EventMessageSent          EventType = "message_sent"
	EventMessageActionApplied EventType = "message_action_applied"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	ActorID   int64       `json:"actor_id"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// NewEvent stamps an event with a fresh id and the current time.
func NewEvent(eventType EventType, actorID int64, payload interface{}) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		ActorID:   actorID,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}

// UserRegisteredPayload payload.
type UserRegisteredPayload struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
}

// PasswordChangedPayload payload.
type PasswordChangedPayload struct {
	UserID int64 `json:"user_id"`
}

// MessageSentPayload payload. Subject and body are left out of the audit trail.
type MessageSentPayload struct {
	MessageID   int64 `json:"message_id"`
	SenderID    int64 `json:"sender_id"`
	RecipientID int64 `json:"recipient_id"`
	IsSpam      bool  `json:"is_spam"`
}

// MessageActionAppliedPayload payload.
type MessageActionAppliedPayload struct {
	MessageID int64                `json:"message_id"`
	Action    domain.MessageAction `json:"action"`
}
