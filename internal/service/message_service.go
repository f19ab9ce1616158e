package service

import (
	"context"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/spec-kit/mail-service/internal/classifier"
	"github.com/spec-kit/mail-service/internal/domain"
	"github.com/spec-kit/mail-service/internal/events"
	"github.com/spec-kit/mail-service/internal/repository"
	apperrors "github.com/spec-kit/mail-service/pkg/util/errorutil"
)

// SendInput carries a new message. The sender always comes from the session.
type SendInput struct {
	RecipientID int64
	Subject     string
	Body        string
}

// MessageService implements sending, folder listings and per-message actions.
type MessageService struct {
	store      repository.Store
	classifier classifier.Classifier
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// MessageDependencies encapsulates requirements for the message service.
type MessageDependencies struct {
	Store      repository.Store
	Classifier classifier.Classifier
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
}

// NewMessageService builds the service. A nil classifier labels everything ham.
func NewMessageService(deps MessageDependencies) *MessageService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	c := deps.Classifier
	if c == nil {
		c = classifier.Disabled{}
	}
	return &MessageService{
		store:      deps.Store,
		classifier: c,
		dispatcher: deps.Dispatcher,
		logger:     logger,
	}
}

// Send classifies and stores a message from senderID.
func (s *MessageService) Send(ctx context.Context, senderID int64, in SendInput) (*domain.Message, error) {
	if in.Subject == "" || in.Body == "" || in.RecipientID == 0 {
		return nil, apperrors.NewValidationError(msgMissingFields, nil)
	}
	if err := tooLong("subject", in.Subject, maxSubjectLen); err != nil {
		return nil, err
	}
	if _, err := s.store.Users().GetByID(ctx, in.RecipientID); err != nil {
		if isNotFound(err) {
			return nil, invalidRecipient()
		}
		return nil, storeError(err)
	}

	msg := &domain.Message{
		SenderID:    senderID,
		RecipientID: in.RecipientID,
		Subject:     in.Subject,
		Body:        in.Body,
		IsSpam:      s.isSpam(ctx, in.Body, in.Subject),
	}
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		return tx.Messages().Create(ctx, msg)
	})
	if err != nil {
		if isNotFound(err) {
			return nil, invalidRecipient()
		}
		return nil, storeError(err)
	}

	s.publish(ctx, events.NewEvent(events.EventMessageSent, senderID, events.MessageSentPayload{
		MessageID:   msg.ID,
		SenderID:    msg.SenderID,
		RecipientID: msg.RecipientID,
		IsSpam:      msg.IsSpam,
	}))
	return msg, nil
}

func invalidRecipient() error {
	return apperrors.NewDomainError(apperrors.CodeNotFound, "Invalid recipient", http.StatusNotFound, nil)
}

// isSpam flags the message when either the body or the subject classifies as
// spam. Classifier failures never block delivery.
func (s *MessageService) isSpam(ctx context.Context, body, subject string) bool {
	spam, err := s.classify(ctx, body)
	if err == nil && !spam {
		spam, err = s.classify(ctx, subject)
	}
	if err != nil {
		s.logger.Warn("spam detection failed, delivering as ham", zap.Error(err))
		return false
	}
	return spam
}

func (s *MessageService) classify(ctx context.Context, text string) (spam bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			spam, err = false, fmt.Errorf("classifier panic: %v", r)
		}
	}()
	return s.classifier.Classify(ctx, text)
}

// List returns the folder of userID, newest first.
func (s *MessageService) List(ctx context.Context, userID int64, folder domain.Folder) ([]domain.Message, error) {
	filter, ok := domain.FilterFor(folder, userID)
	if !ok {
		return nil, apperrors.NewValidationError("Invalid folder", map[string]any{"folder": string(folder)})
	}
	msgs, err := s.store.Messages().List(ctx, filter)
	if err != nil {
		return nil, storeError(err)
	}
	return msgs, nil
}

// ListInbox returns non-archived, non-spam messages addressed to userID.
func (s *MessageService) ListInbox(ctx context.Context, userID int64) ([]domain.Message, error) {
	return s.List(ctx, userID, domain.FolderInbox)
}

// ListSent returns non-archived messages userID sent.
func (s *MessageService) ListSent(ctx context.Context, userID int64) ([]domain.Message, error) {
	return s.List(ctx, userID, domain.FolderSent)
}

// ListRead returns read, non-spam messages addressed to userID.
func (s *MessageService) ListRead(ctx context.Context, userID int64) ([]domain.Message, error) {
	return s.List(ctx, userID, domain.FolderRead)
}

// ListReceived matches ListInbox.
func (s *MessageService) ListReceived(ctx context.Context, userID int64) ([]domain.Message, error) {
	return s.List(ctx, userID, domain.FolderReceived)
}

// ListSpam returns spam addressed to userID.
func (s *MessageService) ListSpam(ctx context.Context, userID int64) ([]domain.Message, error) {
	return s.List(ctx, userID, domain.FolderSpam)
}

// ListArchived returns messages addressed to userID that are archived.
func (s *MessageService) ListArchived(ctx context.Context, userID int64) ([]domain.Message, error) {
	return s.List(ctx, userID, domain.FolderArchived)
}

// Get returns a message its sender or recipient may see.
func (s *MessageService) Get(ctx context.Context, userID, id int64) (*domain.Message, error) {
	msg, err := s.store.Messages().GetByID(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, apperrors.NewNotFound("Email", nil)
		}
		return nil, storeError(err)
	}
	if !msg.InvolvesUser(userID) {
		return nil, apperrors.NewForbidden("Unauthorized access")
	}
	return msg, nil
}

// ApplyAction mutates or deletes message id on behalf of userID. Archive,
// unarchive and delete belong to the recipient; read and unread to either party.
func (s *MessageService) ApplyAction(ctx context.Context, userID, id int64, action domain.MessageAction) error {
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		msg, err := tx.Messages().GetByIDForUpdate(ctx, id)
		if err != nil {
			if isNotFound(err) {
				return apperrors.NewNotFound("Email", nil)
			}
			return err
		}
		if !action.Valid() {
			return apperrors.NewValidationError("Invalid action", map[string]any{"action": string(action)})
		}
		if action.RecipientOnly() && msg.RecipientID != userID {
			return apperrors.NewForbidden("Unauthorized action")
		}
		if !msg.InvolvesUser(userID) {
			return apperrors.NewForbidden("Unauthorized access")
		}

		switch action {
		case domain.ActionArchive:
			msg.IsArchived = true
		case domain.ActionUnarchive:
			msg.IsArchived = false
		case domain.ActionRead:
			msg.IsRead = true
		case domain.ActionUnread:
			msg.IsRead = false
		case domain.ActionDelete:
			return tx.Messages().Delete(ctx, id)
		}
		return tx.Messages().UpdateFlags(ctx, msg)
	})
	if err != nil {
		return storeError(err)
	}

	s.publish(ctx, events.NewEvent(events.EventMessageActionApplied, userID, events.MessageActionAppliedPayload{
		MessageID: id,
		Action:    action,
	}))
	return nil
}

func (s *MessageService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("publish event", zap.String("event_type", string(event.Type)), zap.Error(err))
	}
}
