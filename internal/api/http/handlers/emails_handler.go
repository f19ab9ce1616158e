package handlers

import (
	"context"
	"fmt"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/mail-service/internal/api/dto"
	"github.com/spec-kit/mail-service/internal/auth"
	"github.com/spec-kit/mail-service/internal/domain"
	"github.com/spec-kit/mail-service/internal/service"
	apperrors "github.com/spec-kit/mail-service/pkg/util/errorutil"
)

// EmailsHandler manages mailbox endpoints. The acting user always comes from
// the session.
type EmailsHandler struct {
	messages *service.MessageService
}

// NewEmailsHandler constructs handler.
func NewEmailsHandler(messages *service.MessageService) *EmailsHandler {
	return &EmailsHandler{messages: messages}
}

type folderLister func(ctx context.Context, userID int64) ([]domain.Message, error)

// listFolder responds with the session user's folder under key, e.g.
// {"sent_emails": [...]}.
func (h *EmailsHandler) listFolder(list folderLister, key string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sess, err := auth.RequireSession(c)
		if err != nil {
			return err
		}
		msgs, err := list(c.UserContext(), sess.UserID)
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{key: dto.NewEmailResponses(msgs)})
	}
}

// Inbox handles GET /emails/.
func (h *EmailsHandler) Inbox() fiber.Handler {
	return h.listFolder(h.messages.ListInbox, "emails")
}

// Sent handles GET /emails/sent.
func (h *EmailsHandler) Sent() fiber.Handler {
	return h.listFolder(h.messages.ListSent, "sent_emails")
}

// Read handles GET /emails/read.
func (h *EmailsHandler) Read() fiber.Handler {
	return h.listFolder(h.messages.ListRead, "read_emails")
}

// Received handles GET /emails/received.
func (h *EmailsHandler) Received() fiber.Handler {
	return h.listFolder(h.messages.ListReceived, "received_emails")
}

// Spam handles GET /emails/spam.
func (h *EmailsHandler) Spam() fiber.Handler {
	return h.listFolder(h.messages.ListSpam, "spam_emails")
}

// Archived handles GET /emails/archived.
func (h *EmailsHandler) Archived() fiber.Handler {
	return h.listFolder(h.messages.ListArchived, "archived_emails")
}

// GetEmail GET /emails/:id.
func (h *EmailsHandler) GetEmail(c *fiber.Ctx) error {
	sess, err := auth.RequireSession(c)
	if err != nil {
		return err
	}
	id, err := messageID(c)
	if err != nil {
		return err
	}
	msg, err := h.messages.Get(c.UserContext(), sess.UserID, id)
	if err != nil {
		return err
	}
	return c.JSON(dto.NewEmailResponse(msg))
}

// SendEmail POST /send_email.
func (h *EmailsHandler) SendEmail(c *fiber.Ctx) error {
	sess, err := auth.RequireSession(c)
	if err != nil {
		return err
	}
	var req dto.SendEmailRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	msg, err := h.messages.Send(c.UserContext(), sess.UserID, service.SendInput{
		RecipientID: int64(req.RecipientID),
		Subject:     req.Subject,
		Body:        req.Body,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"message": "Email sent successfully",
		"email":   dto.NewEmailResponse(msg),
	})
}

// ApplyAction POST /email/:id/action.
func (h *EmailsHandler) ApplyAction(c *fiber.Ctx) error {
	sess, err := auth.RequireSession(c)
	if err != nil {
		return err
	}
	id, err := messageID(c)
	if err != nil {
		return err
	}
	var req dto.EmailActionRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	action := domain.MessageAction(req.Action)
	if err := h.messages.ApplyAction(c.UserContext(), sess.UserID, id, action); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": fmt.Sprintf("Email %s successfully", action.PastTense())})
}

func messageID(c *fiber.Ctx) (int64, error) {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return 0, apperrors.NewNotFound("Email", nil)
	}
	return int64(id), nil
}
