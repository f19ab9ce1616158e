package dto

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/spec-kit/mail-service/internal/domain"
)

// ID decodes from a JSON number or a numeric string, as form widgets post
// select values as strings. Empty strings and null decode to zero.
type ID int64

func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = 0
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if s == "" {
			*id = 0
			return nil
		}
		data = []byte(s)
	}
	n, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return fmt.Errorf("invalid id %q", string(data))
	}
	*id = ID(n)
	return nil
}

// SendEmailRequest payload.
type SendEmailRequest struct {
	RecipientID ID     `json:"recipient_id"`
	Subject     string `json:"subject"`
	Body        string `json:"body"`
}

// EmailActionRequest payload.
type EmailActionRequest struct {
	Action string `json:"action"`
}

// EmailResponse is the public projection of a message.
type EmailResponse struct {
	ID          int64  `json:"id"`
	SenderID    int64  `json:"sender_id"`
	RecipientID int64  `json:"recipient_id"`
	Subject     string `json:"subject"`
	Body        string `json:"body"`
	IsSpam      bool   `json:"is_spam"`
	IsRead      bool   `json:"is_read"`
	IsArchived  bool   `json:"is_archived"`
	CreatedAt   string `json:"created_at"`
}

// NewEmailResponse projects a message.
func NewEmailResponse(msg *domain.Message) EmailResponse {
	return EmailResponse{
		ID:          msg.ID,
		SenderID:    msg.SenderID,
		RecipientID: msg.RecipientID,
		Subject:     msg.Subject,
		Body:        msg.Body,
		IsSpam:      msg.IsSpam,
		IsRead:      msg.IsRead,
		IsArchived:  msg.IsArchived,
		CreatedAt:   formatTimestamp(msg.CreatedAt),
	}
}

// NewEmailResponses projects a folder listing.
func NewEmailResponses(msgs []domain.Message) []EmailResponse {
	items := make([]EmailResponse, 0, len(msgs))
	for i := range msgs {
		items = append(items, NewEmailResponse(&msgs[i]))
	}
	return items
}

func formatTimestamp(t time.Time) string {
	return t.Local().Format(domain.TimestampLayout)
}
