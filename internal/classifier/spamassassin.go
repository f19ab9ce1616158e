package classifier

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/emersion/go-message/mail"
	"github.com/teamwork/spamc"
)

// SpamAssassin classifies text through a spamd daemon.
type SpamAssassin struct {
	client *spamc.Client
	now    func() time.Time
}

// NewSpamAssassin connects to spamd at addr and pings it.
func NewSpamAssassin(ctx context.Context, addr string, timeout time.Duration) (*SpamAssassin, error) {
	client := spamc.New(addr, &net.Dialer{
		Timeout: timeout,
	})
	if err := client.Ping(ctx); err != nil {
		return nil, fmt.Errorf("could not ping SpamAssassin: %w", err)
	}
	return &SpamAssassin{client: client, now: time.Now}, nil
}

// Classify wraps text in a minimal RFC 5322 message and asks spamd whether
// it is spam.
func (sa *SpamAssassin) Classify(ctx context.Context, text string) (bool, error) {
	raw, err := wrapText(text, sa.now())
	if err != nil {
		return false, err
	}

	out, err := sa.client.Process(ctx, bytes.NewReader(raw), nil)
	if err != nil {
		return false, fmt.Errorf("could not check SpamAssassin: %w", err)
	}
	if out.Message != nil {
		if err := out.Message.Close(); err != nil {
			return false, fmt.Errorf("could not close response: %w", err)
		}
	}
	return out.IsSpam, nil
}

// wrapText turns bare text into a minimal single part message, the unit spamd
// scores.
func wrapText(text string, now time.Time) ([]byte, error) {
	buffer := &bytes.Buffer{}
	addr := []*mail.Address{{Name: "mail-service", Address: "mail-service@localhost"}}

	header := mail.Header{}
	header.SetDate(now)
	header.SetAddressList("From", addr)
	header.SetAddressList("To", addr)
	header.SetSubject("classification request")

	mailWriter, err := mail.CreateWriter(buffer, header)
	if err != nil {
		return nil, fmt.Errorf("could not create mail writer: %w", err)
	}
	textPart, err := mailWriter.CreateInline()
	if err != nil {
		return nil, fmt.Errorf("could not create mail text part: %w", err)
	}
	inlineHeader := mail.InlineHeader{}
	inlineHeader.Set("Content-Type", "text/plain; charset=utf-8")
	partWriter, err := textPart.CreatePart(inlineHeader)
	if err != nil {
		return nil, fmt.Errorf("could not create text part: %w", err)
	}
	if _, err := io.WriteString(partWriter, text); err != nil {
		return nil, fmt.Errorf("could not write text part: %w", err)
	}
	if err := partWriter.Close(); err != nil {
		return nil, fmt.Errorf("could not close text part writer: %w", err)
	}
	if err := textPart.Close(); err != nil {
		return nil, fmt.Errorf("could not close text part: %w", err)
	}
	if err := mailWriter.Close(); err != nil {
		return nil, fmt.Errorf("could not close mail writer: %w", err)
	}
	return buffer.Bytes(), nil
}
