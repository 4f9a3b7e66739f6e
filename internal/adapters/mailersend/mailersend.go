package mailersend

import (
	"context"
	"encoding/base64"

	"github.com/cockroachdb/errors"
	"github.com/mailersend/mailersend-go"
	"github.com/robertarktes/travel-bookings/internal/config"
	"github.com/robertarktes/travel-bookings/internal/delivery"
	"github.com/robertarktes/travel-bookings/internal/observability"
)

// Transport sends ticket mail through the MailerSend API.
type Transport struct {
	client    *mailersend.Mailersend
	fromEmail string
	fromName  string
	logger    observability.Logger
}

func NewTransport(cfg config.MailConfig, logger observability.Logger) *Transport {
	return &Transport{
		client:    mailersend.NewMailersend(cfg.MailerSendAPIKey),
		fromEmail: cfg.FromEmail,
		fromName:  cfg.FromName,
		logger:    logger,
	}
}

func (t *Transport) Send(ctx context.Context, msg delivery.Message) error {
	message := t.client.Email.NewMessage()
	message.SetFrom(mailersend.From{Name: t.fromName, Email: t.fromEmail})
	message.SetRecipients([]mailersend.Recipient{{Name: msg.ToName, Email: msg.To}})
	message.SetSubject(msg.Subject)
	message.SetText(msg.Body)
	for _, a := range msg.Attachments {
		message.AddAttachment(mailersend.Attachment{
			Filename: a.Filename,
			Content:  base64.StdEncoding.EncodeToString(a.Content),
		})
	}

	res, err := t.client.Email.Send(ctx, message)
	if err != nil {
		return errors.Wrap(err, "mailersend: send")
	}
	t.logger.WithField("message_id", res.Header.Get("X-Message-Id")).Debug("ticket email accepted")
	return nil
}
