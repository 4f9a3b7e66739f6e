// Package delivery sends rendered tickets to their purchasers.
package delivery

import (
	"context"
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/robertarktes/travel-bookings/internal/domain"
	"github.com/robertarktes/travel-bookings/internal/observability"
)

type Attachment struct {
	Filename string
	Content  []byte
}

type Message struct {
	To          string
	ToName      string
	Subject     string
	Body        string
	Attachments []Attachment
}

type Transport interface {
	Send(ctx context.Context, msg Message) error
}

type Dispatcher struct {
	transport Transport
}

func NewDispatcher(transport Transport) *Dispatcher {
	return &Dispatcher{transport: transport}
}

// DeliverTicket makes a single attempt. Transport failures are reported as
// domain.ErrDelivery.
func (d *Dispatcher) DeliverTicket(ctx context.Context, user domain.User, itemType domain.ItemType, filename string, pdf []byte) error {
	if user.Email == "" {
		return errors.Wrap(domain.ErrDelivery, "recipient has no email address")
	}
	msg := Message{
		To:          user.Email,
		ToName:      user.Username,
		Subject:     fmt.Sprintf("Your %s Ticket", itemType),
		Body:        fmt.Sprintf("Hello %s,\n\nAttached is your %s booking ticket.", user.DisplayName(), itemType),
		Attachments: []Attachment{{Filename: filename, Content: pdf}},
	}
	if err := d.transport.Send(ctx, msg); err != nil {
		return domain.DeliveryError(err, "deliver ticket to "+user.Email)
	}
	return nil
}

// LogTransport only logs outgoing mail. It stands in when no mail provider
// is configured.
type LogTransport struct {
	logger observability.Logger
}

func NewLogTransport(logger observability.Logger) *LogTransport {
	return &LogTransport{logger: logger}
}

func (t *LogTransport) Send(_ context.Context, msg Message) error {
	l := t.logger.WithField("to", msg.To).WithField("subject", msg.Subject)
	for _, a := range msg.Attachments {
		l = l.WithField("attachment", a.Filename)
	}
	l.Info("mail transport not configured, skipping send")
	return nil
}
