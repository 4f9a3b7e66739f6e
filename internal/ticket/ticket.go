// Package ticket renders booking tickets as PDF documents in memory.
package ticket

import (
	"bytes"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/go-pdf/fpdf"
	"github.com/google/uuid"
	"github.com/robertarktes/travel-bookings/internal/domain"
)

const dateLayout = "Mon, 02 Jan 2006 15:04 MST"

type Options struct {
	Currency string
	// Compress deflates page streams. Disabled only when the raw content
	// needs inspecting.
	Compress bool
}

func DefaultOptions() Options {
	return Options{Currency: "KES", Compress: true}
}

type Renderer struct {
	opts Options
}

func NewRenderer(opts Options) *Renderer {
	return &Renderer{opts: opts}
}

// Render lays out a single-page ticket. The output depends only on its
// inputs; the document dates are taken from the booking.
func (r *Renderer) Render(b domain.Booking, user domain.User, item domain.CatalogItem) ([]byte, error) {
	switch {
	case b.ID == uuid.Nil:
		return nil, errors.Wrap(domain.ErrRender, "booking id is missing")
	case item == nil:
		return nil, errors.Wrap(domain.ErrRender, "catalog item is missing")
	case strings.TrimSpace(item.DisplayTitle()) == "":
		return nil, errors.Wrapf(domain.ErrRender, "%s has no display title", b.Item.Type)
	case user.DisplayName() == "":
		return nil, errors.Wrap(domain.ErrRender, "purchaser identity is missing")
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetCompression(r.opts.Compress)
	pdf.SetCatalogSort(true)
	pdf.SetMargins(20, 20, 20)
	pdf.SetCreator("travel-bookings", true)
	pdf.SetTitle(domain.TicketFileName(b.ID), true)
	stamp := b.CreatedAt
	if stamp.IsZero() {
		stamp = time.Unix(0, 0).UTC()
	}
	pdf.SetCreationDate(stamp)
	pdf.SetModificationDate(stamp)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 24)
	pdf.CellFormat(0, 14, tr(label(b.Item.Type)+" Ticket"), "", 1, "C", false, 0, "")
	pdf.Ln(8)

	line := func(text string) {
		pdf.CellFormat(0, 9, tr(text), "", 1, "L", false, 0, "")
	}

	pdf.SetFont("Helvetica", "", 14)
	line(label(b.Item.Type) + ": " + item.DisplayTitle())
	if loc := item.DisplayLocation(); loc != "" {
		if b.Item.Type == domain.ItemTypeFlight {
			line("Route: " + loc)
		} else {
			line("Location: " + loc)
		}
	}
	line("Date: " + b.BookingDate.Format(dateLayout))
	line("Amount Paid: " + r.opts.Currency + " " + b.Amount.StringFixed(2))
	pdf.Ln(4)
	line("Booked By: " + user.DisplayName())
	if user.Email != "" {
		line("Email: " + user.Email)
	}
	line("Booking ID: " + b.ID.String())
	pdf.Ln(10)

	pdf.SetFont("Helvetica", "I", 12)
	pdf.CellFormat(0, 8, tr("Thank you for booking with us!"), "", 1, "C", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, domain.RenderError(err, "render ticket")
	}
	return buf.Bytes(), nil
}

func label(t domain.ItemType) string {
	s := string(t)
	if s == "" {
		return "Booking"
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
