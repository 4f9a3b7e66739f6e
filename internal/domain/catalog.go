package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CatalogItem is the read-only projection the booking workflow needs from
// an event, flight or hotel.
type CatalogItem interface {
	Ref() ItemRef
	DisplayTitle() string
	DisplayLocation() string
	RawPrice() any
	// RelevantDate is zero when the item has no intrinsic date.
	RelevantDate() time.Time
}

type Event struct {
	ID          uuid.UUID `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Location    string    `json:"location"`
	Category    string    `json:"category,omitempty"`
	Date        time.Time `json:"date"`
	Price       any       `json:"price"`
}

func (e *Event) Ref() ItemRef               { return EventRef(e.ID) }
func (e *Event) DisplayTitle() string       { return e.Title }
func (e *Event) DisplayLocation() string    { return e.Location }
func (e *Event) RawPrice() any              { return e.Price }
func (e *Event) RelevantDate() time.Time    { return e.Date }
func (e *Event) setPrice(d decimal.Decimal) { e.Price = d }

func (e *Event) Validate() error {
	switch {
	case strings.TrimSpace(e.Title) == "":
		return NewValidationError("title", "is required")
	case strings.TrimSpace(e.Location) == "":
		return NewValidationError("location", "is required")
	case e.Date.IsZero():
		return NewValidationError("date", "is required")
	}
	return nil
}

type Flight struct {
	ID            uuid.UUID `json:"id"`
	Airline       string    `json:"airline"`
	FlightNumber  string    `json:"flightNumber,omitempty"`
	From          string    `json:"from"`
	To            string    `json:"to"`
	DepartureTime time.Time `json:"departureTime"`
	ArrivalTime   time.Time `json:"arrivalTime,omitempty"`
	Charges       any       `json:"charges"`
	Description   string    `json:"description,omitempty"`
}

func (f *Flight) Ref() ItemRef { return FlightRef(f.ID) }

func (f *Flight) DisplayTitle() string {
	if f.FlightNumber == "" {
		return f.Airline
	}
	return fmt.Sprintf("%s %s", f.Airline, f.FlightNumber)
}

func (f *Flight) DisplayLocation() string {
	if f.From == "" || f.To == "" {
		return ""
	}
	return fmt.Sprintf("%s -> %s", f.From, f.To)
}

func (f *Flight) RawPrice() any              { return f.Charges }
func (f *Flight) RelevantDate() time.Time    { return f.DepartureTime }
func (f *Flight) setPrice(d decimal.Decimal) { f.Charges = d }

func (f *Flight) Validate() error {
	switch {
	case strings.TrimSpace(f.Airline) == "":
		return NewValidationError("airline", "is required")
	case strings.TrimSpace(f.From) == "":
		return NewValidationError("from", "is required")
	case strings.TrimSpace(f.To) == "":
		return NewValidationError("to", "is required")
	case f.DepartureTime.IsZero():
		return NewValidationError("departureTime", "is required")
	case !f.ArrivalTime.IsZero() && f.ArrivalTime.Before(f.DepartureTime):
		return NewValidationError("arrivalTime", "must not be before departureTime")
	}
	return nil
}

type Hotel struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Location    string    `json:"location"`
	Charges     any       `json:"charges"`
	Description string    `json:"description,omitempty"`
}

func (h *Hotel) Ref() ItemRef               { return HotelRef(h.ID) }
func (h *Hotel) DisplayTitle() string       { return h.Name }
func (h *Hotel) DisplayLocation() string    { return h.Location }
func (h *Hotel) RawPrice() any              { return h.Charges }
func (h *Hotel) setPrice(d decimal.Decimal) { h.Charges = d }

// RelevantDate is zero: a hotel booking is dated when it is made.
func (h *Hotel) RelevantDate() time.Time { return time.Time{} }

func (h *Hotel) Validate() error {
	switch {
	case strings.TrimSpace(h.Name) == "":
		return NewValidationError("name", "is required")
	case strings.TrimSpace(h.Location) == "":
		return NewValidationError("location", "is required")
	}
	return nil
}

// ValidateCatalogItem checks display fields and that the stored price would
// normalize at booking time.
func ValidateCatalogItem(item CatalogItem) error {
	_, err := catalogAmount(item)
	return err
}

// NormalizeCatalogItem validates item and replaces its raw price with the
// normalized amount, which is the form catalog stores persist.
func NormalizeCatalogItem(item CatalogItem) error {
	amount, err := catalogAmount(item)
	if err != nil {
		return err
	}
	if p, ok := item.(interface{ setPrice(decimal.Decimal) }); ok {
		p.setPrice(amount)
	}
	return nil
}

func catalogAmount(item CatalogItem) (decimal.Decimal, error) {
	if v, ok := item.(interface{ Validate() error }); ok {
		if err := v.Validate(); err != nil {
			return decimal.Zero, err
		}
	}
	return NormalizeAmount(item.RawPrice())
}
