package domain

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventBookingCreated   = "booking.created"
	EventBookingCancelled = "booking.cancelled"
)

// BookingEvent is the outbox payload relayed to the broker.
type BookingEvent struct {
	Type        string        `json:"type"`
	BookingID   uuid.UUID     `json:"booking_id"`
	UserID      uuid.UUID     `json:"user_id"`
	ItemType    ItemType      `json:"item_type"`
	ItemRef     uuid.UUID     `json:"item_ref"`
	Amount      string        `json:"amount"`
	BookingDate time.Time     `json:"booking_date"`
	Status      BookingStatus `json:"status"`
	OccurredAt  time.Time     `json:"occurred_at"`
}

// DedupeKey identifies one lifecycle transition of one booking. Redelivered
// copies of an event share it.
func (e BookingEvent) DedupeKey() string {
	return e.Type + ":" + e.BookingID.String()
}

func NewBookingEvent(eventType string, b Booking, at time.Time) BookingEvent {
	return BookingEvent{
		Type:        eventType,
		BookingID:   b.ID,
		UserID:      b.UserID,
		ItemType:    b.Item.Type,
		ItemRef:     b.Item.ID,
		Amount:      b.Amount.String(),
		BookingDate: b.BookingDate,
		Status:      b.Status,
		OccurredAt:  at,
	}
}
