package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type ItemType string

const (
	ItemTypeEvent  ItemType = "event"
	ItemTypeFlight ItemType = "flight"
	ItemTypeHotel  ItemType = "hotel"
)

var ItemTypes = []ItemType{ItemTypeEvent, ItemTypeFlight, ItemTypeHotel}

func ParseItemType(s string) (ItemType, error) {
	t := ItemType(strings.ToLower(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", InvalidRequestf("invalid booking type %q", s)
	}
	return t, nil
}

func (t ItemType) Valid() bool {
	switch t {
	case ItemTypeEvent, ItemTypeFlight, ItemTypeHotel:
		return true
	}
	return false
}

func (t ItemType) String() string { return string(t) }

// ItemRef points at exactly one catalog item of the given type.
type ItemRef struct {
	Type ItemType
	ID   uuid.UUID
}

func EventRef(id uuid.UUID) ItemRef  { return ItemRef{Type: ItemTypeEvent, ID: id} }
func FlightRef(id uuid.UUID) ItemRef { return ItemRef{Type: ItemTypeFlight, ID: id} }
func HotelRef(id uuid.UUID) ItemRef  { return ItemRef{Type: ItemTypeHotel, ID: id} }

type BookingStatus string

const (
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusCancelled BookingStatus = "cancelled"
)

type Booking struct {
	ID             uuid.UUID
	UserID         uuid.UUID
	Item           ItemRef
	Amount         decimal.Decimal
	BookingDate    time.Time
	Status         BookingStatus
	TicketLocation string
	CreatedAt      time.Time
}

func NewBooking(userID uuid.UUID, item ItemRef, amount decimal.Decimal, bookingDate, now time.Time) Booking {
	return Booking{
		ID:          uuid.New(),
		UserID:      userID,
		Item:        item,
		Amount:      amount,
		BookingDate: bookingDate,
		Status:      BookingStatusConfirmed,
		CreatedAt:   now,
	}
}

// Validate reports the first missing required field.
func (b Booking) Validate() error {
	switch {
	case b.UserID == uuid.Nil:
		return NewValidationError("userId", "is required")
	case !b.Item.Type.Valid():
		return NewValidationError("itemType", "must be one of event, flight, hotel")
	case b.Item.ID == uuid.Nil:
		return NewValidationError("itemRef", "is required")
	case b.Amount.IsNegative():
		return NewValidationError("amount", "must not be negative")
	}
	return nil
}

func (b Booking) OwnedBy(userID uuid.UUID) bool {
	return b.UserID == userID
}

func (b Booking) HasTicket() bool {
	return b.TicketLocation != ""
}

type User struct {
	ID       uuid.UUID
	Username string
	Email    string
	Role     string
}

func (u User) DisplayName() string {
	if u.Username != "" {
		return u.Username
	}
	return u.Email
}
