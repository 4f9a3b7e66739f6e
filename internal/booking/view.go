package booking

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/robertarktes/travel-bookings/internal/domain"
	"golang.org/x/sync/errgroup"
)

const expandConcurrency = 8

// View is a booking merged with its catalog item. It marshals the item under
// a key named after the item type.
type View struct {
	ID        uuid.UUID
	ItemType  domain.ItemType
	Item      domain.CatalogItem
	Status    domain.BookingStatus
	Amount    json.Number
	Date      time.Time
	TicketURL string

	// Admin listing only.
	UserID    uuid.UUID
	CreatedAt time.Time
	Purchaser *Purchaser
}

// Purchaser is the booking user's public identity.
type Purchaser struct {
	Username string `json:"username"`
	Email    string `json:"email"`
}

func (v View) MarshalJSON() ([]byte, error) {
	out := map[string]any{
		"id":       v.ID,
		"itemType": v.ItemType,
		"status":   v.Status,
		"amount":   v.Amount,
		"date":     v.Date,
	}
	// null when the catalog item was deleted after booking
	out[string(v.ItemType)] = v.Item
	if v.TicketURL != "" {
		out["ticketUrl"] = v.TicketURL
	}
	if v.UserID != uuid.Nil {
		out["userId"] = v.UserID
	}
	if !v.CreatedAt.IsZero() {
		out["createdAt"] = v.CreatedAt
	}
	if v.Purchaser != nil {
		out["user"] = v.Purchaser
	}
	return json.Marshal(out)
}

func (s *Service) newView(b domain.Booking, item domain.CatalogItem) *View {
	return &View{
		ID:        b.ID,
		ItemType:  b.Item.Type,
		Item:      item,
		Status:    b.Status,
		Amount:    json.Number(b.Amount.String()),
		Date:      b.BookingDate,
		TicketURL: s.ticketURL(b.TicketLocation),
	}
}

func (s *Service) ticketURL(location string) string {
	if location == "" {
		return ""
	}
	return strings.TrimSuffix(s.opts.PublicBaseURL, "/") + location
}

// expand resolves the booking's catalog item. An item that no longer exists
// yields a view without it.
func (s *Service) expand(ctx context.Context, b domain.Booking) (*View, error) {
	item, err := s.catalog.Resolve(ctx, b.Item)
	if errors.Is(err, domain.ErrNotFound) {
		item, err = nil, nil
	}
	if err != nil {
		return nil, err
	}
	return s.newView(b, item), nil
}

func (s *Service) expandAll(ctx context.Context, bookings []domain.Booking, admin bool) ([]*View, error) {
	views := make([]*View, len(bookings))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(expandConcurrency)
	for i, b := range bookings {
		g.Go(func() error {
			v, err := s.expand(gctx, b)
			if err != nil {
				return err
			}
			if admin {
				v.UserID = b.UserID
				v.CreatedAt = b.CreatedAt
				if v.Purchaser, err = s.purchaser(gctx, b.UserID); err != nil {
					return err
				}
			}
			views[i] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return views, nil
}

// purchaser is nil for users removed from the directory.
func (s *Service) purchaser(ctx context.Context, userID uuid.UUID) (*Purchaser, error) {
	u, err := s.users.GetUser(ctx, userID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &Purchaser{Username: u.Username, Email: u.Email}, nil
}
