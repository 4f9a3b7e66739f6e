package http

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/robertarktes/travel-bookings/internal/booking"
	"github.com/robertarktes/travel-bookings/internal/domain"
	"github.com/robertarktes/travel-bookings/internal/observability"
)

type BookingService interface {
	Create(ctx context.Context, req booking.CreateRequest) (*booking.View, error)
	Get(ctx context.Context, id, userID uuid.UUID) (*booking.View, error)
	ListMine(ctx context.Context, userID uuid.UUID) ([]*booking.View, error)
	ListAll(ctx context.Context) ([]*booking.View, error)
	Cancel(ctx context.Context, id, userID uuid.UUID) error
	CancelAsAdmin(ctx context.Context, id uuid.UUID) error
	RegenerateTicket(ctx context.Context, id, userID uuid.UUID) (*booking.View, error)
}

type CatalogStore interface {
	Resolve(ctx context.Context, ref domain.ItemRef) (domain.CatalogItem, error)
	List(ctx context.Context, t domain.ItemType) ([]domain.CatalogItem, error)
	Create(ctx context.Context, item domain.CatalogItem) error
	Update(ctx context.Context, item domain.CatalogItem) error
	Delete(ctx context.Context, ref domain.ItemRef) error
}

type TicketFiles interface {
	Open(ctx context.Context, name string) (io.ReadCloser, error)
}

type Pinger interface {
	Ping(ctx context.Context) error
}

type Handlers struct {
	bookings BookingService
	catalog  CatalogStore
	tickets  TicketFiles
	checks   map[string]Pinger
	logger   observability.Logger
}

func NewHandlers(bookings BookingService, catalog CatalogStore, tickets TicketFiles, checks map[string]Pinger, logger observability.Logger) *Handlers {
	return &Handlers{
		bookings: bookings,
		catalog:  catalog,
		tickets:  tickets,
		checks:   checks,
		logger:   logger,
	}
}

func (h *Handlers) Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func (h *Handlers) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	for name, check := range h.checks {
		if err := check.Ping(ctx); err != nil {
			observability.LoggerFromContext(r.Context(), h.logger).WithField("dependency", name).WithError(err).Warn("readiness check failed")
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "dependency": name})
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Ready"))
}
