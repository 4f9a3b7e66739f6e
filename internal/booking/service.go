// Package booking orchestrates the unified booking workflow across events,
// flights and hotels.
package booking

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/robertarktes/travel-bookings/internal/domain"
	"github.com/robertarktes/travel-bookings/internal/observability"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type Ledger interface {
	Create(ctx context.Context, b domain.Booking) error
	Exists(ctx context.Context, userID uuid.UUID, item domain.ItemRef) (bool, error)
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Booking, error)
	FindByUser(ctx context.Context, userID uuid.UUID) ([]domain.Booking, error)
	FindAll(ctx context.Context) ([]domain.Booking, error)
	SetTicketLocation(ctx context.Context, id uuid.UUID, location string) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type Catalog interface {
	Resolve(ctx context.Context, ref domain.ItemRef) (domain.CatalogItem, error)
}

type Users interface {
	GetUser(ctx context.Context, id uuid.UUID) (*domain.User, error)
}

type Renderer interface {
	Render(b domain.Booking, user domain.User, item domain.CatalogItem) ([]byte, error)
}

type ArtifactStore interface {
	Store(ctx context.Context, name string, data []byte) (string, error)
}

type Dispatcher interface {
	DeliverTicket(ctx context.Context, user domain.User, itemType domain.ItemType, filename string, pdf []byte) error
}

type Options struct {
	// PublicBaseURL prefixes stored ticket paths, e.g. "https://api.example.com".
	PublicBaseURL   string
	DeliveryTimeout time.Duration
}

type Service struct {
	ledger     Ledger
	catalog    Catalog
	users      Users
	renderer   Renderer
	artifacts  ArtifactStore
	dispatcher Dispatcher
	opts       Options
	logger     observability.Logger
	tracer     trace.Tracer
	now        func() time.Time
}

func NewService(ledger Ledger, catalog Catalog, users Users, renderer Renderer, artifacts ArtifactStore, dispatcher Dispatcher, opts Options, logger observability.Logger) *Service {
	return &Service{
		ledger:     ledger,
		catalog:    catalog,
		users:      users,
		renderer:   renderer,
		artifacts:  artifacts,
		dispatcher: dispatcher,
		opts:       opts,
		logger:     logger,
		tracer:     otel.Tracer("booking"),
		now:        time.Now,
	}
}

type CreateRequest struct {
	UserID   uuid.UUID
	ItemType string
	ItemID   string
}

// Create books an item for a user. Once the booking is persisted the call
// succeeds even if the ticket cannot be rendered, stored or mailed; the
// returned view then has no ticket URL.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*View, error) {
	ctx, span := s.tracer.Start(ctx, "booking.Create")
	defer span.End()

	ref, err := parseRef(req.ItemType, req.ItemID)
	if err != nil {
		return nil, fail(span, err)
	}
	span.SetAttributes(attribute.String("booking.item_type", string(ref.Type)), attribute.String("booking.item_ref", ref.ID.String()))

	user, err := s.users.GetUser(ctx, req.UserID)
	if err != nil {
		return nil, fail(span, err)
	}

	item, err := s.catalog.Resolve(ctx, ref)
	if err != nil {
		return nil, fail(span, err)
	}
	span.AddEvent("item_resolved")

	amount, err := domain.NormalizeAmount(item.RawPrice())
	if err != nil {
		return nil, fail(span, err)
	}
	span.AddEvent("amount_validated")

	exists, err := s.ledger.Exists(ctx, user.ID, ref)
	if err != nil {
		return nil, fail(span, err)
	}
	if exists {
		observability.BookingConflicts.WithLabelValues(string(ref.Type)).Inc()
		return nil, fail(span, &domain.DuplicateBookingError{Type: ref.Type})
	}
	span.AddEvent("uniqueness_checked")

	now := s.now()
	date := item.RelevantDate()
	if date.IsZero() {
		date = now
	}
	b := domain.NewBooking(user.ID, ref, amount, date, now)
	if err := s.ledger.Create(ctx, b); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			observability.BookingConflicts.WithLabelValues(string(ref.Type)).Inc()
		}
		return nil, fail(span, err)
	}
	observability.BookingsCreated.WithLabelValues(string(ref.Type)).Inc()
	span.SetAttributes(attribute.String("booking.id", b.ID.String()))
	span.AddEvent("persisted")

	log := observability.LoggerFromContext(ctx, s.logger).WithField("booking_id", b.ID.String())
	s.issueTicket(ctx, span, log, &b, *user, item)

	return s.newView(b, item), nil
}

// issueTicket runs the post-persistence stages. Every failure is logged once
// and leaves b without a ticket location.
func (s *Service) issueTicket(ctx context.Context, span trace.Span, log observability.Logger, b *domain.Booking, user domain.User, item domain.CatalogItem) {
	pdf, err := s.renderer.Render(*b, user, item)
	if err != nil {
		s.stageFailed(span, log, "render", err)
		return
	}
	span.AddEvent("artifact_generated")

	filename := domain.TicketFileName(b.ID)
	location, err := s.artifacts.Store(ctx, filename, pdf)
	if err != nil {
		s.stageFailed(span, log, "store", err)
	} else if err := s.ledger.SetTicketLocation(ctx, b.ID, location); err != nil {
		s.stageFailed(span, log, "ticket_location", err)
	} else {
		b.TicketLocation = location
		span.AddEvent("artifact_stored")
	}

	s.deliver(ctx, log, *b, user, filename, pdf)
	span.AddEvent("delivery_attempted")
}

func (s *Service) deliver(ctx context.Context, log observability.Logger, b domain.Booking, user domain.User, filename string, pdf []byte) {
	dctx := context.WithoutCancel(ctx)
	if s.opts.DeliveryTimeout > 0 {
		var cancel context.CancelFunc
		dctx, cancel = context.WithTimeout(dctx, s.opts.DeliveryTimeout)
		defer cancel()
	}
	if err := s.dispatcher.DeliverTicket(dctx, user, b.Item.Type, filename, pdf); err != nil {
		observability.Deliveries.WithLabelValues("failed").Inc()
		log.WithField("stage", "delivery").WithError(err).Warn("ticket delivery failed")
		return
	}
	observability.Deliveries.WithLabelValues("sent").Inc()
}

func (s *Service) stageFailed(span trace.Span, log observability.Logger, stage string, err error) {
	observability.TicketFailures.WithLabelValues(stage).Inc()
	span.RecordError(err, trace.WithAttributes(attribute.String("booking.stage", stage)))
	log.WithField("stage", stage).WithError(err).Error("ticket issue failed")
}

// Get returns a booking owned by userID.
func (s *Service) Get(ctx context.Context, id, userID uuid.UUID) (*View, error) {
	ctx, span := s.tracer.Start(ctx, "booking.Get")
	defer span.End()

	b, err := s.owned(ctx, id, userID)
	if err != nil {
		return nil, fail(span, err)
	}
	v, err := s.expand(ctx, *b)
	if err != nil {
		return nil, fail(span, err)
	}
	return v, nil
}

// ListMine returns the user's bookings, newest first.
func (s *Service) ListMine(ctx context.Context, userID uuid.UUID) ([]*View, error) {
	ctx, span := s.tracer.Start(ctx, "booking.ListMine")
	defer span.End()

	bookings, err := s.ledger.FindByUser(ctx, userID)
	if err != nil {
		return nil, fail(span, err)
	}
	views, err := s.expandAll(ctx, bookings, false)
	if err != nil {
		return nil, fail(span, err)
	}
	return views, nil
}

// ListAll returns every booking, newest first. Callers enforce the admin
// capability.
func (s *Service) ListAll(ctx context.Context) ([]*View, error) {
	ctx, span := s.tracer.Start(ctx, "booking.ListAll")
	defer span.End()

	bookings, err := s.ledger.FindAll(ctx)
	if err != nil {
		return nil, fail(span, err)
	}
	views, err := s.expandAll(ctx, bookings, true)
	if err != nil {
		return nil, fail(span, err)
	}
	return views, nil
}

// Cancel permanently removes a booking owned by userID. The stored ticket is
// left in place.
func (s *Service) Cancel(ctx context.Context, id, userID uuid.UUID) error {
	ctx, span := s.tracer.Start(ctx, "booking.Cancel")
	defer span.End()

	if _, err := s.owned(ctx, id, userID); err != nil {
		return fail(span, err)
	}
	if err := s.ledger.Delete(ctx, id); err != nil {
		return fail(span, err)
	}
	observability.LoggerFromContext(ctx, s.logger).WithField("booking_id", id.String()).Info("booking cancelled")
	return nil
}

// CancelAsAdmin removes any booking regardless of owner. Callers enforce the
// admin capability.
func (s *Service) CancelAsAdmin(ctx context.Context, id uuid.UUID) error {
	ctx, span := s.tracer.Start(ctx, "booking.CancelAsAdmin")
	defer span.End()

	if err := s.ledger.Delete(ctx, id); err != nil {
		return fail(span, err)
	}
	observability.LoggerFromContext(ctx, s.logger).WithField("booking_id", id.String()).Info("booking cancelled by admin")
	return nil
}

// RegenerateTicket renders and stores a fresh ticket for an owned booking.
// Unlike Create, render and store failures are returned.
func (s *Service) RegenerateTicket(ctx context.Context, id, userID uuid.UUID) (*View, error) {
	ctx, span := s.tracer.Start(ctx, "booking.RegenerateTicket")
	defer span.End()

	b, err := s.owned(ctx, id, userID)
	if err != nil {
		return nil, fail(span, err)
	}
	user, err := s.users.GetUser(ctx, b.UserID)
	if err != nil {
		return nil, fail(span, err)
	}
	item, err := s.catalog.Resolve(ctx, b.Item)
	if err != nil {
		return nil, fail(span, err)
	}
	pdf, err := s.renderer.Render(*b, *user, item)
	if err != nil {
		observability.TicketFailures.WithLabelValues("render").Inc()
		return nil, fail(span, err)
	}
	location, err := s.artifacts.Store(ctx, domain.TicketFileName(b.ID), pdf)
	if err != nil {
		observability.TicketFailures.WithLabelValues("store").Inc()
		return nil, fail(span, err)
	}
	if err := s.ledger.SetTicketLocation(ctx, b.ID, location); err != nil {
		return nil, fail(span, err)
	}
	b.TicketLocation = location
	return s.newView(*b, item), nil
}

func (s *Service) owned(ctx context.Context, id, userID uuid.UUID) (*domain.Booking, error) {
	b, err := s.ledger.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !b.OwnedBy(userID) {
		return nil, domain.Forbiddenf("you are not allowed to access this booking")
	}
	return b, nil
}

func parseRef(itemType, itemID string) (domain.ItemRef, error) {
	t, err := domain.ParseItemType(itemType)
	if err != nil {
		return domain.ItemRef{}, err
	}
	id, err := uuid.Parse(itemID)
	if err != nil {
		return domain.ItemRef{}, domain.InvalidRequestf("invalid itemId %q", itemID)
	}
	return domain.ItemRef{Type: t, ID: id}, nil
}

func fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
