package booking

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/robertarktes/travel-bookings/internal/domain"
	"github.com/robertarktes/travel-bookings/internal/observability"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// memLedger enforces the same (user, type, item) uniqueness as the database.
type memLedger struct {
	mu       sync.Mutex
	bookings map[uuid.UUID]domain.Booking
	// blindGuard makes Exists always report false so Create's own
	// constraint is exercised.
	blindGuard bool
}

func newMemLedger() *memLedger {
	return &memLedger{bookings: map[uuid.UUID]domain.Booking{}}
}

func (m *memLedger) Create(_ context.Context, b domain.Booking) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := b.Validate(); err != nil {
		return err
	}
	for _, existing := range m.bookings {
		if existing.UserID == b.UserID && existing.Item == b.Item && existing.Status == domain.BookingStatusConfirmed {
			return &domain.DuplicateBookingError{Type: b.Item.Type}
		}
	}
	m.bookings[b.ID] = b
	return nil
}

func (m *memLedger) Exists(_ context.Context, userID uuid.UUID, item domain.ItemRef) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.blindGuard {
		return false, nil
	}
	for _, b := range m.bookings {
		if b.UserID == userID && b.Item == item {
			return true, nil
		}
	}
	return false, nil
}

func (m *memLedger) FindByID(_ context.Context, id uuid.UUID) (*domain.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok {
		return nil, domain.NotFoundf("booking not found")
	}
	return &b, nil
}

func (m *memLedger) list(keep func(domain.Booking) bool) []domain.Booking {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []domain.Booking{}
	for _, b := range m.bookings {
		if keep(b) {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (m *memLedger) FindByUser(_ context.Context, userID uuid.UUID) ([]domain.Booking, error) {
	return m.list(func(b domain.Booking) bool { return b.UserID == userID }), nil
}

func (m *memLedger) FindAll(context.Context) ([]domain.Booking, error) {
	return m.list(func(domain.Booking) bool { return true }), nil
}

func (m *memLedger) SetTicketLocation(_ context.Context, id uuid.UUID, location string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok {
		return domain.NotFoundf("booking not found")
	}
	b.TicketLocation = location
	m.bookings[id] = b
	return nil
}

func (m *memLedger) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.bookings[id]; !ok {
		return domain.NotFoundf("booking not found")
	}
	delete(m.bookings, id)
	return nil
}

type mockCatalog struct{ mock.Mock }

func (m *mockCatalog) Resolve(ctx context.Context, ref domain.ItemRef) (domain.CatalogItem, error) {
	args := m.Called(ctx, ref)
	item, _ := args.Get(0).(domain.CatalogItem)
	return item, args.Error(1)
}

type mockUsers struct{ mock.Mock }

func (m *mockUsers) GetUser(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	args := m.Called(ctx, id)
	u, _ := args.Get(0).(*domain.User)
	return u, args.Error(1)
}

type mockRenderer struct{ mock.Mock }

func (m *mockRenderer) Render(b domain.Booking, user domain.User, item domain.CatalogItem) ([]byte, error) {
	args := m.Called(b, user, item)
	data, _ := args.Get(0).([]byte)
	return data, args.Error(1)
}

type mockStore struct{ mock.Mock }

func (m *mockStore) Store(ctx context.Context, name string, data []byte) (string, error) {
	args := m.Called(ctx, name, data)
	if fn, ok := args.Get(0).(func(context.Context, string, []byte) string); ok {
		return fn(ctx, name, data), args.Error(1)
	}
	return args.String(0), args.Error(1)
}

type mockDispatcher struct{ mock.Mock }

func (m *mockDispatcher) DeliverTicket(ctx context.Context, user domain.User, itemType domain.ItemType, filename string, pdf []byte) error {
	return m.Called(ctx, user, itemType, filename, pdf).Error(0)
}

type fixture struct {
	svc        *Service
	ledger     *memLedger
	catalog    *mockCatalog
	users      *mockUsers
	renderer   *mockRenderer
	store      *mockStore
	dispatcher *mockDispatcher

	user  domain.User
	event *domain.Event
	hotel *domain.Hotel
	now   time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		ledger:     newMemLedger(),
		catalog:    new(mockCatalog),
		users:      new(mockUsers),
		renderer:   new(mockRenderer),
		store:      new(mockStore),
		dispatcher: new(mockDispatcher),
		user:       domain.User{ID: uuid.New(), Username: "wanjiku", Email: "wanjiku@example.com"},
		now:        time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC),
	}
	f.event = &domain.Event{
		ID:       uuid.New(),
		Title:    "Sauti Sol Live",
		Location: "KICC Nairobi",
		Date:     time.Date(2026, 12, 5, 18, 0, 0, 0, time.UTC),
		Price:    "KES 500",
	}
	f.hotel = &domain.Hotel{ID: uuid.New(), Name: "Serena", Location: "Nairobi", Charges: 12000}

	f.svc = NewService(f.ledger, f.catalog, f.users, f.renderer, f.store, f.dispatcher,
		Options{PublicBaseURL: "https://book.example.com/", DeliveryTimeout: time.Second},
		observability.NewNopLogger())
	f.svc.now = func() time.Time { return f.now }

	f.users.On("GetUser", mock.Anything, f.user.ID).Return(&f.user, nil).Maybe()
	f.catalog.On("Resolve", mock.Anything, f.event.Ref()).Return(f.event, nil).Maybe()
	f.catalog.On("Resolve", mock.Anything, f.hotel.Ref()).Return(f.hotel, nil).Maybe()
	return f
}

func (f *fixture) happyTicketPath() {
	f.renderer.On("Render", mock.Anything, f.user, mock.Anything).Return([]byte("%PDF"), nil)
	f.store.On("Store", mock.Anything, mock.AnythingOfType("string"), []byte("%PDF")).
		Return(func(_ context.Context, name string, _ []byte) string { return "/tickets/" + name }, nil)
	f.dispatcher.On("DeliverTicket", mock.Anything, f.user, mock.Anything, mock.Anything, []byte("%PDF")).Return(nil)
}

func (f *fixture) createEvent(t *testing.T) *View {
	t.Helper()
	v, err := f.svc.Create(context.Background(), CreateRequest{UserID: f.user.ID, ItemType: "event", ItemID: f.event.ID.String()})
	require.NoError(t, err)
	return v
}

func TestCreate_Success(t *testing.T) {
	f := newFixture(t)
	f.happyTicketPath()

	v := f.createEvent(t)

	assert.Equal(t, domain.ItemTypeEvent, v.ItemType)
	assert.Equal(t, f.event, v.Item)
	assert.Equal(t, domain.BookingStatusConfirmed, v.Status)
	assert.Equal(t, json.Number("500"), v.Amount)
	assert.Equal(t, f.event.Date, v.Date)
	assert.Equal(t, "https://book.example.com/tickets/ticket_"+v.ID.String()+".pdf", v.TicketURL)

	stored, err := f.ledger.FindByID(context.Background(), v.ID)
	require.NoError(t, err)
	assert.Equal(t, "/tickets/ticket_"+v.ID.String()+".pdf", stored.TicketLocation)
	assert.Equal(t, f.user.ID, stored.UserID)

	f.dispatcher.AssertCalled(t, "DeliverTicket", mock.Anything, f.user, domain.ItemTypeEvent, "ticket_"+v.ID.String()+".pdf", []byte("%PDF"))
}

func TestCreate_HotelIsDatedAtBookingTime(t *testing.T) {
	f := newFixture(t)
	f.happyTicketPath()

	v, err := f.svc.Create(context.Background(), CreateRequest{UserID: f.user.ID, ItemType: "hotel", ItemID: f.hotel.ID.String()})
	require.NoError(t, err)
	assert.Equal(t, f.now, v.Date)
	assert.Equal(t, json.Number("12000"), v.Amount)
}

func TestCreate_DuplicateRejectedByGuard(t *testing.T) {
	f := newFixture(t)
	f.happyTicketPath()
	f.createEvent(t)

	_, err := f.svc.Create(context.Background(), CreateRequest{UserID: f.user.ID, ItemType: "event", ItemID: f.event.ID.String()})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrConflict)
	assert.Equal(t, "you already booked this event", err.Error())
	f.renderer.AssertNumberOfCalls(t, "Render", 1)
}

func TestCreate_DuplicateRejectedByStorageConstraint(t *testing.T) {
	f := newFixture(t)
	f.happyTicketPath()
	f.createEvent(t)
	f.ledger.blindGuard = true

	_, err := f.svc.Create(context.Background(), CreateRequest{UserID: f.user.ID, ItemType: "event", ItemID: f.event.ID.String()})
	assert.ErrorIs(t, err, domain.ErrConflict)

	all, _ := f.ledger.FindAll(context.Background())
	assert.Len(t, all, 1)
}

func TestCreate_UnknownTypeIsInvalidRequest(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Create(context.Background(), CreateRequest{UserID: f.user.ID, ItemType: "train", ItemID: uuid.NewString()})
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)
	f.catalog.AssertNotCalled(t, "Resolve", mock.Anything, mock.Anything)
}

func TestCreate_BadItemID(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Create(context.Background(), CreateRequest{UserID: f.user.ID, ItemType: "event", ItemID: "not-a-uuid"})
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)
}

func TestCreate_MissingItem(t *testing.T) {
	f := newFixture(t)
	ref := domain.FlightRef(uuid.New())
	f.catalog.On("Resolve", mock.Anything, ref).Return(nil, domain.NotFoundf("flight not found"))

	_, err := f.svc.Create(context.Background(), CreateRequest{UserID: f.user.ID, ItemType: "flight", ItemID: ref.ID.String()})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCreate_UnknownUser(t *testing.T) {
	f := newFixture(t)
	ghost := uuid.New()
	f.users.On("GetUser", mock.Anything, ghost).Return(nil, domain.NotFoundf("user not found"))

	_, err := f.svc.Create(context.Background(), CreateRequest{UserID: ghost, ItemType: "event", ItemID: f.event.ID.String()})
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Equal(t, "user not found", err.Error())
}

func TestCreate_InvalidAmount(t *testing.T) {
	f := newFixture(t)
	bad := &domain.Event{ID: uuid.New(), Title: "Free Gig", Location: "Uhuru Park", Date: f.now, Price: "free entry"}
	f.catalog.On("Resolve", mock.Anything, bad.Ref()).Return(bad, nil)

	_, err := f.svc.Create(context.Background(), CreateRequest{UserID: f.user.ID, ItemType: "event", ItemID: bad.ID.String()})
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)
	all, _ := f.ledger.FindAll(context.Background())
	assert.Empty(t, all)
}

func TestCreate_RenderFailureStillSucceeds(t *testing.T) {
	f := newFixture(t)
	f.renderer.On("Render", mock.Anything, mock.Anything, mock.Anything).Return(nil, domain.RenderError(errors.New("font"), "render"))

	v := f.createEvent(t)
	assert.Empty(t, v.TicketURL)
	f.store.AssertNotCalled(t, "Store", mock.Anything, mock.Anything, mock.Anything)
	f.dispatcher.AssertNotCalled(t, "DeliverTicket", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)

	got, err := f.svc.Get(context.Background(), v.ID, f.user.ID)
	require.NoError(t, err)
	assert.Empty(t, got.TicketURL)
}

func TestCreate_StoreFailureStillSucceedsAndDelivers(t *testing.T) {
	f := newFixture(t)
	f.renderer.On("Render", mock.Anything, mock.Anything, mock.Anything).Return([]byte("%PDF"), nil)
	f.store.On("Store", mock.Anything, mock.Anything, mock.Anything).Return("", errors.New("disk full"))
	f.dispatcher.On("DeliverTicket", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

	v := f.createEvent(t)
	assert.Empty(t, v.TicketURL)

	got, err := f.svc.Get(context.Background(), v.ID, f.user.ID)
	require.NoError(t, err)
	assert.Empty(t, got.TicketURL)
	assert.Equal(t, f.event, got.Item)
	f.dispatcher.AssertNumberOfCalls(t, "DeliverTicket", 1)
}

func TestCreate_DeliveryFailureIsSwallowed(t *testing.T) {
	f := newFixture(t)
	f.renderer.On("Render", mock.Anything, mock.Anything, mock.Anything).Return([]byte("%PDF"), nil)
	f.store.On("Store", mock.Anything, mock.Anything, mock.Anything).Return("/tickets/x.pdf", nil)
	f.dispatcher.On("DeliverTicket", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(domain.DeliveryError(errors.New("421"), "deliver"))

	v := f.createEvent(t)
	assert.Equal(t, "https://book.example.com/tickets/x.pdf", v.TicketURL)
}

func TestCreate_AmountAndDateSurviveCatalogChange(t *testing.T) {
	f := newFixture(t)
	f.happyTicketPath()
	v := f.createEvent(t)

	f.event.Price = "KES 900"
	f.event.Date = f.event.Date.Add(48 * time.Hour)
	f.event.Title = "Sauti Sol Live (moved)"

	got, err := f.svc.Get(context.Background(), v.ID, f.user.ID)
	require.NoError(t, err)
	assert.Equal(t, json.Number("500"), got.Amount)
	assert.Equal(t, time.Date(2026, 12, 5, 18, 0, 0, 0, time.UTC), got.Date)
	assert.Equal(t, "Sauti Sol Live (moved)", got.Item.DisplayTitle())
}

func TestGet_Ownership(t *testing.T) {
	f := newFixture(t)
	f.happyTicketPath()
	v := f.createEvent(t)

	_, err := f.svc.Get(context.Background(), v.ID, uuid.New())
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = f.svc.Get(context.Background(), uuid.New(), f.user.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestGet_DeletedCatalogItemRendersWithoutItem(t *testing.T) {
	f := newFixture(t)
	f.happyTicketPath()
	v := f.createEvent(t)

	gone := new(mockCatalog)
	gone.On("Resolve", mock.Anything, f.event.Ref()).Return(nil, domain.NotFoundf("event not found"))
	f.svc.catalog = gone

	got, err := f.svc.Get(context.Background(), v.ID, f.user.ID)
	require.NoError(t, err)
	assert.Nil(t, got.Item)

	body, err := json.Marshal(got)
	require.NoError(t, err)
	assert.Contains(t, string(body), `"event":null`)
}

func TestCancel(t *testing.T) {
	f := newFixture(t)
	f.happyTicketPath()
	v := f.createEvent(t)
	ctx := context.Background()

	assert.ErrorIs(t, f.svc.Cancel(ctx, uuid.New(), f.user.ID), domain.ErrNotFound)

	assert.ErrorIs(t, f.svc.Cancel(ctx, v.ID, uuid.New()), domain.ErrForbidden)
	_, err := f.ledger.FindByID(ctx, v.ID)
	require.NoError(t, err, "forbidden cancel leaves the record intact")

	require.NoError(t, f.svc.Cancel(ctx, v.ID, f.user.ID))
	_, err = f.svc.Get(ctx, v.ID, f.user.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestListMineAndAll(t *testing.T) {
	f := newFixture(t)
	f.happyTicketPath()
	ctx := context.Background()

	first := f.createEvent(t)
	f.now = f.now.Add(time.Minute)
	second, err := f.svc.Create(ctx, CreateRequest{UserID: f.user.ID, ItemType: "hotel", ItemID: f.hotel.ID.String()})
	require.NoError(t, err)

	mine, err := f.svc.ListMine(ctx, f.user.ID)
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, second.ID, mine[0].ID)
	assert.Equal(t, first.ID, mine[1].ID)
	assert.Equal(t, uuid.Nil, mine[0].UserID)

	none, err := f.svc.ListMine(ctx, uuid.New())
	require.NoError(t, err)
	assert.Empty(t, none)

	all, err := f.svc.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, f.user.ID, all[0].UserID)
	assert.False(t, all[0].CreatedAt.IsZero())
	require.NotNil(t, all[0].Purchaser)
	assert.Equal(t, Purchaser{Username: "wanjiku", Email: "wanjiku@example.com"}, *all[0].Purchaser)
	assert.Nil(t, mine[0].Purchaser)

	body, err := json.Marshal(all[0])
	require.NoError(t, err)
	assert.Contains(t, string(body), `"user":{"username":"wanjiku","email":"wanjiku@example.com"}`)
}

func TestListAll_RemovedPurchaser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	gone := uuid.New()
	f.users.On("GetUser", mock.Anything, gone).Return(nil, domain.NotFoundf("user not found"))

	b := domain.NewBooking(gone, f.event.Ref(), decimal.NewFromInt(500), f.event.Date, f.now)
	require.NoError(t, f.ledger.Create(ctx, b))

	all, err := f.svc.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, gone, all[0].UserID)
	assert.Nil(t, all[0].Purchaser)

	body, err := json.Marshal(all[0])
	require.NoError(t, err)
	assert.NotContains(t, string(body), `"user"`)
}

func TestListAll_DirectoryFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	broken := uuid.New()
	f.users.On("GetUser", mock.Anything, broken).Return(nil, errors.New("mongo down"))

	require.NoError(t, f.ledger.Create(ctx, domain.NewBooking(broken, f.hotel.Ref(), decimal.NewFromInt(12000), f.now, f.now)))

	_, err := f.svc.ListAll(ctx)
	assert.EqualError(t, err, "mongo down")
}

func TestCancelAsAdmin(t *testing.T) {
	f := newFixture(t)
	f.happyTicketPath()
	ctx := context.Background()
	v := f.createEvent(t)

	require.NoError(t, f.svc.CancelAsAdmin(ctx, v.ID))
	_, err := f.svc.Get(ctx, v.ID, f.user.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	assert.ErrorIs(t, f.svc.CancelAsAdmin(ctx, v.ID), domain.ErrNotFound)
}

func TestRegenerateTicket(t *testing.T) {
	f := newFixture(t)
	f.renderer.On("Render", mock.Anything, mock.Anything, mock.Anything).Return(nil, domain.RenderError(errors.New("boom"), "render")).Once()
	v := f.createEvent(t)
	require.Empty(t, v.TicketURL)

	f.renderer.On("Render", mock.Anything, f.user, f.event).Return([]byte("%PDF"), nil).Once()
	f.store.On("Store", mock.Anything, "ticket_"+v.ID.String()+".pdf", []byte("%PDF")).Return("/tickets/ticket_"+v.ID.String()+".pdf", nil)

	got, err := f.svc.RegenerateTicket(context.Background(), v.ID, f.user.ID)
	require.NoError(t, err)
	assert.Equal(t, "https://book.example.com/tickets/ticket_"+v.ID.String()+".pdf", got.TicketURL)

	_, err = f.svc.RegenerateTicket(context.Background(), v.ID, uuid.New())
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestRegenerateTicket_ReportsStoreFailure(t *testing.T) {
	f := newFixture(t)
	f.renderer.On("Render", mock.Anything, mock.Anything, mock.Anything).Return([]byte("%PDF"), nil)
	f.store.On("Store", mock.Anything, mock.Anything, mock.Anything).Return("", errors.New("disk full"))
	f.dispatcher.On("DeliverTicket", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	v := f.createEvent(t)

	_, err := f.svc.RegenerateTicket(context.Background(), v.ID, f.user.ID)
	assert.EqualError(t, err, "disk full")
}

func TestViewJSON(t *testing.T) {
	f := newFixture(t)
	f.happyTicketPath()
	v := f.createEvent(t)

	body, err := json.Marshal(v)
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(body, &got))
	assert.Equal(t, "event", got["itemType"])
	assert.Equal(t, "confirmed", got["status"])
	assert.Equal(t, float64(500), got["amount"])
	assert.Contains(t, got, "ticketUrl")
	assert.NotContains(t, got, "userId")
	item, ok := got["event"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Sauti Sol Live", item["title"])
}
