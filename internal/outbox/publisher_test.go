package outbox

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/robertarktes/travel-bookings/internal/adapters/crdb"
	"github.com/robertarktes/travel-bookings/internal/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	records   []crdb.OutboxRecord
	published []uuid.UUID
	failed    []uuid.UUID
}

func (f *fakeStore) GetUnpublishedOutbox(_ context.Context, limit int) ([]crdb.OutboxRecord, error) {
	if len(f.records) > limit {
		return f.records[:limit], nil
	}
	return f.records, nil
}

func (f *fakeStore) MarkPublished(_ context.Context, id uuid.UUID, _ time.Time) error {
	f.published = append(f.published, id)
	return nil
}

func (f *fakeStore) MarkFailed(_ context.Context, id uuid.UUID) error {
	f.failed = append(f.failed, id)
	return nil
}

type fakeBroker struct {
	failKeys map[string]bool
	keys     []string
	msgs     []amqp.Publishing
}

func (f *fakeBroker) Publish(_ context.Context, key string, msg amqp.Publishing) error {
	if f.failKeys[key] {
		return errors.New("channel closed")
	}
	f.keys = append(f.keys, key)
	f.msgs = append(f.msgs, msg)
	return nil
}

type fakeLeaser struct{ held bool }

func (f *fakeLeaser) AcquireLease(context.Context, string, string, time.Duration) (bool, error) {
	return !f.held, nil
}

func testOptions() Options {
	opts := DefaultOptions()
	opts.MaxRetries = 0
	return opts
}

func record(eventType string, age time.Duration) crdb.OutboxRecord {
	id := uuid.New()
	return crdb.OutboxRecord{
		ID:        id,
		EventType: eventType,
		Payload:   []byte(`{"type":"` + eventType + `"}`),
		CreatedAt: time.Now().Add(-age),
		DedupeKey: eventType + ":" + id.String(),
	}
}

func TestRelayOnce_PublishesAndMarks(t *testing.T) {
	store := &fakeStore{records: []crdb.OutboxRecord{
		record("booking.created", time.Minute),
		record("booking.cancelled", time.Second),
	}}
	broker := &fakeBroker{}
	p := NewPublisher(store, broker, nil, testOptions(), observability.NewNopLogger())

	n, err := p.RelayOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []string{"booking.created", "booking.cancelled"}, broker.keys)
	assert.Equal(t, store.records[0].DedupeKey, broker.msgs[0].MessageId)
	assert.Equal(t, "application/json", broker.msgs[0].ContentType)
	assert.Len(t, store.published, 2)
}

func TestRelayOnce_FailedPublishStaysPendingUntilMaxAge(t *testing.T) {
	fresh := record("booking.created", time.Minute)
	stale := record("booking.created", 48*time.Hour)
	store := &fakeStore{records: []crdb.OutboxRecord{stale, fresh}}
	broker := &fakeBroker{failKeys: map[string]bool{"booking.created": true}}
	p := NewPublisher(store, broker, nil, testOptions(), observability.NewNopLogger())

	n, err := p.RelayOnce(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, store.published)
	assert.Equal(t, []uuid.UUID{stale.ID}, store.failed)
}

func TestRelayOnce_SkipsWithoutLease(t *testing.T) {
	store := &fakeStore{records: []crdb.OutboxRecord{record("booking.created", 0)}}
	broker := &fakeBroker{}
	p := NewPublisher(store, broker, &fakeLeaser{held: true}, testOptions(), observability.NewNopLogger())

	n, err := p.RelayOnce(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, broker.keys)
}
