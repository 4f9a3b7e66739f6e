package outbox

import (
	"context"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/robertarktes/travel-bookings/internal/adapters/crdb"
	"github.com/robertarktes/travel-bookings/internal/observability"
)

type Store interface {
	GetUnpublishedOutbox(ctx context.Context, limit int) ([]crdb.OutboxRecord, error)
	MarkPublished(ctx context.Context, id uuid.UUID, publishedAt time.Time) error
	MarkFailed(ctx context.Context, id uuid.UUID) error
}

type Broker interface {
	Publish(ctx context.Context, key string, msg amqp.Publishing) error
}

// Leaser keeps a single relay active across replicas.
type Leaser interface {
	AcquireLease(ctx context.Context, name, owner string, ttl time.Duration) (bool, error)
}

type Options struct {
	Interval   time.Duration
	BatchSize  int
	MaxRetries int
	// MaxAge after which an unpublishable record is parked as FAILED.
	MaxAge time.Duration
}

func DefaultOptions() Options {
	return Options{
		Interval:   5 * time.Second,
		BatchSize:  10,
		MaxRetries: 3,
		MaxAge:     24 * time.Hour,
	}
}

type Publisher struct {
	store  Store
	broker Broker
	leaser Leaser
	owner  string
	opts   Options
	logger observability.Logger
	now    func() time.Time
}

func NewPublisher(store Store, broker Broker, leaser Leaser, opts Options, logger observability.Logger) *Publisher {
	return &Publisher{
		store:  store,
		broker: broker,
		leaser: leaser,
		owner:  uuid.NewString(),
		opts:   opts,
		logger: logger,
		now:    time.Now,
	}
}

func (p *Publisher) Run(ctx context.Context) {
	ticker := time.NewTicker(p.opts.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := p.RelayOnce(ctx); err != nil {
				p.logger.Error("outbox relay failed", err)
			}
		}
	}
}

// RelayOnce publishes one batch and returns how many records were published.
func (p *Publisher) RelayOnce(ctx context.Context) (int, error) {
	if p.leaser != nil {
		ok, err := p.leaser.AcquireLease(ctx, "outbox-publisher", p.owner, 3*p.opts.Interval)
		if err != nil {
			return 0, err
		}
		if !ok {
			return 0, nil
		}
	}

	records, err := p.store.GetUnpublishedOutbox(ctx, p.opts.BatchSize)
	if err != nil {
		return 0, err
	}
	if len(records) > 0 {
		observability.OutboxLag.Set(p.now().Sub(records[0].CreatedAt).Seconds())
	} else {
		observability.OutboxLag.Set(0)
	}

	published := 0
	for _, rec := range records {
		msg := amqp.Publishing{
			MessageId:    rec.DedupeKey,
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    rec.CreatedAt,
			Type:         rec.EventType,
			Body:         rec.Payload,
		}
		if err := p.publish(ctx, rec.EventType, msg); err != nil {
			p.logger.WithField("outbox_id", rec.ID.String()).Error("failed to publish outbox record", err)
			if p.opts.MaxAge > 0 && p.now().Sub(rec.CreatedAt) > p.opts.MaxAge {
				if err := p.store.MarkFailed(ctx, rec.ID); err != nil {
					return published, err
				}
			}
			continue
		}
		if err := p.store.MarkPublished(ctx, rec.ID, p.now()); err != nil {
			return published, err
		}
		published++
	}
	return published, nil
}

func (p *Publisher) publish(ctx context.Context, key string, msg amqp.Publishing) error {
	var err error
	for attempt := 0; attempt <= p.opts.MaxRetries; attempt++ {
		if attempt > 0 {
			observability.RabbitPublishRetries.Inc()
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(attempt) * 100 * time.Millisecond):
			}
		}
		if err = p.broker.Publish(ctx, key, msg); err == nil {
			return nil
		}
	}
	return err
}
