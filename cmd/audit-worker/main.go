package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	mongoadapter "github.com/robertarktes/travel-bookings/internal/adapters/mongo"
	"github.com/robertarktes/travel-bookings/internal/adapters/rabbit"
	"github.com/robertarktes/travel-bookings/internal/config"
	"github.com/robertarktes/travel-bookings/internal/domain"
	"github.com/robertarktes/travel-bookings/internal/observability"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	auditQueue   = "bookings.audit.q"
	auditPattern = "booking.*"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	shutdownOtel, err := observability.SetupOTel(context.Background(), cfg, "bookings-audit-worker")
	if err != nil {
		log.Fatalf("failed to setup otel: %v", err)
	}
	defer shutdownOtel()

	logger := observability.NewLogger(cfg.LogLevel)

	mongoClient, err := mongo.Connect(context.Background(), options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		log.Fatalf("failed to connect to mongo: %v", err)
	}
	defer mongoClient.Disconnect(context.Background())
	audit := mongoadapter.NewAuditLogger(mongoClient.Database(cfg.MongoDB), logger)

	conn, err := amqp.Dial(cfg.RabbitURL)
	if err != nil {
		log.Fatalf("failed to connect to rabbitmq: %v", err)
	}
	defer conn.Close()
	consumer, err := rabbit.NewConsumer(conn, auditQueue, auditPattern)
	if err != nil {
		log.Fatalf("failed to create consumer: %v", err)
	}
	defer consumer.Close()

	deliveries, err := consumer.Consume()
	if err != nil {
		log.Fatalf("failed to consume: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	worker := NewAuditWorker(audit, logger)
	logger.Info("Audit worker started")
	worker.Run(ctx, deliveries)
	logger.Info("Shutdown audit worker")
}

type AuditSink interface {
	LogBookingEvent(ctx context.Context, ev domain.BookingEvent) error
}

type AuditWorker struct {
	sink    AuditSink
	logger  observability.Logger
	backoff time.Duration
}

func NewAuditWorker(sink AuditSink, logger observability.Logger) *AuditWorker {
	return &AuditWorker{sink: sink, logger: logger, backoff: time.Second}
}

func (w *AuditWorker) Run(ctx context.Context, deliveries <-chan amqp.Delivery) {
	for {
		select {
		case <-ctx.Done():
			return
		case d, ok := <-deliveries:
			if !ok {
				w.logger.Warn("delivery channel closed")
				return
			}
			w.handle(ctx, d)
		}
	}
}

// handle acks recorded and malformed events and requeues events the sink
// failed to store.
func (w *AuditWorker) handle(ctx context.Context, d amqp.Delivery) {
	var ev domain.BookingEvent
	if err := json.Unmarshal(d.Body, &ev); err != nil {
		w.logger.WithField("message_id", d.MessageId).WithError(err).Error("dropping malformed booking event")
		d.Nack(false, false)
		return
	}

	if err := w.processWithRetry(ctx, ev); err != nil {
		w.logger.WithField("message_id", d.MessageId).WithError(err).Error("failed to record booking event after retries")
		d.Nack(false, true)
		return
	}
	d.Ack(false)
}

func (w *AuditWorker) processWithRetry(ctx context.Context, ev domain.BookingEvent) error {
	const maxRetries = 3
	var err error
	for i := 0; i < maxRetries; i++ {
		if err = w.sink.LogBookingEvent(ctx, ev); err == nil {
			return nil
		}
		backoff := time.Duration(1<<i) * w.backoff
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}
	return err
}
