package mongo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/robertarktes/travel-bookings/internal/domain"
	"github.com/robertarktes/travel-bookings/internal/observability"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

type AuditLogger struct {
	coll   *mongo.Collection
	logger observability.Logger
}

func NewAuditLogger(db *mongo.Database, logger observability.Logger) *AuditLogger {
	return &AuditLogger{
		coll:   db.Collection("audit_logs"),
		logger: logger,
	}
}

// bookingEventNamespace seeds the name-based ids of booking audit entries.
var bookingEventNamespace = uuid.MustParse("5b0c6f4e-8f3a-4d6e-9b1c-2a7d3e9f0c41")

type AuditLog struct {
	ID        uuid.UUID `bson:"_id"`
	Action    string    `bson:"action"`
	UserID    uuid.UUID `bson:"user_id"`
	Timestamp time.Time `bson:"timestamp"`
	Data      bson.M    `bson:"data"`
}

func (a *AuditLogger) LogEvent(ctx context.Context, action string, userID uuid.UUID, data map[string]interface{}) error {
	return a.insert(ctx, uuid.New(), action, userID, data)
}

func (a *AuditLogger) insert(ctx context.Context, id uuid.UUID, action string, userID uuid.UUID, data map[string]interface{}) error {
	log := AuditLog{
		ID:        id,
		Action:    action,
		UserID:    userID,
		Timestamp: time.Now(),
		Data:      bson.M(data),
	}
	_, err := a.coll.InsertOne(ctx, log)
	if mongo.IsDuplicateKeyError(err) {
		a.logger.WithField("audit_id", id.String()).Debug("audit entry already recorded")
		return nil
	}
	if err != nil {
		a.logger.Error("failed to insert audit log", err)
		return err
	}
	return nil
}

func bookingAuditID(ev domain.BookingEvent) uuid.UUID {
	return uuid.NewSHA1(bookingEventNamespace, []byte(ev.DedupeKey()))
}

// LogBookingEvent records a relayed booking lifecycle event once. Redelivered
// copies map to the same entry id and are ignored.
func (a *AuditLogger) LogBookingEvent(ctx context.Context, ev domain.BookingEvent) error {
	data := map[string]interface{}{
		"booking_id":   ev.BookingID.String(),
		"item_type":    string(ev.ItemType),
		"item_ref":     ev.ItemRef.String(),
		"amount":       ev.Amount,
		"booking_date": ev.BookingDate.Format(time.RFC3339),
		"status":       string(ev.Status),
		"occurred_at":  ev.OccurredAt.Format(time.RFC3339),
	}
	return a.insert(ctx, bookingAuditID(ev), ev.Type, ev.UserID, data)
}
