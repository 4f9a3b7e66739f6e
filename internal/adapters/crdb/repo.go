package crdb

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/robertarktes/travel-bookings/internal/domain"
	"github.com/robertarktes/travel-bookings/internal/observability"
	"github.com/shopspring/decimal"
)

const (
	SerializationFailureCode = "40001"
	UniqueViolationCode      = "23505"
)

const bookingColumns = `id, user_id, item_type, item_ref, amount::TEXT, booking_date, status, ticket_location, created_at`

// Repository is the booking ledger backed by CockroachDB.
type Repository struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool, now: time.Now}
}

func (r *Repository) WithTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	start := time.Now()
	defer func() { observability.DBTxDuration.Observe(time.Since(start).Seconds()) }()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, "SET TRANSACTION ISOLATION LEVEL SERIALIZABLE")
	if err != nil {
		return err
	}

	err = fn(tx)
	if err != nil {
		return mapPgError(err)
	}

	return mapPgError(tx.Commit(ctx))
}

func mapPgError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == SerializationFailureCode {
		return domain.ErrSerializationFailure
	}
	return err
}

// Create persists a confirmed booking and its outbox event. A second
// confirmed booking for the same (user, type, item) is rejected by the
// partial unique index.
func (r *Repository) Create(ctx context.Context, b domain.Booking) error {
	if err := b.Validate(); err != nil {
		return err
	}
	if b.CreatedAt.IsZero() {
		b.CreatedAt = r.now()
	}
	record, err := newBookingOutboxRecord(domain.EventBookingCreated, b, r.now())
	if err != nil {
		return err
	}

	return r.WithTx(ctx, func(tx pgx.Tx) error {
		result, err := tx.Exec(ctx, `
			INSERT INTO bookings (id, user_id, item_type, item_ref, amount, booking_date, status, ticket_location, created_at)
			VALUES ($1, $2, $3, $4, $5::DECIMAL, $6, $7, $8, $9)
			ON CONFLICT (user_id, item_type, item_ref) WHERE status = 'confirmed' DO NOTHING
		`, b.ID, b.UserID, string(b.Item.Type), b.Item.ID, b.Amount.String(), b.BookingDate,
			string(b.Status), nullString(b.TicketLocation), b.CreatedAt)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == UniqueViolationCode {
				return &domain.DuplicateBookingError{Type: b.Item.Type}
			}
			return err
		}
		if result.RowsAffected() == 0 {
			return &domain.DuplicateBookingError{Type: b.Item.Type}
		}
		return r.InsertOutbox(ctx, tx, record)
	})
}

// Exists reports whether the user has any booking row for the item,
// regardless of status.
func (r *Repository) Exists(ctx context.Context, userID uuid.UUID, item domain.ItemRef) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM bookings WHERE user_id = $1 AND item_type = $2 AND item_ref = $3
		)
	`, userID, string(item.Type), item.ID).Scan(&exists)
	return exists, err
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Booking, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, id)
	b, err := scanBooking(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.NotFoundf("booking not found")
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *Repository) FindByUser(ctx context.Context, userID uuid.UUID) ([]domain.Booking, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+bookingColumns+` FROM bookings WHERE user_id = $1 ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	return collectBookings(rows)
}

func (r *Repository) FindAll(ctx context.Context) ([]domain.Booking, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+bookingColumns+` FROM bookings ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	return collectBookings(rows)
}

func (r *Repository) SetTicketLocation(ctx context.Context, id uuid.UUID, location string) error {
	result, err := r.pool.Exec(ctx, `
		UPDATE bookings SET ticket_location = $2 WHERE id = $1
	`, id, location)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return domain.NotFoundf("booking not found")
	}
	return nil
}

// Delete removes the booking and records a cancellation event in the same
// transaction.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.WithTx(ctx, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx, `DELETE FROM bookings WHERE id = $1 RETURNING `+bookingColumns, id)
		b, err := scanBooking(row)
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.NotFoundf("booking not found")
		}
		if err != nil {
			return err
		}
		b.Status = domain.BookingStatusCancelled
		record, err := newBookingOutboxRecord(domain.EventBookingCancelled, b, r.now())
		if err != nil {
			return err
		}
		return r.InsertOutbox(ctx, tx, record)
	})
}

func (r *Repository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

func scanBooking(row pgx.Row) (domain.Booking, error) {
	var (
		b              domain.Booking
		itemType       string
		amount         string
		status         string
		ticketLocation *string
	)
	err := row.Scan(&b.ID, &b.UserID, &itemType, &b.Item.ID, &amount, &b.BookingDate, &status, &ticketLocation, &b.CreatedAt)
	if err != nil {
		return domain.Booking{}, err
	}
	b.Item.Type = domain.ItemType(itemType)
	b.Status = domain.BookingStatus(status)
	if ticketLocation != nil {
		b.TicketLocation = *ticketLocation
	}
	b.Amount, err = decimal.NewFromString(amount)
	if err != nil {
		return domain.Booking{}, errors.Wrapf(err, "booking %s: bad amount %q", b.ID, amount)
	}
	return b, nil
}

func collectBookings(rows pgx.Rows) ([]domain.Booking, error) {
	defer rows.Close()

	bookings := []domain.Booking{}
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
