package idempotency

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	redisadapter "github.com/robertarktes/travel-bookings/internal/adapters/redis"
)

// ErrInFlight is returned by Begin while an identical request is running.
var ErrInFlight = errors.New("request with this idempotency key is in progress")

// lockTTL bounds how long a crashed request can block its key.
const lockTTL = 30 * time.Second

type Store interface {
	Get(ctx context.Context, key string) (*redisadapter.StoredResponse, error)
	Set(ctx context.Context, key string, resp redisadapter.StoredResponse, ttl time.Duration) error
	Reserve(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}

type Idempotency struct {
	store Store
	ttl   time.Duration
}

func NewIdempotency(store Store, ttl time.Duration) *Idempotency {
	return &Idempotency{store: store, ttl: ttl}
}

type Response struct {
	Status int
	Body   []byte
}

// Key scopes a client-supplied key to its caller so two users cannot replay
// each other's responses.
func Key(scope, clientKey string) string {
	return scope + ":" + clientKey
}

func (i *Idempotency) Get(ctx context.Context, key string) (*Response, error) {
	stored, err := i.store.Get(ctx, key)
	if err != nil || stored == nil {
		return nil, err
	}
	return &Response{Status: stored.Status, Body: stored.Body}, nil
}

func (i *Idempotency) Begin(ctx context.Context, key string) error {
	ok, err := i.store.Reserve(ctx, key, lockTTL)
	if err != nil {
		return err
	}
	if !ok {
		return ErrInFlight
	}
	return nil
}

// Complete caches resp for replay and releases the in-flight marker. Only
// non-5xx responses are cached.
func (i *Idempotency) Complete(ctx context.Context, key string, resp Response) error {
	defer i.store.Release(ctx, key)
	if resp.Status >= 500 {
		return nil
	}
	return i.store.Set(ctx, key, redisadapter.StoredResponse{Status: resp.Status, Body: resp.Body}, i.ttl)
}
