// Package docstore defines a small realtime document store: named
// collections of schemaless documents, partial updates with field removal
// and server-assigned timestamps, and subscriptions that receive the full
// ordered collection after every change.
package docstore

import (
	"context"
	"errors"
	"time"
)

// Sentinel errors returned by every Store implementation.
var (
	ErrNotFound      = errors.New("document not found")
	ErrAlreadyExists = errors.New("document already exists")
	ErrClosed        = errors.New("store closed")
	ErrInvalidID     = errors.New("invalid document id")
)

// Document is a single stored record. Field values are limited to string,
// bool, int64, float64, time.Time, []any and map[string]any.
type Document struct {
	ID     string
	Fields map[string]any
}

// Query selects a whole collection in a given order.
type Query struct {
	Collection string
	OrderBy    string
	Descending bool
}

// Update sets a single top-level field. Value may be Delete or
// ServerTimestamp.
type Update struct {
	Path  string
	Value any
}

type deleteField struct{}

type serverTimestamp struct{}

// Delete removes the field it is assigned to.
var Delete any = deleteField{}

// ServerTimestamp is replaced by the store's clock at write time.
var ServerTimestamp any = serverTimestamp{}

// IsDelete reports whether v is the Delete sentinel.
func IsDelete(v any) bool {
	_, ok := v.(deleteField)
	return ok
}

// IsServerTimestamp reports whether v is the ServerTimestamp sentinel.
func IsServerTimestamp(v any) bool {
	_, ok := v.(serverTimestamp)
	return ok
}

// Unsubscribe stops a subscription. It does not wait for an in-flight
// handler to return.
type Unsubscribe func()

// Store is a realtime document store.
type Store interface {
	// Subscribe delivers the ordered collection once immediately and again
	// after every change. Handler calls for one subscription never overlap.
	Subscribe(ctx context.Context, q Query, onSnapshot func([]Document), onError func(error)) (Unsubscribe, error)
	Get(ctx context.Context, collection, id string) (Document, error)
	// Create stores a new document. An empty id asks the store to generate
	// one. Create never overwrites: ErrAlreadyExists is returned instead.
	Create(ctx context.Context, collection, id string, fields map[string]any) (string, error)
	// Update applies all updates atomically or none of them.
	Update(ctx context.Context, collection, id string, updates []Update) error
	Delete(ctx context.Context, collection, id string) error
	Close() error
}

// Options holds settings shared by the store backends.
type Options struct {
	Now func() time.Time
}

// Option configures a store backend.
type Option func(*Options)

// WithClock overrides the clock used to resolve ServerTimestamp.
func WithClock(now func() time.Time) Option {
	return func(o *Options) { o.Now = now }
}

// BuildOptions applies opts over the defaults.
func BuildOptions(opts []Option) Options {
	o := Options{Now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Fetch returns a single snapshot of the query by subscribing and
// unsubscribing after the first delivery.
func Fetch(ctx context.Context, s Store, q Query) ([]Document, error) {
	type result struct {
		docs []Document
		err  error
	}
	ch := make(chan result, 1)
	deliver := func(r result) {
		select {
		case ch <- r:
		default:
		}
	}

	unsub, err := s.Subscribe(ctx, q,
		func(docs []Document) { deliver(result{docs: docs}) },
		func(err error) { deliver(result{err: err}) },
	)
	if err != nil {
		return nil, err
	}
	defer unsub()

	select {
	case r := <-ch:
		return r.docs, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
