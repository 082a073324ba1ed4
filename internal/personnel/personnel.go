// Package personnel keeps the list of people tickets can be assigned to.
package personnel

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/twiced-technology-gmbh/ticketboard/internal/clierr"
	"github.com/twiced-technology-gmbh/ticketboard/internal/docstore"
	"github.com/twiced-technology-gmbh/ticketboard/internal/ticket"
)

const (
	fieldName      = "name"
	fieldCreatedAt = "createdAt"
)

// Query is the directory subscription: oldest entry first.
var Query = docstore.Query{Collection: ticket.PersonnelCollection, OrderBy: fieldCreatedAt}

// Personnel is one assignable person.
type Personnel struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

// Directory mirrors the personnel collection.
type Directory struct {
	docs docstore.Store

	mu      sync.RWMutex
	people  []Personnel
	loading bool
	err     error
	unsub   docstore.Unsubscribe
	onEvent func()
}

// NewDirectory creates a directory over docs. Call Start to subscribe.
func NewDirectory(docs docstore.Store) *Directory {
	return &Directory{docs: docs, loading: true}
}

// OnChange registers fn to run after every snapshot or feed failure.
func (d *Directory) OnChange(fn func()) {
	d.mu.Lock()
	d.onEvent = fn
	d.mu.Unlock()
}

// Start subscribes to the collection.
func (d *Directory) Start(ctx context.Context) error {
	unsub, err := d.docs.Subscribe(ctx, Query, d.apply, d.fail)
	if err != nil {
		err = clierr.Wrap(clierr.StoreSubscriptionFailed, err, "subscribing to personnel")
		d.fail(err)
		return err
	}
	d.mu.Lock()
	d.unsub = unsub
	d.mu.Unlock()
	return nil
}

// Stop ends the subscription.
func (d *Directory) Stop() {
	d.mu.Lock()
	unsub := d.unsub
	d.unsub = nil
	d.mu.Unlock()
	if unsub != nil {
		unsub()
	}
}

func (d *Directory) apply(docs []docstore.Document) {
	people := make([]Personnel, 0, len(docs))
	for _, doc := range docs {
		p, err := Decode(doc)
		if err != nil {
			log.Warn().Err(err).Str("id", doc.ID).Msg("skipping malformed personnel entry")
			continue
		}
		people = append(people, p)
	}

	d.mu.Lock()
	d.people = people
	d.loading = false
	d.err = nil
	fn := d.onEvent
	d.mu.Unlock()
	if fn != nil {
		fn()
	}
}

func (d *Directory) fail(err error) {
	if !clierr.Is(err, clierr.StoreSubscriptionFailed) {
		err = clierr.Wrap(clierr.StoreSubscriptionFailed, err, "failed to load personnel")
	}
	log.Error().Err(err).Msg("personnel subscription failed")

	d.mu.Lock()
	d.err = err
	d.loading = false
	fn := d.onEvent
	d.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// List returns the current entries, oldest first.
func (d *Directory) List() []Personnel {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]Personnel{}, d.people...)
}

// Names returns the entry names in directory order.
func (d *Directory) Names() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	names := make([]string, len(d.people))
	for i, p := range d.people {
		names[i] = p.Name
	}
	return names
}

// Loading reports whether no snapshot or failure has arrived yet.
func (d *Directory) Loading() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.loading
}

// Err returns the last feed failure, cleared by the next snapshot.
func (d *Directory) Err() error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.err
}

// Add creates an entry. Names are trimmed and must not be empty.
func (d *Directory) Add(ctx context.Context, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ticket.ValidationError("name", "personnel name is required")
	}
	id, err := d.docs.Create(ctx, ticket.PersonnelCollection, "", map[string]any{
		fieldName:      name,
		fieldCreatedAt: docstore.ServerTimestamp,
	})
	if err != nil {
		log.Error().Err(err).Str("name", name).Msg("add personnel failed")
		return "", clierr.Wrap(clierr.StoreWriteFailed, err, "adding personnel %q", name)
	}
	return id, nil
}

// Ensure adds name unless an entry with that name (ignoring case) is
// already listed. It reports whether an entry was created.
func (d *Directory) Ensure(ctx context.Context, name string) (bool, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return false, nil
	}
	for _, known := range d.Names() {
		if strings.EqualFold(known, name) {
			return false, nil
		}
	}
	if _, err := d.Add(ctx, name); err != nil {
		return false, err
	}
	return true, nil
}

// Decode maps a stored document onto Personnel. A missing creation time is
// left zero; a non-string name is rejected.
func Decode(doc docstore.Document) (Personnel, error) {
	p := Personnel{ID: doc.ID}
	switch v := doc.Fields[fieldName].(type) {
	case string:
		p.Name = v
	case nil:
	default:
		return Personnel{}, errors.New("name: expected string")
	}
	if v, ok := doc.Fields[fieldCreatedAt].(time.Time); ok {
		p.CreatedAt = v
	}
	return p, nil
}
