package ticket

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/twiced-technology-gmbh/ticketboard/internal/clierr"
	"github.com/twiced-technology-gmbh/ticketboard/internal/docstore"
)

// Store maps tickets onto the tickets collection of a document store.
type Store struct {
	docs docstore.Store
}

// NewStore wraps a document store.
func NewStore(docs docstore.Store) *Store {
	return &Store{docs: docs}
}

// Query is the board's subscription: every ticket, oldest first.
var Query = docstore.Query{Collection: Collection, OrderBy: fieldCreatedAt}

// Subscribe delivers the full ordered ticket list on every change.
// Malformed documents are logged and left out of the snapshot. Feed
// failures reach onError as STORE_SUBSCRIPTION_FAILED.
func (s *Store) Subscribe(ctx context.Context, onSnapshot func([]*Ticket), onError func(error)) (docstore.Unsubscribe, error) {
	unsub, err := s.docs.Subscribe(ctx, Query,
		func(docs []docstore.Document) {
			tickets, warnings := DecodeAll(docs)
			for _, w := range warnings {
				log.Warn().Err(w.Err).Str("id", w.ID).Msg("skipping malformed ticket")
			}
			onSnapshot(tickets)
		},
		func(err error) {
			if onError != nil {
				onError(clierr.Wrap(clierr.StoreSubscriptionFailed, err, "ticket feed failed"))
			}
		},
	)
	if err != nil {
		return nil, clierr.Wrap(clierr.StoreSubscriptionFailed, err, "subscribing to tickets")
	}
	return unsub, nil
}

// Exists asks the store directly whether id is taken.
func (s *Store) Exists(ctx context.Context, id string) (bool, error) {
	_, err := s.docs.Get(ctx, Collection, id)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, docstore.ErrNotFound):
		return false, nil
	default:
		return false, err
	}
}

// Get reads one ticket straight from the store.
func (s *Store) Get(ctx context.Context, id string) (*Ticket, error) {
	doc, err := s.docs.Get(ctx, Collection, id)
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return nil, NotFound(id)
		}
		return nil, err
	}
	return Decode(doc)
}

// Create writes a new ticket and returns its id. A caller-chosen id is
// checked first and never overwritten.
func (s *Store) Create(ctx context.Context, t *Ticket) (string, error) {
	if t.ID != "" {
		taken, err := s.Exists(ctx, t.ID)
		if err != nil {
			return "", clierr.Wrap(clierr.StoreWriteFailed, err, "creating ticket %s", t.ID)
		}
		if taken {
			return "", idConflict(t.ID, docstore.ErrAlreadyExists)
		}
	}

	id, err := s.docs.Create(ctx, Collection, t.ID, Encode(t))
	if err != nil {
		if errors.Is(err, docstore.ErrAlreadyExists) {
			return "", idConflict(t.ID, err)
		}
		return "", clierr.Wrap(clierr.StoreWriteFailed, err, "creating ticket %s", t.ID)
	}
	return id, nil
}

func idConflict(id string, cause error) error {
	inner := clierr.Wrap(clierr.IDConflict, cause, "ticket id %s is already taken", id).
		WithDetails(map[string]any{"id": id})
	return clierr.Wrap(clierr.StoreWriteFailed, inner, "creating ticket %s", id)
}

// Patch applies a partial update as a single atomic write. An empty patch
// writes nothing.
func (s *Store) Patch(ctx context.Context, id string, p Patch) error {
	updates := p.Updates()
	if len(updates) == 0 {
		return nil
	}
	if err := s.docs.Update(ctx, Collection, id, updates); err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return clierr.Wrap(clierr.StoreWriteFailed, NotFound(id), "updating ticket %s", id)
		}
		return clierr.Wrap(clierr.StoreWriteFailed, err, "updating ticket %s", id)
	}
	return nil
}

// Remove deletes a ticket. Removing a ticket that is already gone succeeds.
func (s *Store) Remove(ctx context.Context, id string) error {
	err := s.docs.Delete(ctx, Collection, id)
	if err == nil || errors.Is(err, docstore.ErrNotFound) {
		return nil
	}
	return clierr.Wrap(clierr.StoreWriteFailed, err, "deleting ticket %s", id)
}
