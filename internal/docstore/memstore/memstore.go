// Package memstore is an in-process docstore.Store. Nothing is persisted;
// it backs tests and the "memory" store backend.
package memstore

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/twiced-technology-gmbh/ticketboard/internal/docstore"
)

// Store keeps documents in memory.
type Store struct {
	opts docstore.Options
	hub  *docstore.Hub

	mu     sync.RWMutex
	colls  map[string]map[string]map[string]any
	closed bool
}

var _ docstore.Store = (*Store)(nil)

// New creates an empty store.
func New(opts ...docstore.Option) *Store {
	s := &Store{
		opts:  docstore.BuildOptions(opts),
		colls: make(map[string]map[string]map[string]any),
	}
	s.hub = docstore.NewHub(s.list)
	return s
}

func (s *Store) list(_ context.Context, collection string) ([]docstore.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, docstore.ErrClosed
	}
	coll := s.colls[collection]
	docs := make([]docstore.Document, 0, len(coll))
	for id, fields := range coll {
		docs = append(docs, docstore.Document{ID: id, Fields: docstore.CloneFields(fields)})
	}
	return docs, nil
}

// Subscribe implements docstore.Store.
func (s *Store) Subscribe(ctx context.Context, q docstore.Query, onSnapshot func([]docstore.Document), onError func(error)) (docstore.Unsubscribe, error) {
	return s.hub.Subscribe(ctx, q, onSnapshot, onError)
}

// Get implements docstore.Store.
func (s *Store) Get(_ context.Context, collection, id string) (docstore.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return docstore.Document{}, docstore.ErrClosed
	}
	fields, ok := s.colls[collection][id]
	if !ok {
		return docstore.Document{}, docstore.ErrNotFound
	}
	return docstore.Document{ID: id, Fields: docstore.CloneFields(fields)}, nil
}

// Create implements docstore.Store.
func (s *Store) Create(_ context.Context, collection, id string, fields map[string]any) (string, error) {
	if err := docstore.ValidateID(collection); err != nil {
		return "", err
	}
	if id == "" {
		id = uuid.NewString()
	}
	if err := docstore.ValidateID(id); err != nil {
		return "", err
	}
	resolved, err := docstore.Resolve(fields, s.opts.Now())
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return "", docstore.ErrClosed
	}
	coll, ok := s.colls[collection]
	if !ok {
		coll = make(map[string]map[string]any)
		s.colls[collection] = coll
	}
	if _, exists := coll[id]; exists {
		s.mu.Unlock()
		return "", docstore.ErrAlreadyExists
	}
	coll[id] = resolved
	s.mu.Unlock()

	s.hub.Notify(collection)
	return id, nil
}

// Update implements docstore.Store.
func (s *Store) Update(_ context.Context, collection, id string, updates []docstore.Update) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return docstore.ErrClosed
	}
	fields, ok := s.colls[collection][id]
	if !ok {
		s.mu.Unlock()
		return docstore.ErrNotFound
	}
	next, err := docstore.ApplyUpdates(fields, updates, s.opts.Now())
	if err != nil {
		s.mu.Unlock()
		return err
	}
	s.colls[collection][id] = next
	s.mu.Unlock()

	s.hub.Notify(collection)
	return nil
}

// Delete implements docstore.Store.
func (s *Store) Delete(_ context.Context, collection, id string) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return docstore.ErrClosed
	}
	if _, ok := s.colls[collection][id]; !ok {
		s.mu.Unlock()
		return docstore.ErrNotFound
	}
	delete(s.colls[collection], id)
	s.mu.Unlock()

	s.hub.Notify(collection)
	return nil
}

// Close implements docstore.Store.
func (s *Store) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.hub.Close()
	return nil
}
