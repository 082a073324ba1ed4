// Package filestore is a docstore.Store kept in a directory tree: one
// subdirectory per collection and one YAML file per document. Changes made
// by other processes are picked up through a file system watcher.
package filestore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/twiced-technology-gmbh/ticketboard/internal/docstore"
	"github.com/twiced-technology-gmbh/ticketboard/internal/filelock"
	"github.com/twiced-technology-gmbh/ticketboard/internal/watcher"
)

const (
	dirMode  = 0o750
	fileMode = 0o600
	docExt   = ".yml"
	lockName = ".lock"
)

// Store is a directory-backed document store.
type Store struct {
	root string
	opts docstore.Options
	hub  *docstore.Hub

	// writeMu serialises writers within this process; the file lock covers
	// other processes.
	writeMu sync.Mutex

	watcher *watcher.Watcher
	cancel  context.CancelFunc

	mu     sync.Mutex
	closed bool
}

var _ docstore.Store = (*Store)(nil)

// Open opens (creating if needed) a store rooted at dir and starts watching
// it for external changes.
func Open(dir string, opts ...docstore.Option) (*Store, error) {
	root, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving store path: %w", err)
	}
	if err := os.MkdirAll(root, dirMode); err != nil {
		return nil, fmt.Errorf("creating store directory: %w", err)
	}

	s := &Store{root: root, opts: docstore.BuildOptions(opts)}
	s.hub = docstore.NewHub(s.list)

	w, err := watcher.New([]string{root}, s.hub.NotifyAll)
	if err != nil {
		return nil, fmt.Errorf("watching store directory: %w", err)
	}
	s.watcher = w

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	go w.Run(ctx, func(err error) {
		log.Error().Err(err).Str("root", root).Msg("store watcher failed")
		s.hub.Fail(fmt.Errorf("watching %s: %w", root, err))
	})

	return s, nil
}

// Root returns the absolute store directory.
func (s *Store) Root() string { return s.root }

func (s *Store) collectionDir(collection string) string {
	return filepath.Join(s.root, collection)
}

func (s *Store) docPath(collection, id string) string {
	return filepath.Join(s.root, collection, id+docExt)
}

func (s *Store) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Store) list(_ context.Context, collection string) ([]docstore.Document, error) {
	if s.isClosed() {
		return nil, docstore.ErrClosed
	}
	entries, err := os.ReadDir(s.collectionDir(collection))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []docstore.Document{}, nil
		}
		return nil, fmt.Errorf("reading collection %s: %w", collection, err)
	}

	docs := make([]docstore.Document, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") || !strings.HasSuffix(name, docExt) {
			continue
		}
		id := strings.TrimSuffix(name, docExt)
		fields, err := s.read(collection, id)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue // removed between ReadDir and read
			}
			log.Warn().Err(err).Str("collection", collection).Str("id", id).Msg("skipping unreadable document")
			continue
		}
		docs = append(docs, docstore.Document{ID: id, Fields: fields})
	}
	return docs, nil
}

func (s *Store) read(collection, id string) (map[string]any, error) {
	data, err := os.ReadFile(s.docPath(collection, id)) //nolint:gosec // path built from validated ids
	if err != nil {
		return nil, err
	}
	return docstore.Unmarshal(data)
}

// write replaces a document file atomically.
func (s *Store) write(collection, id string, fields map[string]any) error {
	data, err := docstore.Marshal(fields)
	if err != nil {
		return err
	}
	dir := s.collectionDir(collection)
	tmp, err := os.CreateTemp(dir, "."+id+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	if err := os.Chmod(tmpName, fileMode); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, s.docPath(collection, id)); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	return nil
}

// locked runs fn while holding both the in-process and cross-process write locks.
func (s *Store) locked(fn func() error) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	unlock, err := filelock.Lock(filepath.Join(s.root, lockName))
	if err != nil {
		return fmt.Errorf("locking store: %w", err)
	}
	defer func() { _ = unlock() }()
	return fn()
}

// Subscribe implements docstore.Store.
func (s *Store) Subscribe(ctx context.Context, q docstore.Query, onSnapshot func([]docstore.Document), onError func(error)) (docstore.Unsubscribe, error) {
	if s.isClosed() {
		return nil, docstore.ErrClosed
	}
	if err := docstore.ValidateID(q.Collection); err != nil {
		return nil, err
	}
	dir := s.collectionDir(q.Collection)
	if err := os.MkdirAll(dir, dirMode); err != nil {
		return nil, fmt.Errorf("creating collection %s: %w", q.Collection, err)
	}
	if err := s.watcher.Add(dir); err != nil {
		return nil, fmt.Errorf("watching collection %s: %w", q.Collection, err)
	}
	return s.hub.Subscribe(ctx, q, onSnapshot, onError)
}

// Get implements docstore.Store.
func (s *Store) Get(_ context.Context, collection, id string) (docstore.Document, error) {
	if s.isClosed() {
		return docstore.Document{}, docstore.ErrClosed
	}
	if err := validate(collection, id); err != nil {
		return docstore.Document{}, err
	}
	fields, err := s.read(collection, id)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return docstore.Document{}, docstore.ErrNotFound
		}
		return docstore.Document{}, err
	}
	return docstore.Document{ID: id, Fields: fields}, nil
}

// Create implements docstore.Store.
func (s *Store) Create(_ context.Context, collection, id string, fields map[string]any) (string, error) {
	if s.isClosed() {
		return "", docstore.ErrClosed
	}
	if id == "" {
		id = uuid.NewString()
	}
	if err := validate(collection, id); err != nil {
		return "", err
	}
	resolved, err := docstore.Resolve(fields, s.opts.Now())
	if err != nil {
		return "", err
	}

	err = s.locked(func() error {
		if err := os.MkdirAll(s.collectionDir(collection), dirMode); err != nil {
			return err
		}
		if _, err := os.Stat(s.docPath(collection, id)); err == nil {
			return docstore.ErrAlreadyExists
		} else if !errors.Is(err, os.ErrNotExist) {
			return err
		}
		return s.write(collection, id, resolved)
	})
	if err != nil {
		return "", err
	}

	s.hub.Notify(collection)
	return id, nil
}

// Update implements docstore.Store.
func (s *Store) Update(_ context.Context, collection, id string, updates []docstore.Update) error {
	if s.isClosed() {
		return docstore.ErrClosed
	}
	if err := validate(collection, id); err != nil {
		return err
	}

	err := s.locked(func() error {
		fields, err := s.read(collection, id)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return docstore.ErrNotFound
			}
			return err
		}
		next, err := docstore.ApplyUpdates(fields, updates, s.opts.Now())
		if err != nil {
			return err
		}
		return s.write(collection, id, next)
	})
	if err != nil {
		return err
	}

	s.hub.Notify(collection)
	return nil
}

// Delete implements docstore.Store.
func (s *Store) Delete(_ context.Context, collection, id string) error {
	if s.isClosed() {
		return docstore.ErrClosed
	}
	if err := validate(collection, id); err != nil {
		return err
	}

	err := s.locked(func() error {
		if err := os.Remove(s.docPath(collection, id)); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return docstore.ErrNotFound
			}
			return err
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.hub.Notify(collection)
	return nil
}

// Close stops the watcher and all subscriptions.
func (s *Store) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	s.cancel()
	s.hub.Close()
	return s.watcher.Close()
}

func validate(collection, id string) error {
	if err := docstore.ValidateID(collection); err != nil {
		return err
	}
	return docstore.ValidateID(id)
}
