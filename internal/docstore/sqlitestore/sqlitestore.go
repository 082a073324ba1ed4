// Package sqlitestore is a docstore.Store kept in a single SQLite database.
// Document fields are stored as YAML text in a documents table.
package sqlitestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/twiced-technology-gmbh/ticketboard/internal/docstore"
	"github.com/twiced-technology-gmbh/ticketboard/internal/watcher"
)

const (
	busyTimeout  = 5000 // milliseconds
	maxOpenConns = 4
	dirMode      = 0o750
)

const schema = `
CREATE TABLE IF NOT EXISTS documents (
	collection TEXT NOT NULL,
	id         TEXT NOT NULL,
	fields     TEXT NOT NULL,
	PRIMARY KEY (collection, id)
)`

// Store is a SQLite-backed document store.
type Store struct {
	db   *sql.DB
	path string
	opts docstore.Options
	hub  *docstore.Hub

	watcher *watcher.Watcher
	cancel  context.CancelFunc

	mu     sync.Mutex
	closed bool

	// writeMu serialises this process's writers; _txlock=immediate covers
	// writers in other processes.
	writeMu sync.Mutex
}

var _ docstore.Store = (*Store)(nil)

// Open opens (creating if needed) the database at path. Writes from other
// processes are noticed by watching the database's directory.
func Open(path string, opts ...docstore.Option) (*Store, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving database path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(abs), dirMode); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(%d)&_txlock=immediate", abs, busyTimeout)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(maxOpenConns)

	if _, err := db.ExecContext(context.Background(), schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	s := &Store{db: db, path: abs, opts: docstore.BuildOptions(opts)}
	s.hub = docstore.NewHub(s.list)

	w, err := watcher.New([]string{filepath.Dir(abs)}, s.hub.NotifyAll,
		watcher.WithFilter(databaseFiles(abs)))
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("watching database directory: %w", err)
	}
	s.watcher = w

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	go w.Run(ctx, func(err error) {
		log.Error().Err(err).Str("db", abs).Msg("database watcher failed")
		s.hub.Fail(fmt.Errorf("watching %s: %w", abs, err))
	})

	return s, nil
}

// Path returns the absolute database path.
func (s *Store) Path() string { return s.path }

func (s *Store) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Store) list(ctx context.Context, collection string) ([]docstore.Document, error) {
	if s.isClosed() {
		return nil, docstore.ErrClosed
	}
	rows, err := s.db.QueryContext(ctx, `SELECT id, fields FROM documents WHERE collection = ?`, collection)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", collection, err)
	}
	defer rows.Close()

	docs := []docstore.Document{}
	for rows.Next() {
		var id, raw string
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		fields, err := docstore.Unmarshal([]byte(raw))
		if err != nil {
			log.Warn().Err(err).Str("collection", collection).Str("id", id).Msg("skipping unreadable document")
			continue
		}
		docs = append(docs, docstore.Document{ID: id, Fields: fields})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", collection, err)
	}
	return docs, nil
}

// Subscribe implements docstore.Store.
func (s *Store) Subscribe(ctx context.Context, q docstore.Query, onSnapshot func([]docstore.Document), onError func(error)) (docstore.Unsubscribe, error) {
	if s.isClosed() {
		return nil, docstore.ErrClosed
	}
	return s.hub.Subscribe(ctx, q, onSnapshot, onError)
}

// Get implements docstore.Store.
func (s *Store) Get(ctx context.Context, collection, id string) (docstore.Document, error) {
	if s.isClosed() {
		return docstore.Document{}, docstore.ErrClosed
	}
	var raw string
	err := s.db.QueryRowContext(ctx,
		`SELECT fields FROM documents WHERE collection = ? AND id = ?`, collection, id).Scan(&raw)
	if err != nil {
		if IsNotFoundError(err) {
			return docstore.Document{}, docstore.ErrNotFound
		}
		return docstore.Document{}, fmt.Errorf("failed to get document: %w", err)
	}
	fields, err := docstore.Unmarshal([]byte(raw))
	if err != nil {
		return docstore.Document{}, err
	}
	return docstore.Document{ID: id, Fields: fields}, nil
}

// Create implements docstore.Store.
func (s *Store) Create(ctx context.Context, collection, id string, fields map[string]any) (string, error) {
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
	raw, err := docstore.Marshal(resolved)
	if err != nil {
		return "", err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO documents (collection, id, fields) VALUES (?, ?, ?)`, collection, id, string(raw))
	if err != nil {
		if IsConstraintError(err) {
			return "", docstore.ErrAlreadyExists
		}
		return "", fmt.Errorf("failed to create document: %w", err)
	}

	s.hub.Notify(collection)
	return id, nil
}

// Update implements docstore.Store.
func (s *Store) Update(ctx context.Context, collection, id string, updates []docstore.Update) error {
	if s.isClosed() {
		return docstore.ErrClosed
	}
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var raw string
		err := tx.QueryRowContext(ctx,
			`SELECT fields FROM documents WHERE collection = ? AND id = ?`, collection, id).Scan(&raw)
		if err != nil {
			if IsNotFoundError(err) {
				return docstore.ErrNotFound
			}
			return err
		}
		fields, err := docstore.Unmarshal([]byte(raw))
		if err != nil {
			return err
		}
		next, err := docstore.ApplyUpdates(fields, updates, s.opts.Now())
		if err != nil {
			return err
		}
		out, err := docstore.Marshal(next)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx,
			`UPDATE documents SET fields = ? WHERE collection = ? AND id = ?`, string(out), collection, id)
		return err
	})
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return err
		}
		return fmt.Errorf("failed to update document: %w", err)
	}

	s.hub.Notify(collection)
	return nil
}

// Delete implements docstore.Store.
func (s *Store) Delete(ctx context.Context, collection, id string) error {
	if s.isClosed() {
		return docstore.ErrClosed
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	res, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE collection = ? AND id = ?`, collection, id)
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	if n == 0 {
		return docstore.ErrNotFound
	}

	s.hub.Notify(collection)
	return nil
}

// Close stops the watcher, all subscriptions and the database handle.
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
	_ = s.watcher.Close()
	return s.db.Close()
}

func (s *Store) withTx(ctx context.Context, fn func(*sql.Tx) error) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		if IsBusyError(err) {
			log.Warn().Err(err).Str("path", s.path).Msg("database busy, write abandoned")
		}
		return err
	}
	return tx.Commit()
}

// databaseFiles matches the database and its -wal/-shm/-journal side files,
// ignoring everything else written next to it.
func databaseFiles(db string) func(string) bool {
	base := filepath.Base(db)
	return func(name string) bool {
		return strings.HasPrefix(filepath.Base(name), base)
	}
}

func validate(collection, id string) error {
	if err := docstore.ValidateID(collection); err != nil {
		return err
	}
	return docstore.ValidateID(id)
}

// IsConstraintError returns true if the error is a SQLITE_CONSTRAINT error
// (any extended code).
func IsConstraintError(err error) bool {
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code()&0xff == sqlite3.SQLITE_CONSTRAINT
	}
	return false
}

// IsBusyError returns true if the error is a SQLITE_BUSY error.
func IsBusyError(err error) bool {
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code() == sqlite3.SQLITE_BUSY
	}
	return false
}

// IsNotFoundError returns true if the error is a "not found" error.
func IsNotFoundError(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
