// Package storetest holds the behavioural tests every docstore.Store
// backend must pass.
package storetest

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/twiced-technology-gmbh/ticketboard/internal/docstore"
)

// Factory opens a fresh, empty store for one test. The store is closed by
// the suite.
type Factory func(t *testing.T) docstore.Store

const waitFor = 3 * time.Second

// Run exercises the full docstore.Store contract against stores built by
// newStore.
func Run(t *testing.T, newStore Factory) {
	t.Helper()

	t.Run("create then get", func(t *testing.T) {
		s := open(t, newStore)
		ctx := context.Background()

		id, err := s.Create(ctx, "tickets", "12345", map[string]any{
			"title":     "Fix login",
			"createdAt": docstore.ServerTimestamp,
			"urls":      []any{map[string]any{"url": "https://example.com"}},
		})
		require.NoError(t, err)
		assert.Equal(t, "12345", id)

		doc, err := s.Get(ctx, "tickets", "12345")
		require.NoError(t, err)
		assert.Equal(t, "Fix login", doc.Fields["title"])
		created, ok := doc.Fields["createdAt"].(time.Time)
		require.True(t, ok, "createdAt should be a time, got %T", doc.Fields["createdAt"])
		assert.False(t, created.IsZero())
		assert.Equal(t, []any{map[string]any{"url": "https://example.com"}}, doc.Fields["urls"])
	})

	t.Run("create generates ids", func(t *testing.T) {
		s := open(t, newStore)
		id, err := s.Create(context.Background(), "personnel", "", map[string]any{"name": "Ana"})
		require.NoError(t, err)
		assert.NotEmpty(t, id)

		_, err = s.Get(context.Background(), "personnel", id)
		require.NoError(t, err)
	})

	t.Run("create never overwrites", func(t *testing.T) {
		s := open(t, newStore)
		ctx := context.Background()
		_, err := s.Create(ctx, "tickets", "11111", map[string]any{"title": "first"})
		require.NoError(t, err)

		_, err = s.Create(ctx, "tickets", "11111", map[string]any{"title": "second"})
		require.ErrorIs(t, err, docstore.ErrAlreadyExists)

		doc, err := s.Get(ctx, "tickets", "11111")
		require.NoError(t, err)
		assert.Equal(t, "first", doc.Fields["title"])
	})

	t.Run("get missing", func(t *testing.T) {
		s := open(t, newStore)
		_, err := s.Get(context.Background(), "tickets", "99999")
		require.ErrorIs(t, err, docstore.ErrNotFound)
	})

	t.Run("invalid ids are rejected", func(t *testing.T) {
		s := open(t, newStore)
		_, err := s.Create(context.Background(), "tickets", "../x", map[string]any{})
		require.ErrorIs(t, err, docstore.ErrInvalidID)
	})

	t.Run("update sets and removes fields", func(t *testing.T) {
		s := open(t, newStore)
		ctx := context.Background()
		_, err := s.Create(ctx, "tickets", "22222", map[string]any{
			"status":      "done",
			"completedAt": time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		})
		require.NoError(t, err)

		require.NoError(t, s.Update(ctx, "tickets", "22222", []docstore.Update{
			{Path: "status", Value: "todo"},
			{Path: "completedAt", Value: docstore.Delete},
		}))

		doc, err := s.Get(ctx, "tickets", "22222")
		require.NoError(t, err)
		assert.Equal(t, "todo", doc.Fields["status"])
		assert.NotContains(t, doc.Fields, "completedAt")

		require.NoError(t, s.Update(ctx, "tickets", "22222", []docstore.Update{
			{Path: "status", Value: "done"},
			{Path: "completedAt", Value: docstore.ServerTimestamp},
		}))
		doc, err = s.Get(ctx, "tickets", "22222")
		require.NoError(t, err)
		assert.IsType(t, time.Time{}, doc.Fields["completedAt"])
	})

	t.Run("update missing", func(t *testing.T) {
		s := open(t, newStore)
		err := s.Update(context.Background(), "tickets", "33333", []docstore.Update{{Path: "status", Value: "todo"}})
		require.ErrorIs(t, err, docstore.ErrNotFound)
	})

	t.Run("concurrent updates to distinct documents", func(t *testing.T) {
		s := open(t, newStore)
		ctx := context.Background()
		const writers, rounds = 8, 20
		for i := range writers {
			_, err := s.Create(ctx, "tickets", fmt.Sprintf("5000%d", i), map[string]any{"round": int64(0)})
			require.NoError(t, err)
		}

		var wg sync.WaitGroup
		errs := make(chan error, writers*rounds)
		for i := range writers {
			wg.Add(1)
			go func(id string) {
				defer wg.Done()
				for r := 1; r <= rounds; r++ {
					if err := s.Update(ctx, "tickets", id, []docstore.Update{{Path: "round", Value: int64(r)}}); err != nil {
						errs <- err
					}
				}
			}(fmt.Sprintf("5000%d", i))
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			require.NoError(t, err)
		}

		for i := range writers {
			doc, err := s.Get(ctx, "tickets", fmt.Sprintf("5000%d", i))
			require.NoError(t, err)
			assert.EqualValues(t, rounds, doc.Fields["round"])
		}
	})

	t.Run("delete", func(t *testing.T) {
		s := open(t, newStore)
		ctx := context.Background()
		_, err := s.Create(ctx, "tickets", "44444", map[string]any{"title": "x"})
		require.NoError(t, err)

		require.NoError(t, s.Delete(ctx, "tickets", "44444"))
		require.ErrorIs(t, s.Delete(ctx, "tickets", "44444"), docstore.ErrNotFound)
		_, err = s.Get(ctx, "tickets", "44444")
		require.ErrorIs(t, err, docstore.ErrNotFound)
	})

	t.Run("subscribe delivers ordered snapshots after writes", func(t *testing.T) {
		s := open(t, newStore)
		ctx := context.Background()
		base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

		_, err := s.Create(ctx, "tickets", "50002", map[string]any{"createdAt": base.Add(time.Minute)})
		require.NoError(t, err)
		_, err = s.Create(ctx, "tickets", "50001", map[string]any{"createdAt": base})
		require.NoError(t, err)

		rec := &recorder{}
		unsub, err := s.Subscribe(ctx, docstore.Query{Collection: "tickets", OrderBy: "createdAt"}, rec.snapshot, rec.fail)
		require.NoError(t, err)
		defer unsub()

		require.Eventually(t, func() bool {
			return equalIDs(rec.lastIDs(), "50001", "50002")
		}, waitFor, 10*time.Millisecond)

		_, err = s.Create(ctx, "tickets", "50003", map[string]any{"createdAt": base.Add(2 * time.Minute)})
		require.NoError(t, err)
		require.NoError(t, s.Delete(ctx, "tickets", "50001"))

		require.Eventually(t, func() bool {
			return equalIDs(rec.lastIDs(), "50002", "50003")
		}, waitFor, 10*time.Millisecond)
		assert.Zero(t, rec.errCount())
	})

	t.Run("subscribe on empty collection", func(t *testing.T) {
		s := open(t, newStore)
		rec := &recorder{}
		unsub, err := s.Subscribe(context.Background(), docstore.Query{Collection: "usefulLinks"}, rec.snapshot, rec.fail)
		require.NoError(t, err)
		defer unsub()

		require.Eventually(t, func() bool { return rec.count() >= 1 }, waitFor, 10*time.Millisecond)
		assert.Empty(t, rec.lastIDs())
	})

	t.Run("fetch", func(t *testing.T) {
		s := open(t, newStore)
		ctx := context.Background()
		_, err := s.Create(ctx, "personnel", "p1", map[string]any{"name": "Ana"})
		require.NoError(t, err)

		docs, err := docstore.Fetch(ctx, s, docstore.Query{Collection: "personnel"})
		require.NoError(t, err)
		require.Len(t, docs, 1)
		assert.Equal(t, "Ana", docs[0].Fields["name"])
	})
}

func open(t *testing.T, newStore Factory) docstore.Store {
	t.Helper()
	s := newStore(t)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

type recorder struct {
	mu    sync.Mutex
	snaps [][]docstore.Document
	errs  []error
}

func (r *recorder) snapshot(docs []docstore.Document) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snaps = append(r.snaps, docs)
}

func (r *recorder) fail(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errs = append(r.errs, err)
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.snaps)
}

func (r *recorder) errCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.errs)
}

func (r *recorder) lastIDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.snaps) == 0 {
		return nil
	}
	last := r.snaps[len(r.snaps)-1]
	ids := make([]string, len(last))
	for i, d := range last {
		ids[i] = d.ID
	}
	return ids
}

func equalIDs(got []string, want ...string) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}
