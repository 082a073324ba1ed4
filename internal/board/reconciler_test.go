package board

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/twiced-technology-gmbh/ticketboard/internal/clierr"
	"github.com/twiced-technology-gmbh/ticketboard/internal/docstore"
	"github.com/twiced-technology-gmbh/ticketboard/internal/docstore/memstore"
	"github.com/twiced-technology-gmbh/ticketboard/internal/ticket"
)

type patchCall struct {
	id    string
	patch ticket.Patch
}

// fakeStore records writes and never emits snapshots on its own; tests drive
// the reconciler with Apply.
type fakeStore struct {
	mu       sync.Mutex
	created  []*ticket.Ticket
	patched  []patchCall
	removed  []string
	writeErr error
	subErr   error
}

func (f *fakeStore) Exists(context.Context, string) (bool, error) { return false, nil }

func (f *fakeStore) Subscribe(context.Context, func([]*ticket.Ticket), func(error)) (docstore.Unsubscribe, error) {
	if f.subErr != nil {
		return nil, f.subErr
	}
	return func() {}, nil
}

func (f *fakeStore) Create(_ context.Context, t *ticket.Ticket) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return "", f.writeErr
	}
	f.created = append(f.created, t)
	return t.ID, nil
}

func (f *fakeStore) Patch(_ context.Context, id string, p ticket.Patch) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return f.writeErr
	}
	f.patched = append(f.patched, patchCall{id: id, patch: p})
	return nil
}

func (f *fakeStore) Remove(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return f.writeErr
	}
	f.removed = append(f.removed, id)
	return nil
}

func validForm() ticket.FormData {
	return ticket.FormData{
		Title:       "Fix login",
		Description: "Users cannot log in",
		Priority:    ticket.PriorityHigh,
		IssueType:   ticket.IssueBug,
	}
}

func snapshotTicket(id string, status ticket.Status) *ticket.Ticket {
	return &ticket.Ticket{
		ID:          id,
		Title:       "ticket " + id,
		Description: "d",
		Priority:    ticket.PriorityMedium,
		IssueType:   ticket.IssueTask,
		Status:      status,
		URLs:        []string{},
	}
}

func TestReconciler_create_waits_for_snapshot(t *testing.T) {
	store := &fakeStore{}
	r := NewReconciler(store)

	id, err := r.AddTicket(context.Background(), validForm())
	require.NoError(t, err)

	require.Len(t, store.created, 1)
	created := store.created[0]
	assert.Equal(t, id, created.ID)
	assert.Equal(t, ticket.StatusTodo, created.Status)
	assert.Equal(t, []string{}, created.URLs)

	for _, c := range r.Columns() {
		assert.Empty(t, c.Tickets, "nothing shows before the store confirms")
	}
	assert.Equal(t, "create", r.Pending(id))

	r.Apply([]*ticket.Ticket{created})
	assert.Len(t, r.Columns()[0].Tickets, 1)
	assert.Empty(t, r.Pending(id))
	assert.True(t, r.Ready())
}

func TestReconciler_invalid_form_writes_nothing(t *testing.T) {
	store := &fakeStore{}
	r := NewReconciler(store)

	form := validForm()
	form.Title = "  "
	_, err := r.AddTicket(context.Background(), form)

	assert.True(t, clierr.Is(err, clierr.ValidationFailed))
	assert.Empty(t, store.created)
}

func TestReconciler_failed_create_releases_id(t *testing.T) {
	store := &fakeStore{writeErr: clierr.New(clierr.StoreWriteFailed, "down")}
	ids := NewIDAllocator(store, WithRandom(func(int) int { return 7 }))
	r := NewReconciler(store, WithIDAllocator(ids))

	_, err := r.AddTicket(context.Background(), validForm())

	assert.True(t, clierr.Is(err, clierr.StoreWriteFailed))
	assert.False(t, ids.Known("10007"))
	assert.Empty(t, r.Pending("10007"))
}

func TestReconciler_snapshot_rebuilds_id_cache(t *testing.T) {
	store := &fakeStore{}
	ids := NewIDAllocator(store)
	r := NewReconciler(store, WithIDAllocator(ids))

	r.Apply([]*ticket.Ticket{snapshotTicket("12345", ticket.StatusTodo)})
	assert.True(t, ids.Known("12345"))

	r.Apply([]*ticket.Ticket{snapshotTicket("54321", ticket.StatusTodo)})
	assert.False(t, ids.Known("12345"))
	assert.True(t, ids.Known("54321"))
}

func TestReconciler_unknown_status_kept_but_not_shown(t *testing.T) {
	r := NewReconciler(&fakeStore{})
	r.Apply([]*ticket.Ticket{
		snapshotTicket("10001", "archived"),
		snapshotTicket("10002", ticket.StatusDone),
	})

	total := 0
	for _, c := range r.Columns() {
		total += len(c.Tickets)
	}
	assert.Equal(t, 1, total)
	assert.Len(t, r.Tickets(), 2)
}

func TestReconciler_move_into_and_out_of_done(t *testing.T) {
	store := &fakeStore{}
	r := NewReconciler(store)
	r.Apply([]*ticket.Ticket{
		snapshotTicket("10001", ticket.StatusInProgress),
		snapshotTicket("10002", ticket.StatusDone),
	})

	require.NoError(t, r.MoveTicket(context.Background(), "10001", Right))
	require.NoError(t, r.MoveTicket(context.Background(), "10002", Left))

	require.Len(t, store.patched, 2)
	into := store.patched[0].patch
	status, _ := into.Status.Value()
	assert.Equal(t, ticket.StatusDone, status)
	assert.Equal(t, ticket.OpServerTime, into.CompletedAt.Op())

	out := store.patched[1].patch
	status, _ = out.Status.Value()
	assert.Equal(t, ticket.StatusInProgress, status)
	assert.Equal(t, ticket.OpUnset, out.CompletedAt.Op())

	// Still showing the old columns until the store echoes the change.
	got, _ := r.Ticket("10001")
	assert.Equal(t, ticket.StatusInProgress, got.Status)
	assert.Equal(t, "move", r.Pending("10001"))
}

func TestReconciler_move_past_edges_is_noop(t *testing.T) {
	store := &fakeStore{}
	r := NewReconciler(store)
	r.Apply([]*ticket.Ticket{
		snapshotTicket("10001", ticket.StatusTodo),
		snapshotTicket("10002", ticket.StatusDone),
	})

	require.NoError(t, r.MoveTicket(context.Background(), "10001", Left))
	require.NoError(t, r.MoveTicket(context.Background(), "10002", Right))
	assert.Empty(t, store.patched)

	err := r.MoveTicket(context.Background(), "99999", Right)
	assert.True(t, clierr.Is(err, clierr.TicketNotFound))
}

func TestReconciler_drag_drop(t *testing.T) {
	store := &fakeStore{}
	r := NewReconciler(store)
	r.Apply([]*ticket.Ticket{snapshotTicket("10001", ticket.StatusTodo)})
	ctx := context.Background()
	src := DropPosition{Column: ticket.StatusTodo, Index: 0}

	require.NoError(t, r.HandleDragDrop(ctx, src, nil, "10001"))
	require.NoError(t, r.HandleDragDrop(ctx, src, &DropPosition{Column: ticket.StatusTodo, Index: 3}, "10001"))
	assert.Empty(t, store.patched)

	require.NoError(t, r.HandleDragDrop(ctx, src, &DropPosition{Column: ticket.StatusDone}, "10001"))
	require.Len(t, store.patched, 1)
	assert.Equal(t, ticket.OpServerTime, store.patched[0].patch.CompletedAt.Op())

	err := r.HandleDragDrop(ctx, src, &DropPosition{Column: "archived"}, "10001")
	assert.True(t, clierr.Is(err, clierr.InvalidStatus))
}

func TestReconciler_failed_write_leaves_state(t *testing.T) {
	store := &fakeStore{}
	r := NewReconciler(store)
	r.Apply([]*ticket.Ticket{snapshotTicket("10001", ticket.StatusTodo)})
	before := r.Columns()

	store.writeErr = clierr.New(clierr.StoreWriteFailed, "rejected")
	err := r.MoveTicket(context.Background(), "10001", Right)

	assert.True(t, clierr.Is(err, clierr.StoreWriteFailed))
	assert.Equal(t, before, r.Columns())
	assert.Empty(t, r.Pending("10001"))
}

func TestReconciler_update_routes_status_through_transition(t *testing.T) {
	store := &fakeStore{}
	r := NewReconciler(store)
	r.Apply([]*ticket.Ticket{snapshotTicket("10001", ticket.StatusTodo)})

	err := r.UpdateTicket(context.Background(), "10001", ticket.Patch{
		Title:  ticket.Set("Renamed"),
		Status: ticket.Set(ticket.StatusDone),
	})
	require.NoError(t, err)

	require.Len(t, store.patched, 1)
	p := store.patched[0].patch
	assert.Equal(t, []string{"title", "status", "completedAt"}, p.ChangedFields())

	err = r.UpdateTicket(context.Background(), "10001", ticket.Patch{CompletedAt: ticket.ServerTime()})
	assert.True(t, clierr.Is(err, clierr.ValidationFailed))
	assert.Len(t, store.patched, 1)
}

func TestReconciler_update_without_changes_writes_nothing(t *testing.T) {
	store := &fakeStore{}
	r := NewReconciler(store)
	r.Apply([]*ticket.Ticket{snapshotTicket("10001", ticket.StatusTodo)})

	require.NoError(t, r.UpdateTicket(context.Background(), "10001", ticket.Patch{Status: ticket.Set(ticket.StatusTodo)}))
	assert.Empty(t, store.patched)
}

func TestReconciler_delete(t *testing.T) {
	store := &fakeStore{}
	var mutations []string
	r := NewReconciler(store, WithMutationHook(func(action, id, _ string) {
		mutations = append(mutations, action+":"+id)
	}))

	require.NoError(t, r.DeleteTicket(context.Background(), "10001"))
	assert.Equal(t, []string{"10001"}, store.removed)
	assert.Equal(t, []string{"delete:10001"}, mutations)
}

func TestReconciler_feed_failure_keeps_last_snapshot(t *testing.T) {
	r := NewReconciler(&fakeStore{})
	r.Apply([]*ticket.Ticket{snapshotTicket("10001", ticket.StatusTodo)})

	r.Fail(errors.New("connection lost"))
	assert.True(t, clierr.Is(r.Err(), clierr.StoreSubscriptionFailed))
	assert.Len(t, r.Columns()[0].Tickets, 1)

	r.Apply([]*ticket.Ticket{snapshotTicket("10001", ticket.StatusTodo)})
	assert.NoError(t, r.Err())
}

func TestReconciler_start_failure(t *testing.T) {
	r := NewReconciler(&fakeStore{subErr: errors.New("no store")})

	require.Error(t, r.Start(context.Background()))
	err := r.WaitReady(context.Background())
	assert.True(t, clierr.Is(err, clierr.StoreSubscriptionFailed))
}

func TestReconciler_notifies_listeners(t *testing.T) {
	r := NewReconciler(&fakeStore{})
	calls := 0
	r.OnChange(func() { calls++ })

	r.Apply(nil)
	r.Fail(errors.New("x"))
	assert.Equal(t, 2, calls)
}

func TestReconciler_end_to_end_with_memstore(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var clockMu sync.Mutex
	clock := time.Date(2025, 4, 10, 9, 0, 0, 0, time.UTC)
	advance := func(d time.Duration) time.Time {
		clockMu.Lock()
		defer clockMu.Unlock()
		clock = clock.Add(d)
		return clock
	}
	docs := memstore.New(docstore.WithClock(func() time.Time { return advance(0) }))
	defer docs.Close()
	r := NewReconciler(ticket.NewStore(docs))
	require.NoError(t, r.Start(ctx))
	defer r.Stop()
	require.NoError(t, r.WaitReady(ctx))

	id, err := r.AddTicket(ctx, validForm())
	require.NoError(t, err)
	got, err := r.WaitTicket(ctx, id, func(tk *ticket.Ticket) bool { return tk != nil })
	require.NoError(t, err)
	assert.Equal(t, ticket.StatusTodo, got.Status)
	assert.Nil(t, got.CompletedAt)

	require.NoError(t, r.MoveTicket(ctx, id, Right))
	_, err = r.WaitTicket(ctx, id, func(tk *ticket.Ticket) bool {
		return tk != nil && tk.Status == ticket.StatusInProgress
	})
	require.NoError(t, err)
	calledAt := advance(time.Hour)
	require.NoError(t, r.MoveTicket(ctx, id, Right))
	got, err = r.WaitTicket(ctx, id, func(tk *ticket.Ticket) bool {
		return tk != nil && tk.Status == ticket.StatusDone
	})
	require.NoError(t, err)
	require.NotNil(t, got.CompletedAt)
	assert.False(t, got.CompletedAt.Before(calledAt), "completedAt %v is before the move at %v", got.CompletedAt, calledAt)
	assert.True(t, got.CompletedAt.After(got.CreatedAt))

	require.NoError(t, r.MoveTicket(ctx, id, Left))
	got, err = r.WaitTicket(ctx, id, func(tk *ticket.Ticket) bool {
		return tk != nil && tk.Status == ticket.StatusInProgress
	})
	require.NoError(t, err)
	assert.Nil(t, got.CompletedAt)

	require.NoError(t, r.DeleteTicket(ctx, id))
	_, err = r.WaitTicket(ctx, id, func(tk *ticket.Ticket) bool { return tk == nil })
	require.NoError(t, err)
	require.NoError(t, r.DeleteTicket(ctx, id), "deleting twice succeeds")
}
