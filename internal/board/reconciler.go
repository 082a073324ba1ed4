package board

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/twiced-technology-gmbh/ticketboard/internal/clierr"
	"github.com/twiced-technology-gmbh/ticketboard/internal/docstore"
	"github.com/twiced-technology-gmbh/ticketboard/internal/ticket"
)

// TicketStore is the persistence the reconciler writes through.
// *ticket.Store implements it.
type TicketStore interface {
	ExistenceChecker
	Subscribe(ctx context.Context, onSnapshot func([]*ticket.Ticket), onError func(error)) (docstore.Unsubscribe, error)
	Create(ctx context.Context, t *ticket.Ticket) (string, error)
	Patch(ctx context.Context, id string, p ticket.Patch) error
	Remove(ctx context.Context, id string) error
}

// MutationFunc observes successful writes (action, ticket id, detail).
type MutationFunc func(action, id, detail string)

// DropPosition is a place on the board: a column and an index within it.
type DropPosition struct {
	Column ticket.Status
	Index  int
}

// Reconciler keeps the board view in step with the store. Its state only
// changes when a snapshot arrives; writes go to the store and show up in
// the view through the next snapshot.
type Reconciler struct {
	store    TicketStore
	ids      *IDAllocator
	onMutate MutationFunc

	mu        sync.RWMutex
	tickets   []*ticket.Ticket
	columns   []Column
	byID      map[string]*ticket.Ticket
	pending   map[string]string
	err       error
	ready     chan struct{}
	readyOnce sync.Once
	changed   chan struct{}
	listeners []func()
	unsub     docstore.Unsubscribe
}

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithIDAllocator replaces the default allocator.
func WithIDAllocator(a *IDAllocator) Option {
	return func(r *Reconciler) { r.ids = a }
}

// WithMutationHook registers fn to be called after every successful write.
func WithMutationHook(fn MutationFunc) Option {
	return func(r *Reconciler) { r.onMutate = fn }
}

// NewReconciler creates a reconciler over store. Call Start to subscribe.
func NewReconciler(store TicketStore, opts ...Option) *Reconciler {
	r := &Reconciler{
		store:   store,
		columns: Project(nil),
		byID:    make(map[string]*ticket.Ticket),
		pending: make(map[string]string),
		ready:   make(chan struct{}),
		changed: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.ids == nil {
		r.ids = NewIDAllocator(store)
	}
	return r
}

// Start subscribes to the ticket feed. Snapshots and feed failures are
// delivered to Apply and Fail.
func (r *Reconciler) Start(ctx context.Context) error {
	unsub, err := r.store.Subscribe(ctx, r.Apply, r.Fail)
	if err != nil {
		r.Fail(err)
		return err
	}
	r.mu.Lock()
	r.unsub = unsub
	r.mu.Unlock()
	return nil
}

// Stop ends the subscription.
func (r *Reconciler) Stop() {
	r.mu.Lock()
	unsub := r.unsub
	r.unsub = nil
	r.mu.Unlock()
	if unsub != nil {
		unsub()
	}
}

// Apply replaces the board state with a snapshot. Every derived view and
// the id cache are rebuilt from it.
func (r *Reconciler) Apply(tickets []*ticket.Ticket) {
	snapshot := append([]*ticket.Ticket(nil), tickets...)
	byID := make(map[string]*ticket.Ticket, len(snapshot))
	ids := make([]string, len(snapshot))
	for i, t := range snapshot {
		byID[t.ID] = t
		ids[i] = t.ID
	}
	r.ids.Reset(ids)

	r.mu.Lock()
	r.tickets = snapshot
	r.columns = Project(snapshot)
	r.byID = byID
	r.pending = make(map[string]string)
	r.err = nil
	r.broadcastLocked()
	r.mu.Unlock()

	r.readyOnce.Do(func() { close(r.ready) })
	r.notify()
}

// Fail records a feed failure. The last good snapshot stays visible.
func (r *Reconciler) Fail(err error) {
	if !clierr.Is(err, clierr.StoreSubscriptionFailed) {
		err = clierr.Wrap(clierr.StoreSubscriptionFailed, err, "ticket feed failed")
	}
	log.Error().Err(err).Msg("ticket subscription failed")

	r.mu.Lock()
	r.err = err
	r.broadcastLocked()
	r.mu.Unlock()
	r.notify()
}

func (r *Reconciler) broadcastLocked() {
	close(r.changed)
	r.changed = make(chan struct{})
}

func (r *Reconciler) notify() {
	r.mu.RLock()
	listeners := append([]func(){}, r.listeners...)
	r.mu.RUnlock()
	for _, fn := range listeners {
		fn()
	}
}

// OnChange registers fn to run after every snapshot, feed failure, and
// change to the pending set.
func (r *Reconciler) OnChange(fn func()) {
	r.mu.Lock()
	r.listeners = append(r.listeners, fn)
	r.mu.Unlock()
}

// Columns returns the current board. Tickets are shared with the
// reconciler and must not be modified.
func (r *Reconciler) Columns() []Column {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Column, len(r.columns))
	for i, c := range r.columns {
		out[i] = Column{Status: c.Status, Title: c.Title, Tickets: append([]*ticket.Ticket{}, c.Tickets...)}
	}
	return out
}

// Tickets returns every ticket of the current snapshot in arrival order,
// including tickets whose status no column shows.
func (r *Reconciler) Tickets() []*ticket.Ticket {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]*ticket.Ticket{}, r.tickets...)
}

// Ticket returns a copy of the ticket with id from the current snapshot.
func (r *Reconciler) Ticket(id string) (*ticket.Ticket, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.byID[id]
	if !ok {
		return nil, false
	}
	return t.Clone(), true
}

// Pending returns the action written for id that no snapshot has shown
// yet, or "".
func (r *Reconciler) Pending(id string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.pending[id]
}

// Err returns the last feed failure, cleared by the next snapshot.
func (r *Reconciler) Err() error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.err
}

// Ready reports whether a snapshot has arrived.
func (r *Reconciler) Ready() bool {
	select {
	case <-r.ready:
		return true
	default:
		return false
	}
}

// WaitReady blocks until the first snapshot arrives. A feed failure before
// then is returned.
func (r *Reconciler) WaitReady(ctx context.Context) error {
	return r.WaitFor(ctx, func() (bool, error) {
		if r.Ready() {
			return true, nil
		}
		return false, r.Err()
	})
}

// WaitFor blocks until cond reports done or an error, re-checking after
// every snapshot and feed failure.
func (r *Reconciler) WaitFor(ctx context.Context, cond func() (bool, error)) error {
	for {
		r.mu.RLock()
		ch := r.changed
		r.mu.RUnlock()

		done, err := cond()
		if err != nil {
			return err
		}
		if done {
			return nil
		}
		select {
		case <-ch:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// WaitTicket blocks until the snapshot state of id satisfies pred. t is nil
// when the ticket is absent.
func (r *Reconciler) WaitTicket(ctx context.Context, id string, pred func(t *ticket.Ticket) bool) (*ticket.Ticket, error) {
	var found *ticket.Ticket
	err := r.WaitFor(ctx, func() (bool, error) {
		t, ok := r.Ticket(id)
		if !ok {
			t = nil
		}
		if pred(t) {
			found = t
			return true, nil
		}
		return false, nil
	})
	return found, err
}

// AddTicket validates the form, allocates an id and creates the ticket in
// the todo column. The ticket appears on the board with the next snapshot.
func (r *Reconciler) AddTicket(ctx context.Context, form ticket.FormData) (string, error) {
	if err := form.Validate(); err != nil {
		return "", err
	}
	id, err := r.ids.Allocate(ctx)
	if err != nil {
		return "", err
	}

	urls := append([]string{}, form.URLs...)
	t := &ticket.Ticket{
		ID:          id,
		Title:       form.Title,
		Description: form.Description,
		Priority:    form.Priority,
		IssueType:   form.IssueType,
		Status:      ticket.StatusTodo,
		URLs:        urls,
		Deadline:    form.Deadline,
		Personnel:   form.Personnel,
	}
	r.markPending(id, "create")
	if _, err := r.store.Create(ctx, t); err != nil {
		r.ids.Release(id)
		r.clearPending(id)
		log.Error().Err(err).Str("id", id).Msg("create ticket failed")
		return "", err
	}

	r.written("create", id, form.Title)
	return id, nil
}

// UpdateTicket writes an edit-form patch. A status change carries its
// completion side effect in the same write.
func (r *Reconciler) UpdateTicket(ctx context.Context, id string, p ticket.Patch) error {
	cur, ok := r.Ticket(id)
	if !ok {
		return ticket.NotFound(id)
	}
	p, err := EditPatch(cur, p)
	if err != nil {
		return err
	}
	return r.patch(ctx, id, p, "edit")
}

// DeleteTicket removes a ticket. Deleting a ticket that is already gone
// succeeds.
func (r *Reconciler) DeleteTicket(ctx context.Context, id string) error {
	r.markPending(id, "delete")
	if err := r.store.Remove(ctx, id); err != nil {
		r.clearPending(id)
		log.Error().Err(err).Str("id", id).Msg("delete ticket failed")
		return err
	}
	r.written("delete", id, "")
	return nil
}

// MoveTicket moves a ticket one column left or right. Moving past the
// first or last column does nothing.
func (r *Reconciler) MoveTicket(ctx context.Context, id string, d Direction) error {
	cur, ok := r.Ticket(id)
	if !ok {
		return ticket.NotFound(id)
	}
	to, ok := Adjacent(cur.Status, d)
	if !ok {
		return nil
	}
	return r.transition(ctx, cur, to)
}

// HandleDragDrop applies a drag between columns. Drops outside the board
// and drops back into the same column do nothing; in-column order is not
// stored.
func (r *Reconciler) HandleDragDrop(ctx context.Context, src DropPosition, dst *DropPosition, id string) error {
	if dst == nil || dst.Column == src.Column {
		return nil
	}
	cur, ok := r.Ticket(id)
	if !ok {
		return ticket.NotFound(id)
	}
	return r.transition(ctx, cur, dst.Column)
}

func (r *Reconciler) transition(ctx context.Context, cur *ticket.Ticket, to ticket.Status) error {
	p, err := Transition(cur.Status, to)
	if err != nil {
		return err
	}
	return r.patch(ctx, cur.ID, p, "move")
}

func (r *Reconciler) patch(ctx context.Context, id string, p ticket.Patch, action string) error {
	if p.IsEmpty() {
		return nil
	}
	r.markPending(id, action)
	if err := r.store.Patch(ctx, id, p); err != nil {
		r.clearPending(id)
		log.Error().Err(err).Str("id", id).Str("action", action).Msg("ticket write failed")
		return err
	}
	detail := ""
	if to, ok := p.Status.Value(); ok {
		detail = string(to)
	}
	r.written(action, id, detail)
	return nil
}

// markPending flags id as written but not yet confirmed. The next snapshot
// clears every flag.
func (r *Reconciler) markPending(id, action string) {
	r.mu.Lock()
	r.pending[id] = action
	r.mu.Unlock()
	r.notify()
}

func (r *Reconciler) clearPending(id string) {
	r.mu.Lock()
	delete(r.pending, id)
	r.mu.Unlock()
	r.notify()
}

func (r *Reconciler) written(action, id, detail string) {
	log.Debug().Str("action", action).Str("id", id).Str("detail", detail).Msg("ticket written")
	if r.onMutate != nil {
		r.onMutate(action, id, detail)
	}
}
