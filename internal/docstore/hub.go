package docstore

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"
)

// ListFunc returns every document in a collection, in any order.
type ListFunc func(ctx context.Context, collection string) ([]Document, error)

// Hub fans out snapshots to subscribers. Each subscription runs its own
// delivery goroutine; notifications arriving while a snapshot is being
// built are coalesced into one more delivery, so the last snapshot a
// subscriber sees always reflects the latest write.
type Hub struct {
	list ListFunc

	mu     sync.Mutex
	subs   map[uint64]*subscription
	nextID uint64
	closed bool
}

type subscription struct {
	query      Query
	onSnapshot func([]Document)
	onError    func(error)
	kick       chan struct{}
	errs       chan error
	cancel     context.CancelFunc
}

// NewHub creates a hub that builds snapshots with list.
func NewHub(list ListFunc) *Hub {
	return &Hub{list: list, subs: make(map[uint64]*subscription)}
}

// Subscribe registers a subscription and schedules its initial snapshot.
func (h *Hub) Subscribe(ctx context.Context, q Query, onSnapshot func([]Document), onError func(error)) (Unsubscribe, error) {
	if err := ValidateID(q.Collection); err != nil {
		return nil, err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil, ErrClosed
	}

	subCtx, cancel := context.WithCancel(ctx)
	sub := &subscription{
		query:      q,
		onSnapshot: onSnapshot,
		onError:    onError,
		kick:       make(chan struct{}, 1),
		errs:       make(chan error, 1),
		cancel:     cancel,
	}
	id := h.nextID
	h.nextID++
	h.subs[id] = sub

	sub.kick <- struct{}{}
	go h.run(subCtx, sub)

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			h.mu.Lock()
			delete(h.subs, id)
			h.mu.Unlock()
		})
	}, nil
}

func (h *Hub) run(ctx context.Context, sub *subscription) {
	for {
		select {
		case <-ctx.Done():
			return
		case err := <-sub.errs:
			if sub.onError != nil {
				sub.onError(err)
			}
		case <-sub.kick:
			docs, err := h.list(ctx, sub.query.Collection)
			if ctx.Err() != nil {
				return
			}
			if err != nil {
				log.Warn().Err(err).Str("collection", sub.query.Collection).Msg("snapshot failed")
				if sub.onError != nil {
					sub.onError(err)
				}
				continue
			}
			SortDocuments(docs, sub.query)
			sub.onSnapshot(docs)
		}
	}
}

// Notify schedules a fresh snapshot for every subscriber of collection.
func (h *Hub) Notify(collection string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, sub := range h.subs {
		if sub.query.Collection == collection {
			kick(sub)
		}
	}
}

// NotifyAll schedules a fresh snapshot for every subscriber.
func (h *Hub) NotifyAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, sub := range h.subs {
		kick(sub)
	}
}

// Fail reports err to every subscriber's error handler.
func (h *Hub) Fail(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, sub := range h.subs {
		select {
		case sub.errs <- err:
		default:
		}
	}
}

// Len returns the number of live subscriptions.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Close cancels every subscription. Later Subscribe calls fail with ErrClosed.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for id, sub := range h.subs {
		sub.cancel()
		delete(h.subs, id)
	}
}

func kick(sub *subscription) {
	select {
	case sub.kick <- struct{}{}:
	default:
	}
}
