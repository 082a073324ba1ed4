package board

import (
	"context"
	"math/rand/v2"
	"strconv"
	"sync"

	"github.com/twiced-technology-gmbh/ticketboard/internal/clierr"
)

// Allocation defaults: five-digit ids, one hundred tries.
const (
	DefaultIDDigits    = 5
	DefaultMaxAttempts = 100
)

// ExistenceChecker asks the store whether an id is taken.
type ExistenceChecker interface {
	Exists(ctx context.Context, id string) (bool, error)
}

// IDAllocator hands out random fixed-width numeric ids. Candidates are
// checked against the ids seen in the latest snapshot, then against the
// store, and reserved locally once accepted.
type IDAllocator struct {
	checker     ExistenceChecker
	digits      int
	maxAttempts int
	intN        func(n int) int

	mu    sync.Mutex
	known map[string]struct{}
}

// AllocatorOption configures an IDAllocator.
type AllocatorOption func(*IDAllocator)

// WithDigits sets the id width.
func WithDigits(n int) AllocatorOption {
	return func(a *IDAllocator) { a.digits = n }
}

// WithMaxAttempts sets how many candidates are tried before giving up.
func WithMaxAttempts(n int) AllocatorOption {
	return func(a *IDAllocator) { a.maxAttempts = n }
}

// WithRandom replaces the candidate source. intN must return a value in [0, n).
func WithRandom(intN func(n int) int) AllocatorOption {
	return func(a *IDAllocator) { a.intN = intN }
}

// NewIDAllocator creates an allocator that double-checks candidates with checker.
func NewIDAllocator(checker ExistenceChecker, opts ...AllocatorOption) *IDAllocator {
	a := &IDAllocator{
		checker:     checker,
		digits:      DefaultIDDigits,
		maxAttempts: DefaultMaxAttempts,
		intN:        rand.IntN,
		known:       make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Reset replaces the cache with the ids of the current snapshot.
func (a *IDAllocator) Reset(ids []string) {
	known := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		known[id] = struct{}{}
	}
	a.mu.Lock()
	a.known = known
	a.mu.Unlock()
}

// Known reports whether id is in the cache.
func (a *IDAllocator) Known(id string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	_, ok := a.known[id]
	return ok
}

// Release drops a reservation made for a create that did not go through.
func (a *IDAllocator) Release(id string) {
	a.mu.Lock()
	delete(a.known, id)
	a.mu.Unlock()
}

// Allocate returns an id that is neither cached nor present in the store.
// After maxAttempts rejected candidates it fails with ID_EXHAUSTED.
func (a *IDAllocator) Allocate(ctx context.Context) (string, error) {
	lo := pow10(a.digits - 1)
	span := pow10(a.digits) - lo

	for range a.maxAttempts {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		candidate := strconv.Itoa(lo + a.intN(span))
		if a.Known(candidate) {
			continue
		}

		taken, err := a.checker.Exists(ctx, candidate)
		if err != nil {
			return "", clierr.Wrap(clierr.StoreWriteFailed, err, "checking id %s", candidate)
		}
		if taken {
			a.mu.Lock()
			a.known[candidate] = struct{}{}
			a.mu.Unlock()
			continue
		}

		a.mu.Lock()
		if _, raced := a.known[candidate]; raced {
			a.mu.Unlock()
			continue
		}
		a.known[candidate] = struct{}{}
		a.mu.Unlock()
		return candidate, nil
	}

	return "", clierr.Newf(clierr.IDExhausted,
		"no free %d-digit ticket id found after %d attempts", a.digits, a.maxAttempts).
		WithDetails(map[string]any{"digits": a.digits, "attempts": a.maxAttempts})
}

func pow10(n int) int {
	v := 1
	for range n {
		v *= 10
	}
	return v
}
