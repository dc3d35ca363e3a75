// Package dedupe guards the ledger pipeline against recording the same
// emission twice.
package dedupe

import (
	"context"
	"sync"
)

// DefaultMaxSize bounds the guard when no size is configured.
const DefaultMaxSize = 4096

// Deduper records seen emission IDs to ensure at-most-once processing.
type Deduper interface {
	// SeenAndRecord atomically checks if id was seen and records it if not.
	// It returns true if id was already seen.
	SeenAndRecord(ctx context.Context, id string) bool

	// Unrecord forgets id so a failed write can be retried.
	Unrecord(ctx context.Context, id string)

	// Reset forgets every id. Called when a new session starts.
	Reset(ctx context.Context)

	Size() int
}

// Option configures the in-memory deduper.
type Option func(*ringDeduper)

// WithMaxSize bounds the number of remembered IDs. The oldest is evicted first.
// A non-positive size keeps every ID.
func WithMaxSize(n int) Option {
	return func(d *ringDeduper) {
		d.maxSize = n
	}
}

// ringDeduper keeps insertion order in a ring so eviction is O(1).
type ringDeduper struct {
	mu      sync.Mutex
	seen    map[string]int // id -> slot in order
	order   []string
	next    int
	maxSize int
}

// NewInMemoryDeduper creates an in-memory Deduper.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &ringDeduper{maxSize: DefaultMaxSize}
	for _, opt := range opts {
		opt(d)
	}
	d.seen = make(map[string]int)
	if d.maxSize > 0 {
		d.order = make([]string, d.maxSize)
	}
	return d
}

func (d *ringDeduper) SeenAndRecord(_ context.Context, id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.seen[id]; ok {
		return true
	}
	if d.maxSize <= 0 {
		d.seen[id] = -1
		return false
	}

	slot := d.next
	if old := d.order[slot]; old != "" {
		if s, ok := d.seen[old]; ok && s == slot {
			delete(d.seen, old)
		}
	}
	d.order[slot] = id
	d.seen[id] = slot
	d.next = (slot + 1) % d.maxSize
	return false
}

func (d *ringDeduper) Unrecord(_ context.Context, id string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	slot, ok := d.seen[id]
	if !ok {
		return
	}
	delete(d.seen, id)
	if slot >= 0 {
		d.order[slot] = ""
	}
}

func (d *ringDeduper) Reset(_ context.Context) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.seen = make(map[string]int)
	for i := range d.order {
		d.order[i] = ""
	}
	d.next = 0
}

func (d *ringDeduper) Size() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.seen)
}
