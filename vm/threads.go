package vm

import (
	"sync"

	"github.com/dr8co/quill/object"
)

// ThreadResult is what a spawned thread deposits once its closure
// returns: either a value, or the error that aborted it.
type ThreadResult struct {
	Value object.Object
	Err   error
}

// ThreadTable tracks in-flight and completed threads spawned by
// OpCallThread, keyed by a monotonically increasing handle — mirroring
// the host language's own thread table, with a Go channel standing in
// for a join handle.
type ThreadTable struct {
	mu       sync.Mutex
	next     uint64
	pending  map[uint64]chan ThreadResult
	done     map[uint64]ThreadResult
}

// NewThreadTable returns an empty thread table.
func NewThreadTable() *ThreadTable {
	return &ThreadTable{
		pending: make(map[uint64]chan ThreadResult),
		done:    make(map[uint64]ThreadResult),
	}
}

// Spawn reserves a handle and returns the channel the owning goroutine
// must deliver its result on exactly once.
func (t *ThreadTable) Spawn() (uint64, chan ThreadResult) {
	t.mu.Lock()
	defer t.mu.Unlock()
	handle := t.next
	t.next++
	ch := make(chan ThreadResult, 1)
	t.pending[handle] = ch
	return handle, ch
}

// Join blocks until the thread at handle has deposited its result. A
// handle may be joined more than once; the result is cached after the
// first join so later joins don't block on an already-drained channel.
// Joining an unknown handle reports false rather than blocking forever.
func (t *ThreadTable) Join(handle uint64) (ThreadResult, bool) {
	t.mu.Lock()
	if res, ok := t.done[handle]; ok {
		t.mu.Unlock()
		return res, true
	}
	ch, ok := t.pending[handle]
	t.mu.Unlock()
	if !ok {
		return ThreadResult{}, false
	}

	res := <-ch
	t.mu.Lock()
	t.done[handle] = res
	delete(t.pending, handle)
	t.mu.Unlock()
	return res, true
}
