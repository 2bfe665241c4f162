package infrastructure

import "sync"

// PendingRegistry tracks in-flight delayed replies per user. Registering a
// new pending send cancels the previous one, so a fresh inbound text always
// supersedes a reply that has not gone out yet.
type PendingRegistry struct {
	mu      sync.Mutex
	pending map[int]chan struct{}
}

func NewPendingRegistry() *PendingRegistry {
	return &PendingRegistry{pending: make(map[int]chan struct{})}
}

// Register returns a cancellation channel for the user's new pending send.
// Any previously registered channel is closed.
func (r *PendingRegistry) Register(userID int) <-chan struct{} {
	r.mu.Lock()
	defer r.mu.Unlock()

	if prev, ok := r.pending[userID]; ok {
		close(prev)
	}

	ch := make(chan struct{})
	r.pending[userID] = ch
	return ch
}

// Release removes the entry without closing, called after a send completes.
// Only releases if the stored channel is the one the caller registered.
func (r *PendingRegistry) Release(userID int, ch <-chan struct{}) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if cur, ok := r.pending[userID]; ok && (<-chan struct{})(cur) == ch {
		delete(r.pending, userID)
	}
}
