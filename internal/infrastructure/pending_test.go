package infrastructure

import "testing"

func closed(ch <-chan struct{}) bool {
	select {
	case <-ch:
		return true
	default:
		return false
	}
}

func TestPendingRegistry_NewerMessageCancelsOlder(t *testing.T) {
	r := NewPendingRegistry()

	first := r.Register(7)
	if closed(first) {
		t.Fatal("fresh channel should be open")
	}

	second := r.Register(7)
	if !closed(first) {
		t.Fatal("first channel should be closed by second Register")
	}
	if closed(second) {
		t.Fatal("second channel should stay open")
	}
}

func TestPendingRegistry_DifferentUsersIndependent(t *testing.T) {
	r := NewPendingRegistry()

	a := r.Register(1)
	b := r.Register(2)
	r.Register(1)

	if !closed(a) {
		t.Fatal("user 1 channel should be cancelled")
	}
	if closed(b) {
		t.Fatal("user 2 channel should be unaffected")
	}
}

func TestPendingRegistry_ReleaseOnlyOwnChannel(t *testing.T) {
	r := NewPendingRegistry()

	stale := r.Register(7)
	fresh := r.Register(7)

	// The superseded sender releasing must not drop the newer entry; the
	// next Register should still find and close it.
	r.Release(7, stale)
	r.Register(7)
	if !closed(fresh) {
		t.Fatal("fresh registration should still have been tracked")
	}
}

func TestPendingRegistry_ReleaseRemovesEntry(t *testing.T) {
	r := NewPendingRegistry()

	ch := r.Register(7)
	r.Release(7, ch)

	// With the entry gone, a new Register has nothing to close.
	r.Register(7)
	if closed(ch) {
		t.Fatal("released channel should not be closed by a later Register")
	}
}
