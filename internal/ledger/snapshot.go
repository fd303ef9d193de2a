package ledger

import "sync/atomic"

// Snapshot holds the current ledger of a session. Readers get the ledger
// that was current when they called Load and keep it for the whole
// computation; a concurrent Store never affects them.
type Snapshot struct {
	current atomic.Pointer[Ledger]
}

func NewSnapshot(l *Ledger) *Snapshot {
	s := &Snapshot{}
	if l != nil {
		s.current.Store(l)
	}
	return s
}

// Load returns the current ledger, or an empty one if none was stored yet.
func (s *Snapshot) Load() *Ledger {
	if l := s.current.Load(); l != nil {
		return l
	}
	return Empty("")
}

// Loaded reports whether a ledger has been stored.
func (s *Snapshot) Loaded() bool {
	return s.current.Load() != nil
}

// Store replaces the current ledger.
func (s *Snapshot) Store(l *Ledger) {
	s.current.Store(l)
}

// Swap replaces the current ledger and returns the previous one.
func (s *Snapshot) Swap(l *Ledger) *Ledger {
	return s.current.Swap(l)
}
