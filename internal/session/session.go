// Package session owns the per-user ledger snapshots that reports are
// computed from, and routes ledger mutations through the store.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"klarity/internal/core"
	"klarity/internal/ledger"
	"klarity/internal/period"
	"klarity/internal/report"
	"klarity/internal/store"
)

var (
	ErrEmptyUserID        = errors.New("user id is required")
	ErrCategoryKindLocked = errors.New("category kind cannot change while transactions reference it")
	ErrCategoryInUse      = errors.New("category is referenced by transactions")
	ErrDuplicateCategory  = errors.New("a category with this name already exists")
	ErrKindMismatch       = errors.New("transaction kind does not match its category")
)

// Session holds one user's current ledger. Readers always see a complete
// ledger: a refresh builds the new one aside and swaps it in.
type Session struct {
	userID  string
	fetcher store.LedgerFetcher
	opts    ledger.Options
	snap    *ledger.Snapshot

	mu       sync.Mutex
	last     ledger.LoadReport
	loadedAt time.Time
}

func newSession(userID string, fetcher store.LedgerFetcher, opts ledger.Options) *Session {
	return &Session{
		userID:  userID,
		fetcher: fetcher,
		opts:    opts,
		snap:    ledger.NewSnapshot(ledger.Empty(userID)),
	}
}

func (s *Session) UserID() string { return s.userID }

// Refresh refetches the ledger. On a store error the previous snapshot is
// kept and the error returned.
func (s *Session) Refresh(ctx context.Context) (ledger.LoadReport, error) {
	raw, err := s.fetcher.FetchLedger(ctx, s.userID)
	if err != nil {
		return ledger.LoadReport{}, err
	}
	if raw.UserID == "" {
		raw.UserID = s.userID
	}
	l, rep := ledger.Build(raw, s.opts)
	s.snap.Store(l)

	s.mu.Lock()
	s.last = rep
	s.loadedAt = time.Now()
	s.mu.Unlock()
	return rep, nil
}

// Ledger returns the current snapshot.
func (s *Session) Ledger() *ledger.Ledger {
	return s.snap.Load()
}

// LastLoad returns the report of the most recent successful refresh and
// when it happened.
func (s *Session) LastLoad() (ledger.LoadReport, time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last, s.loadedAt
}

// Report computes a report over the current snapshot.
func (s *Session) Report(req period.Request, today core.Date, topN int) (report.Report, error) {
	return report.Build(s.Ledger(), req, today, topN)
}
