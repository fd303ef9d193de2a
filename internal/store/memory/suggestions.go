package memory

import (
	"context"
	"fmt"
	"slices"
	"time"

	"klarity/internal/store"
)

// SaveSuggestion prepends, so each user's history stays newest first.
func (s *Store) SaveSuggestion(_ context.Context, userID string, at time.Time, rec store.SuggestionRecord) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h := s.history[userID]
	rec.TS = at.Unix()
	if len(h) > 0 && h[0].TS >= rec.TS {
		rec.TS = h[0].TS + 1
	}
	s.history[userID] = append([]store.SuggestionRecord{rec}, h...)
	return rec.TS, nil
}

func (s *Store) ListSuggestions(_ context.Context, userID string) ([]store.SuggestionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.history[userID]), nil
}

func (s *Store) DeleteSuggestion(_ context.Context, userID string, ts int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	h := s.history[userID]
	i := slices.IndexFunc(h, func(r store.SuggestionRecord) bool { return r.TS == ts })
	if i < 0 {
		return store.NewError(store.NotFound, "delete suggestion", fmt.Errorf("suggestion %d", ts))
	}
	s.history[userID] = slices.Delete(h, i, i+1)
	return nil
}
