package store

import (
	"context"
	"time"
)

// SuggestionRecord is one saved advisor answer. TS, the unix second it was
// saved at, is its key within the user's history.
type SuggestionRecord struct {
	TS     int64
	Kind   string
	Prompt string
	Text   string
}

// CreatedAt returns TS as a time.
func (r SuggestionRecord) CreatedAt() time.Time {
	return time.Unix(r.TS, 0).UTC()
}

// SuggestionStore keeps a per-user history of generated suggestions.
// SaveSuggestion keys the record by at, moved forward a second at a time
// past any key already taken, and returns the key used. ListSuggestions
// returns newest first. DeleteSuggestion reports NotFound for unknown keys.
type SuggestionStore interface {
	SaveSuggestion(ctx context.Context, userID string, at time.Time, rec SuggestionRecord) (int64, error)
	ListSuggestions(ctx context.Context, userID string) ([]SuggestionRecord, error)
	DeleteSuggestion(ctx context.Context, userID string, ts int64) error
}
