package insight

import (
	"context"
	"errors"
	"fmt"
	"time"

	"klarity/internal/log"
	"klarity/internal/store"
)

var ErrNoHistory = errors.New("suggestion history is not available for this backend")

// History keeps every suggestion a user was given. A nil *History answers
// ErrNoHistory.
type History struct {
	store  store.SuggestionStore
	logger *log.Logger
}

func NewHistory(s store.SuggestionStore, logger *log.Logger) *History {
	if logger == nil {
		logger = log.Default(log.ComponentApp)
	}
	return &History{store: s, logger: logger}
}

// Record saves sug and returns it with its ID set.
func (h *History) Record(ctx context.Context, userID string, sug Suggestion) (Suggestion, error) {
	if h == nil {
		return sug, ErrNoHistory
	}
	at := sug.CreatedAt
	if at.IsZero() {
		at = time.Now()
	}
	ts, err := h.store.SaveSuggestion(ctx, userID, at, store.SuggestionRecord{
		Kind:   string(sug.Kind),
		Prompt: sug.Prompt,
		Text:   sug.Text,
	})
	if err != nil {
		return sug, fmt.Errorf("save suggestion: %w", err)
	}
	sug.ID = ts
	sug.CreatedAt = time.Unix(ts, 0).UTC()
	h.logger.DebugContext(ctx, "Suggestion saved", log.FieldUserID, userID, "kind", string(sug.Kind), "id", ts)
	return sug, nil
}

// List returns the user's suggestions, newest first.
func (h *History) List(ctx context.Context, userID string) ([]Suggestion, error) {
	if h == nil {
		return nil, ErrNoHistory
	}
	recs, err := h.store.ListSuggestions(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]Suggestion, len(recs))
	for i, r := range recs {
		out[i] = Suggestion{ID: r.TS, Kind: Kind(r.Kind), Prompt: r.Prompt, Text: r.Text, CreatedAt: r.CreatedAt()}
	}
	return out, nil
}

func (h *History) Delete(ctx context.Context, userID string, id int64) error {
	if h == nil {
		return ErrNoHistory
	}
	return h.store.DeleteSuggestion(ctx, userID, id)
}
