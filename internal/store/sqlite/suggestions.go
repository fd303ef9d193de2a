package sqlite

import (
	"context"
	"strconv"
	"time"

	"klarity/internal/store"
)

var _ store.SuggestionStore = (*Store)(nil)

// SaveSuggestion picks the key and inserts in one statement, so concurrent
// saves in the same second get distinct keys.
func (s *Store) SaveSuggestion(ctx context.Context, userID string, at time.Time, rec store.SuggestionRecord) (int64, error) {
	var ts int64
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO suggestions (user_id, ts, kind, prompt, text)
		 SELECT ?, MAX(?, COALESCE(MAX(ts) + 1, 0)), ?, ?, ?
		 FROM suggestions WHERE user_id = ?
		 RETURNING ts`,
		userID, at.Unix(), rec.Kind, rec.Prompt, rec.Text, userID,
	).Scan(&ts)
	if err != nil {
		return 0, classify("save suggestion", err)
	}
	return ts, nil
}

func (s *Store) ListSuggestions(ctx context.Context, userID string) ([]store.SuggestionRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT ts, kind, prompt, text FROM suggestions WHERE user_id = ? ORDER BY ts DESC`, userID)
	if err != nil {
		return nil, classify("list suggestions", err)
	}
	defer rows.Close()

	var out []store.SuggestionRecord
	for rows.Next() {
		var rec store.SuggestionRecord
		if err := rows.Scan(&rec.TS, &rec.Kind, &rec.Prompt, &rec.Text); err != nil {
			return nil, store.NewError(store.Malformed, "list suggestions", err)
		}
		out = append(out, rec)
	}
	return out, classify("list suggestions", rows.Err())
}

func (s *Store) DeleteSuggestion(ctx context.Context, userID string, ts int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM suggestions WHERE user_id = ? AND ts = ?`, userID, ts)
	return affected("delete suggestion", res, err, strconv.FormatInt(ts, 10))
}
