package store

import (
	"context"
	"fmt"

	"klarity/internal/core"
)

// EnsureDefaultCategories creates the default categories for a user that has
// none yet. It returns the number of categories created.
func EnsureDefaultCategories(ctx context.Context, r LedgerFetcher, w LedgerWriter, userID string) (int, error) {
	raw, err := r.FetchLedger(ctx, userID)
	if err != nil {
		return 0, err
	}
	if len(raw.Categories) > 0 {
		return 0, nil
	}
	created := 0
	for _, c := range core.DefaultCategories() {
		if _, err := w.AddCategory(ctx, userID, c); err != nil {
			return created, fmt.Errorf("create default category %q: %w", c.Name, err)
		}
		created++
	}
	return created, nil
}
