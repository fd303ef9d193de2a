// Package report filters, aggregates and formats ledger transactions for
// presentation. Everything here is pure.
package report

import (
	"sort"

	"klarity/internal/core"
	"klarity/internal/ledger"
)

// Filter returns the transactions whose day lies in rng, in ascending
// time order. The input is not modified.
func Filter(txs []core.Transaction, rng core.DateRange) []core.Transaction {
	out := make([]core.Transaction, 0, len(txs))
	for _, tx := range txs {
		if rng.Contains(tx.Day) {
			out = append(out, tx)
		}
	}
	sortByTime(out)
	return out
}

// FilterLedger is Filter over a ledger's time index.
func FilterLedger(l *ledger.Ledger, rng core.DateRange) []core.Transaction {
	return l.Between(rng)
}

func sortByTime(txs []core.Transaction) {
	sort.SliceStable(txs, func(i, j int) bool {
		a, b := txs[i], txs[j]
		if !a.OccurredAt.Equal(b.OccurredAt) {
			return a.OccurredAt.Before(b.OccurredAt)
		}
		return a.ID < b.ID
	})
}
