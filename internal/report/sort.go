package report

import (
	"fmt"
	"sort"
	"strings"

	"klarity/internal/core"
)

// Column is a sortable column of the transactions table.
type Column string

const (
	ColumnDate        Column = "date"
	ColumnDescription Column = "description"
	ColumnAmount      Column = "amount"
	ColumnKind        Column = "kind"
	ColumnCategory    Column = "category"
)

func ParseColumn(s string) (Column, error) {
	switch c := Column(strings.ToLower(strings.TrimSpace(s))); c {
	case "":
		return ColumnDate, nil
	case ColumnDate, ColumnDescription, ColumnAmount, ColumnKind, ColumnCategory:
		return c, nil
	}
	return "", fmt.Errorf("unknown sort column %q", s)
}

// SortTransactions returns a sorted copy of txs. Dates and amounts compare
// numerically, text columns case-insensitively. Equal rows keep id order
// regardless of direction.
func SortTransactions(txs []core.Transaction, col Column, desc bool) []core.Transaction {
	out := append([]core.Transaction(nil), txs...)
	sort.SliceStable(out, func(i, j int) bool {
		c := compare(out[i], out[j], col)
		if c == 0 {
			return out[i].ID < out[j].ID
		}
		if desc {
			return c > 0
		}
		return c < 0
	})
	return out
}

func compare(a, b core.Transaction, col Column) int {
	switch col {
	case ColumnAmount:
		return a.Amount.Cmp(b.Amount)
	case ColumnDescription:
		return strings.Compare(strings.ToLower(a.Description), strings.ToLower(b.Description))
	case ColumnKind:
		return strings.Compare(string(a.Kind), string(b.Kind))
	case ColumnCategory:
		return strings.Compare(strings.ToLower(a.Category.Name), strings.ToLower(b.Category.Name))
	default:
		return a.OccurredAt.Compare(b.OccurredAt)
	}
}
