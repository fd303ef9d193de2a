package report

import (
	"sort"
	"strings"

	"klarity/internal/core"
)

// FormatCurrency renders m as whole currency units with a dot as the
// thousands separator, e.g. "$1.234.568". Halves round to even. Negative
// amounts are prefixed with a minus sign: "-$1.234".
func FormatCurrency(m core.Money) string {
	r := m.Round(0)
	digits := r.Abs().Decimal().StringFixed(0)

	var b strings.Builder
	if r.IsNegative() {
		b.WriteByte('-')
	}
	b.WriteByte('$')
	lead := len(digits) % 3
	if lead == 0 {
		lead = 3
	}
	b.WriteString(digits[:lead])
	for i := lead; i < len(digits); i += 3 {
		b.WriteByte('.')
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}

// TopNCategories orders categories by the magnitude of their net sum,
// largest first, breaking ties by name and then id. n <= 0 returns all.
func TopNCategories(byCategory map[string]core.CategoryTotal, n int) []core.CategoryTotal {
	rows := make([]core.CategoryTotal, 0, len(byCategory))
	for _, ct := range byCategory {
		rows = append(rows, ct)
	}
	sort.Slice(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if c := a.Net().Abs().Cmp(b.Net().Abs()); c != 0 {
			return c > 0
		}
		if a.Category.Name != b.Category.Name {
			return a.Category.Name < b.Category.Name
		}
		return a.Category.ID < b.Category.ID
	})
	if n > 0 && n < len(rows) {
		rows = rows[:n]
	}
	return rows
}

// TopExpenseCategories ranks categories by the expense recorded in them,
// largest first, whatever kind the category itself has. Categories without
// expenses are left out. n <= 0 returns all.
func TopExpenseCategories(byCategory map[string]core.CategoryTotal, n int) []core.CategoryTotal {
	rows := make([]core.CategoryTotal, 0, len(byCategory))
	for _, ct := range byCategory {
		if ct.Expense.Sign() > 0 {
			rows = append(rows, ct)
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if c := a.Expense.Cmp(b.Expense); c != 0 {
			return c > 0
		}
		if a.Category.Name != b.Category.Name {
			return a.Category.Name < b.Category.Name
		}
		return a.Category.ID < b.Category.ID
	})
	if n > 0 && n < len(rows) {
		rows = rows[:n]
	}
	return rows
}
