package charts

import (
	"bytes"
	"errors"
	"testing"

	"klarity/internal/core"
	"klarity/internal/report"
)

var pngMagic = []byte("\x89PNG\r\n\x1a\n")

func point(day int, balance string) core.BalancePoint {
	return core.BalancePoint{Day: core.NewDate(2024, 3, day), Balance: core.MustParseMoney(balance)}
}

func TestBalance(t *testing.T) {
	tests := []struct {
		name   string
		series []core.BalancePoint
	}{
		{"rising", []core.BalancePoint{point(1, "100"), point(2, "40"), point(3, "250.5")}},
		{"single day", []core.BalancePoint{point(5, "-20")}},
		{"flat", []core.BalancePoint{point(1, "0"), point(2, "0")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			png, err := Balance(tt.series)
			if err != nil {
				t.Fatalf("Balance() error = %v", err)
			}
			if !bytes.HasPrefix(png, pngMagic) {
				t.Fatal("output is not a PNG")
			}
		})
	}
}

func TestBalanceNoData(t *testing.T) {
	if _, err := Balance(nil); !errors.Is(err, ErrNoData) {
		t.Fatalf("Balance(nil) error = %v, want ErrNoData", err)
	}
}

func TestCategories(t *testing.T) {
	food := core.Category{ID: "c1", Name: "Food", Kind: core.Expense}
	rent := core.Category{ID: "c2", Name: "Rent", Kind: core.Expense}
	totals := []core.CategoryTotal{
		{Category: food, Expense: core.MustParseMoney("120"), Count: 3},
		{Category: rent, Expense: core.MustParseMoney("900"), Count: 1},
	}
	png, err := Categories(totals, "Expenses")
	if err != nil {
		t.Fatalf("Categories() error = %v", err)
	}
	if !bytes.HasPrefix(png, pngMagic) {
		t.Fatal("output is not a PNG")
	}

	zero := []core.CategoryTotal{{Category: food}}
	if _, err := Categories(zero, "Expenses"); !errors.Is(err, ErrNoData) {
		t.Fatalf("all-zero totals error = %v, want ErrNoData", err)
	}
}

func TestExpenseBreakdownSkipsIncome(t *testing.T) {
	salary := core.Category{ID: "c9", Name: "Salary", Kind: core.Income}
	r := report.Report{Summary: core.AggregationResult{
		ByCategory: map[string]core.CategoryTotal{
			"c9": {Category: salary, Income: core.MustParseMoney("1000"), Count: 1},
		},
	}}
	if _, err := ExpenseBreakdown(r); !errors.Is(err, ErrNoData) {
		t.Fatalf("ExpenseBreakdown() error = %v, want ErrNoData", err)
	}
}

func TestExpenseBreakdownRefundedCategory(t *testing.T) {
	food := core.Category{ID: "c1", Name: "Food", Kind: core.Expense}
	// income first, so the category carries the income kind
	other := core.Category{ID: core.UncategorizedID, Name: "Uncategorized", Kind: core.Income}
	r := report.Report{Summary: core.AggregationResult{
		ByCategory: map[string]core.CategoryTotal{
			"c1":                 {Category: food, Expense: core.MustParseMoney("500"), Income: core.MustParseMoney("500"), Count: 2},
			core.UncategorizedID: {Category: other, Expense: core.MustParseMoney("400"), Count: 1},
		},
	}}
	png, err := ExpenseBreakdown(r)
	if err != nil {
		t.Fatalf("ExpenseBreakdown() error = %v", err)
	}
	if !bytes.HasPrefix(png, pngMagic) {
		t.Fatal("output is not a PNG")
	}
}
