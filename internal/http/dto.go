package http

import (
	"time"

	"klarity/internal/core"
	"klarity/internal/ledger"
	"klarity/internal/report"
)

// amount is a money value as the API shows it: an exact decimal string
// for clients that compute, and a formatted label for clients that print.
type amount struct {
	Value     string `json:"value"`
	Formatted string `json:"formatted"`
}

func amountOf(m core.Money) amount {
	return amount{Value: m.StringFixed(), Formatted: report.FormatCurrency(m)}
}

type categoryJSON struct {
	ID   string    `json:"id"`
	Name string    `json:"name"`
	Kind core.Kind `json:"kind"`
}

func categoryOf(c core.Category) categoryJSON {
	return categoryJSON{ID: c.ID, Name: c.Name, Kind: c.Kind}
}

type transactionJSON struct {
	ID          string       `json:"id"`
	Description string       `json:"description"`
	Amount      amount       `json:"amount"`
	Kind        core.Kind    `json:"kind"`
	Category    categoryJSON `json:"category"`
	OccurredAt  time.Time    `json:"occurred_at"`
	Day         core.Date    `json:"day"`
}

func transactionOf(t core.Transaction) transactionJSON {
	cat := t.Category
	if cat.ID == "" {
		cat.ID = t.CategoryID
	}
	return transactionJSON{
		ID:          t.ID,
		Description: t.Description,
		Amount:      amountOf(t.Amount),
		Kind:        t.Kind,
		Category:    categoryOf(cat),
		OccurredAt:  t.OccurredAt,
		Day:         t.Day,
	}
}

func transactionsOf(txs []core.Transaction) []transactionJSON {
	out := make([]transactionJSON, len(txs))
	for i, t := range txs {
		out[i] = transactionOf(t)
	}
	return out
}

type categoryTotalJSON struct {
	Category categoryJSON `json:"category"`
	Income   amount       `json:"income"`
	Expense  amount       `json:"expense"`
	Net      amount       `json:"net"`
	Count    int          `json:"count"`
}

func categoryTotalsOf(totals []core.CategoryTotal) []categoryTotalJSON {
	out := make([]categoryTotalJSON, len(totals))
	for i, t := range totals {
		out[i] = categoryTotalJSON{
			Category: categoryOf(t.Category),
			Income:   amountOf(t.Income),
			Expense:  amountOf(t.Expense),
			Net:      amountOf(t.Net()),
			Count:    t.Count,
		}
	}
	return out
}

type balancePointJSON struct {
	Day     core.Date `json:"day"`
	Balance amount    `json:"balance"`
}

type rangeJSON struct {
	From core.Date `json:"from"`
	// To is the last day included.
	To core.Date `json:"to"`
}

type reportJSON struct {
	UserID         string              `json:"user_id"`
	Today          core.Date           `json:"today"`
	Preset         string              `json:"preset"`
	Range          rangeJSON           `json:"range"`
	ClampedToEmpty bool                `json:"clamped_to_empty"`
	Count          int                 `json:"count"`
	TotalIncome    amount              `json:"total_income"`
	TotalExpense   amount              `json:"total_expense"`
	NetBalance     amount              `json:"net_balance"`
	TopCategories  []categoryTotalJSON `json:"top_categories"`
	TopExpenses    []categoryTotalJSON `json:"top_expenses"`
	Series         []balancePointJSON  `json:"cumulative_series"`
	Transactions   []transactionJSON   `json:"transactions"`
}

func reportOf(r report.Report, txs []core.Transaction) reportJSON {
	series := make([]balancePointJSON, len(r.Summary.CumulativeSeries))
	for i, p := range r.Summary.CumulativeSeries {
		series[i] = balancePointJSON{Day: p.Day, Balance: amountOf(p.Balance)}
	}
	return reportJSON{
		UserID:         r.UserID,
		Today:          r.Today,
		Preset:         string(r.Preset),
		Range:          rangeJSON{From: r.Range.From, To: r.Range.LastDay()},
		ClampedToEmpty: r.ClampedToEmpty,
		Count:          r.Summary.Count,
		TotalIncome:    amountOf(r.Summary.TotalIncome),
		TotalExpense:   amountOf(r.Summary.TotalExpense),
		NetBalance:     amountOf(r.Summary.NetBalance),
		TopCategories:  categoryTotalsOf(r.TopCategories),
		TopExpenses:    categoryTotalsOf(r.TopExpenses),
		Series:         series,
		Transactions:   transactionsOf(txs),
	}
}

type loadJSON struct {
	Transactions int       `json:"transactions"`
	Categories   int       `json:"categories"`
	Skipped      int       `json:"skipped"`
	Summary      string    `json:"summary"`
	LoadedAt     time.Time `json:"loaded_at"`
}

func loadOf(rep ledger.LoadReport, at time.Time) loadJSON {
	return loadJSON{
		Transactions: rep.Transactions,
		Categories:   rep.Categories,
		Skipped:      len(rep.Skipped),
		Summary:      rep.Summary(),
		LoadedAt:     at,
	}
}

// transactionRequest is the body of POST and PATCH on transactions.
// Category takes an id or a name. On PATCH, absent fields are left alone.
type transactionRequest struct {
	Description *string `json:"description"`
	Amount      *string `json:"amount"`
	Kind        *string `json:"kind"`
	Category    *string `json:"category"`
	OccurredAt  *string `json:"occurred_at"`
}

type categoryRequest struct {
	Name *string `json:"name"`
	Kind *string `json:"kind"`
}

type insightRequest struct {
	Kind     string `json:"kind"`
	Question string `json:"question"`
}
