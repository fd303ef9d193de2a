// Package insight assembles the prompts sent to a text generator. The
// generator itself lives outside this module.
package insight

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"klarity/internal/core"
	"klarity/internal/report"
)

var (
	ErrNoTransactions = errors.New("no transactions in the selected range")
	ErrUnknownKind    = errors.New("unknown prompt kind")
	ErrEmptyQuestion  = errors.New("question is empty")
)

// Kind selects a prompt template.
type Kind string

const (
	Summary Kind = "summary"
	Tips    Kind = "tips"
	Plan    Kind = "plan"

	CategoryBreakdown Kind = "category_breakdown"
	IncomeVsExpense   Kind = "income_vs_expense"
	CumulativeBalance Kind = "cumulative_balance"
	TopCategories     Kind = "top_categories"
)

var rangeTemplates = map[Kind]string{
	Summary: "Summarize my transactions between %s and %s:\n%s",
	Tips:    "Based on my transactions between %s and %s, give me 3 short tips to improve my finances:\n%s",
	Plan:    "Based on my transactions between %s and %s, write a 3-step improvement plan:\n%s",
}

var chartTitles = map[Kind]string{
	CategoryBreakdown: "Expenses by category",
	IncomeVsExpense:   "Income vs expense",
	CumulativeBalance: "Cumulative balance",
	TopCategories:     "Top expense categories",
}

// Kinds lists every prompt kind.
func Kinds() []Kind {
	return []Kind{Summary, Tips, Plan, CategoryBreakdown, IncomeVsExpense, CumulativeBalance, TopCategories}
}

func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	if k == "" {
		return Summary, nil
	}
	if _, ok := rangeTemplates[k]; ok {
		return k, nil
	}
	if _, ok := chartTitles[k]; ok {
		return k, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// IsChart reports whether k interprets a chart rather than raw transactions.
func (k Kind) IsChart() bool {
	_, ok := chartTitles[k]
	return ok
}

type transactionJSON struct {
	Date        core.Date `json:"date"`
	Description string    `json:"description"`
	Amount      string    `json:"amount"`
	Kind        core.Kind `json:"kind"`
	Category    string    `json:"category"`
}

func transactionsJSON(txs []core.Transaction) (string, error) {
	rows := make([]transactionJSON, len(txs))
	for i, t := range txs {
		rows[i] = transactionJSON{
			Date:        t.Day,
			Description: t.Description,
			Amount:      t.Amount.StringFixed(),
			Kind:        t.Kind,
			Category:    t.Category.Name,
		}
	}
	b, err := json.MarshalIndent(rows, "", "  ")
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Build returns the prompt of the given kind for report r.
func Build(kind Kind, r report.Report) (string, error) {
	if tmpl, ok := rangeTemplates[kind]; ok {
		return rangePrompt(tmpl, r)
	}
	if kind.IsChart() {
		return ChartPrompt(kind, r)
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, kind)
}

func rangePrompt(tmpl string, r report.Report) (string, error) {
	if len(r.Transactions) == 0 {
		return "", ErrNoTransactions
	}
	data, err := transactionsJSON(r.Transactions)
	if err != nil {
		return "", fmt.Errorf("encode transactions: %w", err)
	}
	return fmt.Sprintf(tmpl, r.Range.From, r.Range.LastDay(), data), nil
}

// ChartPrompt asks for an interpretation of one chart, with the chart's
// data points as JSON.
func ChartPrompt(kind Kind, r report.Report) (string, error) {
	title, ok := chartTitles[kind]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	if r.Summary.Count == 0 {
		return "", ErrNoTransactions
	}

	var data any
	switch kind {
	case CategoryBreakdown:
		data = categoryAmounts(report.TopExpenseCategories(r.Summary.ByCategory, 0))
	case IncomeVsExpense:
		data = map[string]string{
			"income":  r.Summary.TotalIncome.StringFixed(),
			"expense": r.Summary.TotalExpense.StringFixed(),
		}
	case CumulativeBalance:
		points := make(map[string]string, len(r.Summary.CumulativeSeries))
		for _, p := range r.Summary.CumulativeSeries {
			points[p.Day.String()] = p.Balance.StringFixed()
		}
		data = points
	case TopCategories:
		data = categoryAmounts(r.TopExpenses)
	}

	b, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode chart data: %w", err)
	}
	return fmt.Sprintf("Interpret the chart '%s'. Data: %s", title, b), nil
}

// categoryAmounts lists the expense of each category in ranking order,
// which a JSON object would lose.
func categoryAmounts(totals []core.CategoryTotal) []map[string]string {
	out := make([]map[string]string, len(totals))
	for i, ct := range totals {
		out[i] = map[string]string{
			"category": ct.Category.Name,
			"amount":   ct.Expense.StringFixed(),
		}
	}
	return out
}

// QuestionPrompt wraps a free-form question with the user's transactions.
func QuestionPrompt(question string, txs []core.Transaction) (string, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return "", ErrEmptyQuestion
	}
	data, err := transactionsJSON(txs)
	if err != nil {
		return "", fmt.Errorf("encode transactions: %w", err)
	}
	return fmt.Sprintf("%s\n\nHere are my transactions:\n%s", question, data), nil
}
