package report

import (
	"fmt"
	"io"
	"text/tabwriter"

	"klarity/internal/core"
	"klarity/internal/ledger"
	"klarity/internal/period"
)

// DefaultTopN is how many categories a report ranks unless told otherwise.
const DefaultTopN = 5

// Report is everything a presentation layer needs for one period.
type Report struct {
	UserID         string
	Today          core.Date
	Preset         period.Preset
	Range          core.DateRange
	ClampedToEmpty bool
	Transactions   []core.Transaction
	Summary        core.AggregationResult
	TopCategories  []core.CategoryTotal
	TopExpenses    []core.CategoryTotal
}

// Build runs the whole pipeline: resolve the period against the ledger's
// span, filter, aggregate and rank. A period without data yields an empty
// report with ClampedToEmpty set rather than an error.
func Build(l *ledger.Ledger, req period.Request, today core.Date, topN int) (Report, error) {
	res, err := period.Resolve(req, today, l.Span())
	if err != nil {
		return Report{}, err
	}
	if topN <= 0 {
		topN = DefaultTopN
	}

	r := Report{
		UserID:         l.UserID(),
		Today:          today,
		Preset:         req.Preset,
		Range:          res.Range,
		ClampedToEmpty: res.ClampedToEmpty,
	}
	if res.ClampedToEmpty {
		r.Transactions = []core.Transaction{}
		r.Summary = Aggregate(nil, res.Range)
	} else {
		r.Transactions = FilterLedger(l, res.Range)
		r.Summary = Aggregate(r.Transactions, res.Range)
	}
	r.TopCategories = TopNCategories(r.Summary.ByCategory, topN)
	r.TopExpenses = TopExpenseCategories(r.Summary.ByCategory, topN)
	return r, nil
}

// WriteText prints a plain-text rendition of the report.
func (r Report) WriteText(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	if r.Range.IsZero() {
		fmt.Fprintf(tw, "Period:\tno data\n")
	} else {
		fmt.Fprintf(tw, "Period:\t%s .. %s\n", r.Range.From, r.Range.LastDay())
	}
	if r.ClampedToEmpty {
		fmt.Fprintf(tw, "No transactions in the requested period.\n")
	}
	fmt.Fprintf(tw, "Income:\t%s\n", FormatCurrency(r.Summary.TotalIncome))
	fmt.Fprintf(tw, "Expense:\t%s\n", FormatCurrency(r.Summary.TotalExpense))
	fmt.Fprintf(tw, "Balance:\t%s\n", FormatCurrency(r.Summary.NetBalance))
	fmt.Fprintf(tw, "Transactions:\t%d\n", r.Summary.Count)
	if len(r.TopCategories) > 0 {
		fmt.Fprintf(tw, "\nCategory\tKind\tNet\tCount\n")
		for _, ct := range r.TopCategories {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%d\n", ct.Category.Name, ct.Category.Kind, FormatCurrency(ct.Net()), ct.Count)
		}
	}
	return tw.Flush()
}
