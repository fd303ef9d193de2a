package report

import (
	"klarity/internal/core"
)

// Aggregate computes totals, per-category sums and the daily running
// balance of txs over rng.
//
// The cumulative series has one point per day of rng, starting from a zero
// balance and carrying the balance forward over days without activity.
// Transactions outside rng count towards the totals but not the series.
// An empty txs yields zero totals and an empty series. A zero rng is
// replaced by the days spanned by txs.
func Aggregate(txs []core.Transaction, rng core.DateRange) core.AggregationResult {
	res := core.AggregationResult{
		Range:            rng,
		Count:            len(txs),
		ByCategory:       make(map[string]core.CategoryTotal),
		CumulativeSeries: []core.BalancePoint{},
	}
	if len(txs) == 0 {
		return res
	}
	if rng.IsZero() {
		rng = daySpan(txs)
		res.Range = rng
	}

	daily := make([]core.Money, rng.Days())
	for _, tx := range txs {
		if tx.Kind == core.Income {
			res.TotalIncome = res.TotalIncome.Add(tx.Amount)
		} else {
			res.TotalExpense = res.TotalExpense.Add(tx.Amount)
		}

		ct, ok := res.ByCategory[tx.CategoryID]
		if !ok {
			ct.Category = tx.Category
		}
		if tx.Kind == core.Income {
			ct.Income = ct.Income.Add(tx.Amount)
		} else {
			ct.Expense = ct.Expense.Add(tx.Amount)
		}
		ct.Count++
		res.ByCategory[tx.CategoryID] = ct

		if rng.Contains(tx.Day) {
			i := core.NewRange(rng.From, tx.Day).Days()
			daily[i] = daily[i].Add(tx.Signed())
		}
	}
	res.NetBalance = res.TotalIncome.Sub(res.TotalExpense)

	res.CumulativeSeries = make([]core.BalancePoint, len(daily))
	balance := core.Zero
	for i, net := range daily {
		balance = balance.Add(net)
		res.CumulativeSeries[i] = core.BalancePoint{Day: rng.From.AddDays(i), Balance: balance}
	}
	return res
}

func daySpan(txs []core.Transaction) core.DateRange {
	first, last := txs[0].Day, txs[0].Day
	for _, tx := range txs[1:] {
		if tx.Day.Before(first) {
			first = tx.Day
		}
		if tx.Day.After(last) {
			last = tx.Day
		}
	}
	return core.InclusiveRange(first, last)
}
