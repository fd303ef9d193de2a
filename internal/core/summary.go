package core

// CategoryTotal accumulates the transactions of one category.
type CategoryTotal struct {
	Category Category
	Income   Money
	Expense  Money
	Count    int
}

// Net is income minus expense, so expense categories come out negative.
func (c CategoryTotal) Net() Money {
	return c.Income.Sub(c.Expense)
}

// BalancePoint is the running balance at the end of Day.
type BalancePoint struct {
	Day     Date
	Balance Money
}

// AggregationResult summarizes a set of transactions over a range.
type AggregationResult struct {
	Range            DateRange
	Count            int
	TotalIncome      Money
	TotalExpense     Money
	NetBalance       Money
	ByCategory       map[string]CategoryTotal // keyed by category ID
	CumulativeSeries []BalancePoint
}
