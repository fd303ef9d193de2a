// Package charts renders report series to PNG.
package charts

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"github.com/wcharczuk/go-chart/v2"

	"klarity/internal/core"
	"klarity/internal/report"
)

// ErrNoData is returned when there is nothing to draw.
var ErrNoData = errors.New("no data to chart")

const (
	width  = 1200
	height = 600
)

var background = chart.Style{
	Padding:   chart.Box{Top: 50, Left: 50, Right: 50, Bottom: 50},
	FillColor: chart.ColorWhite,
}

func moneyFormatter(v interface{}) string {
	f, ok := v.(float64)
	if !ok {
		return ""
	}
	return report.FormatCurrency(core.MoneyFromFloat(f))
}

// Balance draws the cumulative balance line.
func Balance(series []core.BalancePoint) ([]byte, error) {
	if len(series) == 0 {
		return nil, ErrNoData
	}

	xs := make([]time.Time, 0, len(series)+1)
	ys := make([]float64, 0, len(series)+1)
	// a single day has no x extent; anchor it on the zero balance the day before
	if len(series) == 1 {
		xs = append(xs, series[0].Day.AddDays(-1).Time)
		ys = append(ys, 0)
	}
	for _, p := range series {
		xs = append(xs, p.Day.Time)
		ys = append(ys, p.Balance.Float64())
	}

	graph := chart.Chart{
		Width:      width,
		Height:     height,
		Background: background,
		XAxis: chart.XAxis{
			ValueFormatter: chart.TimeValueFormatterWithFormat("02/01"),
			Style:          chart.Style{FontSize: 12, FontColor: chart.ColorBlack},
		},
		YAxis: chart.YAxis{
			ValueFormatter: moneyFormatter,
			Style:          chart.Style{FontSize: 12, FontColor: chart.ColorBlack},
			Range:          yRange(ys),
		},
		Series: []chart.Series{
			chart.TimeSeries{
				Name:    "Balance",
				XValues: xs,
				YValues: ys,
				Style: chart.Style{
					StrokeColor: chart.ColorBlue,
					StrokeWidth: 3,
				},
			},
		},
	}

	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("failed to render balance chart: %w", err)
	}
	return buf.Bytes(), nil
}

// yRange pins the axis when every value is equal, which go-chart cannot
// scale on its own.
func yRange(ys []float64) chart.Range {
	lo, hi := ys[0], ys[0]
	for _, y := range ys[1:] {
		lo = min(lo, y)
		hi = max(hi, y)
	}
	if lo != hi {
		return nil
	}
	pad := 1.0
	if lo != 0 {
		pad = abs(lo) / 10
	}
	return &chart.ContinuousRange{Min: lo - pad, Max: hi + pad}
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}

// Categories draws the share of each category in totals. Categories with
// a zero net are left out.
func Categories(totals []core.CategoryTotal, title string) ([]byte, error) {
	return pie(totals, title, func(ct core.CategoryTotal) core.Money { return ct.Net().Abs() })
}

// ExpenseBreakdown draws the expenses recorded in each category of r,
// whatever the category's own kind.
func ExpenseBreakdown(r report.Report) ([]byte, error) {
	totals := report.TopExpenseCategories(r.Summary.ByCategory, 0)
	return pie(totals, "Expenses by category", func(ct core.CategoryTotal) core.Money { return ct.Expense })
}

func pie(totals []core.CategoryTotal, title string, amount func(core.CategoryTotal) core.Money) ([]byte, error) {
	var sum float64
	values := make([]chart.Value, 0, len(totals))
	for _, ct := range totals {
		v := abs(amount(ct).Float64())
		if v == 0 {
			continue
		}
		sum += v
		values = append(values, chart.Value{Label: ct.Category.Name, Value: v})
	}
	if len(values) == 0 {
		return nil, ErrNoData
	}
	for i := range values {
		values[i].Label = fmt.Sprintf("%s: %s (%.1f%%)",
			values[i].Label, report.FormatCurrency(core.MoneyFromFloat(values[i].Value)), values[i].Value/sum*100)
		values[i].Style = chart.Style{FontSize: 12, FontColor: chart.ColorBlack}
	}

	graph := chart.PieChart{
		Title:      title,
		Width:      height,
		Height:     height,
		Values:     values,
		Background: background,
	}

	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("failed to render category chart: %w", err)
	}
	return buf.Bytes(), nil
}
