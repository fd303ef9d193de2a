// Package period turns named presets into concrete date ranges.
//
// "today" is always supplied by the caller; nothing here reads the clock.
package period

import (
	"fmt"
	"strings"

	"klarity/internal/core"
)

type Preset string

const (
	Today      Preset = "today"
	Yesterday  Preset = "yesterday"
	Last7Days  Preset = "last7days"
	Last30Days Preset = "last30days"
	ThisMonth  Preset = "this_month"
	ThisYear   Preset = "this_year"
	Custom     Preset = "custom"
	All        Preset = "all"
)

// Presets lists every preset in menu order.
var Presets = []Preset{Today, Yesterday, Last7Days, Last30Days, ThisMonth, ThisYear, Custom, All}

var presetAliases = map[string]Preset{
	"last_7_days":  Last7Days,
	"last7":        Last7Days,
	"last_30_days": Last30Days,
	"last30":       Last30Days,
	"month":        ThisMonth,
	"thismonth":    ThisMonth,
	"year":         ThisYear,
	"thisyear":     ThisYear,
}

// ParsePreset maps a query-string value to a Preset. An empty value means
// All.
func ParsePreset(s string) (Preset, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return All, nil
	}
	for _, p := range Presets {
		if string(p) == s {
			return p, nil
		}
	}
	if p, ok := presetAliases[s]; ok {
		return p, nil
	}
	return "", fmt.Errorf("unknown period preset %q", s)
}

// Request names a period. From and To are only read for Custom, and To is
// the last day included.
type Request struct {
	Preset Preset
	From   core.Date
	To     core.Date
}

// CustomRequest builds a Custom request covering first through last.
func CustomRequest(first, last core.Date) Request {
	return Request{Preset: Custom, From: first, To: last}
}

// Resolution is the outcome of resolving a request against the data span.
type Resolution struct {
	Range core.DateRange
	// ClampedToEmpty is set when the requested period has no overlap with
	// the data. Range then holds the full span and callers should present
	// the period as having no data.
	ClampedToEmpty bool
}

// Resolve computes the half-open range of req relative to today and clamps
// it into span, the days actually covered by the ledger.
func Resolve(req Request, today core.Date, span core.DateRange) (Resolution, error) {
	rng, err := rangeFor(req, today, span)
	if err != nil {
		return Resolution{}, err
	}
	if span.IsEmpty() {
		return Resolution{Range: span, ClampedToEmpty: true}, nil
	}
	clamped := rng.Intersect(span)
	if clamped.IsEmpty() {
		return Resolution{Range: span, ClampedToEmpty: true}, nil
	}
	return Resolution{Range: clamped}, nil
}

func rangeFor(req Request, today core.Date, span core.DateRange) (core.DateRange, error) {
	end := today.AddDays(1)
	switch req.Preset {
	case Today:
		return core.NewRange(today, end), nil
	case Yesterday:
		return core.NewRange(today.AddDays(-1), today), nil
	case Last7Days:
		return core.NewRange(today.AddDays(-6), end), nil
	case Last30Days:
		return core.NewRange(today.AddDays(-29), end), nil
	case ThisMonth:
		return core.NewRange(today.StartOfMonth(), end), nil
	case ThisYear:
		return core.NewRange(today.StartOfYear(), end), nil
	case Custom:
		if req.From.IsZero() || req.To.IsZero() {
			return core.DateRange{}, fmt.Errorf("custom period needs both from and to dates")
		}
		if req.From.After(req.To) {
			return core.DateRange{}, &core.RangeError{Kind: core.InvalidCustomRange, From: req.From, To: req.To}
		}
		return core.InclusiveRange(req.From, req.To), nil
	case All, "":
		return span, nil
	}
	return core.DateRange{}, fmt.Errorf("unknown period preset %q", req.Preset)
}
