package period

import (
	"errors"
	"testing"

	"klarity/internal/core"
)

func d(y, m, day int) core.Date { return core.NewDate(y, m, day) }

func TestResolvePresets(t *testing.T) {
	today := d(2025, 7, 15)
	// Wide span so nothing is clamped.
	span := core.NewRange(d(2020, 1, 1), d(2030, 1, 1))

	tests := []struct {
		name     string
		req      Request
		from, to core.Date
	}{
		{"today", Request{Preset: Today}, d(2025, 7, 15), d(2025, 7, 16)},
		{"yesterday", Request{Preset: Yesterday}, d(2025, 7, 14), d(2025, 7, 15)},
		{"last 7 days", Request{Preset: Last7Days}, d(2025, 7, 9), d(2025, 7, 16)},
		{"last 30 days", Request{Preset: Last30Days}, d(2025, 6, 16), d(2025, 7, 16)},
		{"this month", Request{Preset: ThisMonth}, d(2025, 7, 1), d(2025, 7, 16)},
		{"this year", Request{Preset: ThisYear}, d(2025, 1, 1), d(2025, 7, 16)},
		{"custom", CustomRequest(d(2025, 3, 1), d(2025, 3, 31)), d(2025, 3, 1), d(2025, 4, 1)},
		{"custom single day", CustomRequest(d(2025, 3, 5), d(2025, 3, 5)), d(2025, 3, 5), d(2025, 3, 6)},
		{"all", Request{Preset: All}, d(2020, 1, 1), d(2030, 1, 1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Resolve(tt.req, today, span)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if res.ClampedToEmpty {
				t.Fatal("unexpected ClampedToEmpty")
			}
			if !res.Range.From.Equal(tt.from) || !res.Range.To.Equal(tt.to) {
				t.Fatalf("got %s, want [%s, %s)", res.Range, tt.from, tt.to)
			}
		})
	}
}

func TestResolveIsDeterministic(t *testing.T) {
	today := d(2025, 7, 15)
	span := core.NewRange(d(2025, 1, 1), d(2026, 1, 1))
	first, _ := Resolve(Request{Preset: ThisMonth}, today, span)
	for i := 0; i < 10; i++ {
		again, _ := Resolve(Request{Preset: ThisMonth}, today, span)
		if again != first {
			t.Fatalf("run %d returned %s, first run %s", i, again.Range, first.Range)
		}
	}
	if first.Range.String() != "[2025-07-01, 2025-07-16)" {
		t.Fatalf("this month = %s", first.Range)
	}
}

func TestResolveClampsIntoSpan(t *testing.T) {
	today := d(2025, 7, 15)
	// Data only from the 10th to the 12th inclusive.
	span := core.NewRange(d(2025, 7, 10), d(2025, 7, 13))

	res, err := Resolve(Request{Preset: ThisMonth}, today, span)
	if err != nil {
		t.Fatal(err)
	}
	if res.ClampedToEmpty || res.Range != span {
		t.Fatalf("expected clamp to span, got %s (empty=%v)", res.Range, res.ClampedToEmpty)
	}

	res, _ = Resolve(CustomRequest(d(2025, 7, 11), d(2025, 8, 30)), today, span)
	if res.Range.String() != "[2025-07-11, 2025-07-13)" {
		t.Fatalf("custom clamp = %s", res.Range)
	}
}

func TestResolveClampedToEmpty(t *testing.T) {
	today := d(2025, 7, 15)
	span := core.NewRange(d(2025, 1, 1), d(2025, 2, 1))

	for _, p := range []Preset{Today, Yesterday, Last7Days, Last30Days, ThisMonth} {
		res, err := Resolve(Request{Preset: p}, today, span)
		if err != nil {
			t.Fatalf("%s: %v", p, err)
		}
		if !res.ClampedToEmpty || res.Range != span {
			t.Fatalf("%s: expected span with ClampedToEmpty, got %s (empty=%v)", p, res.Range, res.ClampedToEmpty)
		}
	}

	res, _ := Resolve(Request{Preset: ThisYear}, today, span)
	if res.ClampedToEmpty {
		t.Fatal("this year overlaps January and should not be empty")
	}
}

func TestResolveEmptyLedger(t *testing.T) {
	res, err := Resolve(Request{Preset: All}, d(2025, 7, 15), core.DateRange{})
	if err != nil {
		t.Fatal(err)
	}
	if !res.ClampedToEmpty || !res.Range.IsZero() {
		t.Fatalf("expected zero span with ClampedToEmpty, got %+v", res)
	}
}

func TestResolveInvalidCustomRange(t *testing.T) {
	span := core.NewRange(d(2025, 1, 1), d(2026, 1, 1))
	_, err := Resolve(CustomRequest(d(2025, 7, 10), d(2025, 7, 1)), d(2025, 7, 15), span)
	if !errors.Is(err, core.ErrInvalidCustomRange) {
		t.Fatalf("expected ErrInvalidCustomRange, got %v", err)
	}
	var rerr *core.RangeError
	if !errors.As(err, &rerr) || !rerr.From.Equal(d(2025, 7, 10)) {
		t.Fatalf("expected *core.RangeError, got %T", err)
	}

	if _, err := Resolve(Request{Preset: Custom}, d(2025, 7, 15), span); err == nil {
		t.Fatal("expected error for custom without dates")
	}
	if _, err := Resolve(Request{Preset: "fortnight"}, d(2025, 7, 15), span); err == nil {
		t.Fatal("expected error for unknown preset")
	}
}

func TestParsePreset(t *testing.T) {
	cases := map[string]Preset{
		"":             All,
		"today":        Today,
		"Yesterday":    Yesterday,
		"last_7_days":  Last7Days,
		"last30days":   Last30Days,
		"this_month":   ThisMonth,
		"year":         ThisYear,
		"custom":       Custom,
		" all ":        All,
		"last_30_days": Last30Days,
	}
	for in, want := range cases {
		got, err := ParsePreset(in)
		if err != nil || got != want {
			t.Errorf("ParsePreset(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	if _, err := ParsePreset("quarter"); err == nil {
		t.Fatal("expected error")
	}
}
