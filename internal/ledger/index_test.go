package ledger

import (
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"klarity/internal/core"
	"klarity/internal/store"
)

func unix(y, m, d, h int) int64 {
	return time.Date(y, time.Month(m), d, h, 0, 0, 0, time.UTC).Unix()
}

func sampleRaw() store.RawLedger {
	return store.RawLedger{
		UserID: "u1",
		Categories: []store.Record{
			{Key: "salary", Fields: map[string]any{"name": "Salary", "kind": "income"}},
			{Key: "food", Fields: map[string]any{"name": "Food", "kind": "expense"}},
		},
		Transactions: []store.Record{
			{Key: "t3", Fields: map[string]any{"amount": "2000", "kind": "expense", "category_id": "food", "occurred_at": unix(2025, 7, 3, 12)}},
			{Key: "t1", Fields: map[string]any{"amount": 10000.0, "kind": "income", "category_id": "salary", "occurred_at": float64(unix(2025, 7, 1, 9))}},
			{Key: "t2", Fields: map[string]any{"amount": "2500", "kind": "expense", "category_id": "food", "occurred_at": "2025-07-02T18:00:00Z"}},
		},
	}
}

func TestBuildIndexesAndOrders(t *testing.T) {
	l, report := Build(sampleRaw(), Options{})
	if report.Partial() {
		t.Fatalf("unexpected skipped records: %v", report.Err())
	}
	if report.Transactions != 3 || report.Categories != 2 {
		t.Fatalf("report = %+v", report)
	}
	if l.UserID() != "u1" || l.Len() != 3 {
		t.Fatalf("ledger user=%q len=%d", l.UserID(), l.Len())
	}

	txs := l.Transactions()
	for i, want := range []string{"t1", "t2", "t3"} {
		if txs[i].ID != want {
			t.Fatalf("position %d = %s, want %s", i, txs[i].ID, want)
		}
	}

	t2, ok := l.Transaction("t2")
	if !ok {
		t.Fatal("t2 not found by id")
	}
	if !t2.Amount.Equal(core.MoneyFromInt(2500)) || t2.Kind != core.Expense || t2.Category.Name != "Food" {
		t.Fatalf("t2 = %+v", t2)
	}
	if !t2.Day.Equal(core.NewDate(2025, 7, 2)) {
		t.Fatalf("t2 day = %s", t2.Day)
	}

	span := l.Span()
	if !span.From.Equal(core.NewDate(2025, 7, 1)) || !span.To.Equal(core.NewDate(2025, 7, 4)) {
		t.Fatalf("span = %s", span)
	}

	cats := l.Categories()
	if len(cats) != 2 || cats[0].Name != "Food" || cats[1].Name != "Salary" {
		t.Fatalf("categories not ordered by name: %+v", cats)
	}
	if l.CategoryUsage("food") != 2 || l.CategoryUsage("salary") != 1 {
		t.Fatal("unexpected category usage")
	}
}

func TestBuildPartialSuccess(t *testing.T) {
	raw := sampleRaw()
	raw.Transactions = append(raw.Transactions,
		store.Record{Key: "neg", Fields: map[string]any{"amount": "-5", "kind": "expense", "category_id": "food", "occurred_at": unix(2025, 7, 1, 0)}},
		store.Record{Key: "badts", Fields: map[string]any{"amount": "5", "kind": "expense", "category_id": "food", "occurred_at": "yesterday"}},
		store.Record{Key: "nots", Fields: map[string]any{"amount": "5", "kind": "expense", "category_id": "food"}},
		store.Record{Key: "badamt", Fields: map[string]any{"amount": "five", "kind": "expense", "category_id": "food", "occurred_at": unix(2025, 7, 1, 0)}},
		store.Record{Key: "unk", Fields: map[string]any{"amount": "5", "kind": "expense", "category_id": "ghost", "occurred_at": unix(2025, 7, 1, 0)}},
		store.Record{Key: "badkind", Fields: map[string]any{"amount": "5", "kind": "transfer", "category_id": "food", "occurred_at": unix(2025, 7, 1, 0)}},
		store.Record{Key: "t1", Fields: map[string]any{"amount": "5", "kind": "income", "category_id": "salary", "occurred_at": unix(2025, 7, 1, 0)}},
	)

	l, report := Build(raw, Options{})
	if l.Len() != 3 {
		t.Fatalf("expected the 3 valid transactions, got %d", l.Len())
	}
	want := map[core.ValidationKind]int{
		core.NegativeAmount:  1,
		core.BadTimestamp:    2,
		core.BadAmount:       1,
		core.UnknownCategory: 1,
		core.BadKind:         1,
		DuplicateID:          1,
	}
	got := report.CountByKind()
	for k, n := range want {
		if got[k] != n {
			t.Errorf("%s: got %d, want %d", k, got[k], n)
		}
	}

	err := report.Err()
	if !errors.Is(err, core.ErrNegativeAmount) || !errors.Is(err, core.ErrUnknownCategory) || !errors.Is(err, core.ErrBadTimestamp) {
		t.Fatalf("joined error does not expose the kinds: %v", err)
	}
	if !strings.Contains(report.Summary(), "7 skipped") {
		t.Fatalf("summary = %q", report.Summary())
	}
}

func TestBuildNegativeAmountIsReported(t *testing.T) {
	raw := store.RawLedger{
		Categories: []store.Record{{Key: "food", Fields: map[string]any{"name": "Food", "kind": "expense"}}},
		Transactions: []store.Record{
			{Key: "x", Fields: map[string]any{"amount": -12.5, "kind": "expense", "category_id": "food", "occurred_at": unix(2025, 1, 1, 0)}},
		},
	}
	l, report := Build(raw, Options{})
	if l.Len() != 0 || len(report.Skipped) != 1 {
		t.Fatalf("len=%d skipped=%d", l.Len(), len(report.Skipped))
	}
	verr := report.Skipped[0]
	if verr.Kind != core.NegativeAmount || verr.Record != "x" || verr.Field != "amount" {
		t.Fatalf("unexpected error: %+v", verr)
	}
}

func TestBuildUnknownCategoryPolicy(t *testing.T) {
	raw := store.RawLedger{
		Transactions: []store.Record{
			{Key: "x", Fields: map[string]any{"amount": "7", "kind": "expense", "category_id": "gone", "occurred_at": unix(2025, 1, 1, 0)}},
		},
	}

	l, report := Build(raw, Options{OnUnknownCategory: Reject})
	if l.Len() != 0 || report.CountByKind()[core.UnknownCategory] != 1 {
		t.Fatalf("reject: len=%d report=%s", l.Len(), report.Summary())
	}

	l, report = Build(raw, Options{OnUnknownCategory: Substitute})
	if l.Len() != 1 || report.Partial() {
		t.Fatalf("substitute: len=%d report=%s", l.Len(), report.Summary())
	}
	tx, _ := l.Transaction("x")
	if tx.CategoryID != core.UncategorizedID || tx.Category.Kind != core.Expense {
		t.Fatalf("substituted category = %+v", tx.Category)
	}
}

func TestBuildLegacyFieldsAndNameReferences(t *testing.T) {
	// Older ledgers reference categories by name and use Spanish keys.
	raw := store.RawLedger{
		Categories: []store.Record{
			{Key: "-Nc1", Fields: map[string]any{"nombre": "Alimentos", "tipo": "Gasto"}},
			{Key: "-Nc2", Fields: map[string]any{"nombre": "Salario", "tipo": "Ingreso"}},
		},
		Transactions: []store.Record{
			{Key: "-Nt1", Fields: map[string]any{"descripcion": "Mercado", "monto": 45000.0, "tipo": "Gasto", "categoria": "Alimentos", "fecha": float64(unix(2025, 3, 4, 10))}},
			{Key: "-Nt2", Fields: map[string]any{"descripcion": "Pago", "monto": json.Number("1500000.50"), "tipo": "Ingreso", "categoria": "salario", "fecha": json.Number("1741082400")}},
		},
	}
	l, report := Build(raw, Options{})
	if report.Partial() {
		t.Fatalf("unexpected skipped: %v", report.Err())
	}
	t1, _ := l.Transaction("-Nt1")
	if t1.CategoryID != "-Nc1" || t1.Kind != core.Expense || t1.Description != "Mercado" {
		t.Fatalf("t1 = %+v", t1)
	}
	t2, _ := l.Transaction("-Nt2")
	if t2.CategoryID != "-Nc2" || !t2.Amount.Equal(core.MustParseMoney("1500000.5")) {
		t.Fatalf("t2 = %+v", t2)
	}
	if got := l.NameReferences("-Nc1"); len(got) != 1 || got[0] != "-Nt1" {
		t.Fatalf("name references = %v", got)
	}
}

func TestBuildKindFallsBackToCategory(t *testing.T) {
	raw := store.RawLedger{
		Categories: []store.Record{{Key: "food", Fields: map[string]any{"name": "Food", "kind": "expense"}}},
		Transactions: []store.Record{
			{Key: "x", Fields: map[string]any{"amount": "3", "category_id": "food", "occurred_at": "2025-01-02"}},
		},
	}
	l, _ := Build(raw, Options{})
	tx, ok := l.Transaction("x")
	if !ok || tx.Kind != core.Expense {
		t.Fatalf("tx = %+v, ok=%v", tx, ok)
	}
}

func TestBuildUsesLocationForDays(t *testing.T) {
	loc := time.FixedZone("COT", -5*3600)
	raw := store.RawLedger{
		Categories: []store.Record{{Key: "food", Fields: map[string]any{"name": "Food", "kind": "expense"}}},
		Transactions: []store.Record{
			// 03:00 UTC on the 2nd is 22:00 on the 1st in COT.
			{Key: "x", Fields: map[string]any{"amount": "3", "kind": "expense", "category_id": "food", "occurred_at": unix(2025, 7, 2, 3)}},
			// Plain dates are read in the ledger location.
			{Key: "y", Fields: map[string]any{"amount": "3", "kind": "expense", "category_id": "food", "occurred_at": "2025-07-05"}},
		},
	}
	l, _ := Build(raw, Options{Location: loc})
	x, _ := l.Transaction("x")
	if !x.Day.Equal(core.NewDate(2025, 7, 1)) {
		t.Fatalf("x day = %s, want 2025-07-01", x.Day)
	}
	y, _ := l.Transaction("y")
	if !y.Day.Equal(core.NewDate(2025, 7, 5)) {
		t.Fatalf("y day = %s, want 2025-07-05", y.Day)
	}
}

func TestBuildRejectsInvalidCategories(t *testing.T) {
	raw := store.RawLedger{
		Categories: []store.Record{
			{Key: "a", Fields: map[string]any{"name": "", "kind": "expense"}},
			{Key: "b", Fields: map[string]any{"name": "B", "kind": "other"}},
			{Key: "c", Fields: map[string]any{"name": "C"}},
			{Key: "d", Fields: map[string]any{"name": "D", "kind": "income"}},
		},
	}
	l, report := Build(raw, Options{})
	if report.Categories != 1 || len(l.Categories()) != 1 || len(report.Skipped) != 3 {
		t.Fatalf("report = %s", report.Summary())
	}
}

func TestBetween(t *testing.T) {
	l, _ := Build(sampleRaw(), Options{})

	tests := []struct {
		name string
		rng  core.DateRange
		want []string
	}{
		{"first two days", core.NewRange(core.NewDate(2025, 7, 1), core.NewDate(2025, 7, 3)), []string{"t1", "t2"}},
		{"whole span", l.Span(), []string{"t1", "t2", "t3"}},
		{"last day only", core.NewRange(core.NewDate(2025, 7, 3), core.NewDate(2025, 7, 4)), []string{"t3"}},
		{"before data", core.NewRange(core.NewDate(2025, 6, 1), core.NewDate(2025, 7, 1)), nil},
		{"empty range", core.NewRange(core.NewDate(2025, 7, 2), core.NewDate(2025, 7, 2)), nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := l.Between(tt.rng)
			if len(got) != len(tt.want) {
				t.Fatalf("got %d transactions, want %d", len(got), len(tt.want))
			}
			for i := range got {
				if got[i].ID != tt.want[i] {
					t.Fatalf("position %d = %s, want %s", i, got[i].ID, tt.want[i])
				}
			}
		})
	}
}

func TestAccessorsReturnCopies(t *testing.T) {
	l, _ := Build(sampleRaw(), Options{})
	txs := l.Transactions()
	txs[0].Description = "mutated"
	if again := l.Transactions(); again[0].Description == "mutated" {
		t.Fatal("ledger was mutated through a returned slice")
	}
}

func TestEmptyLedger(t *testing.T) {
	l, report := Build(store.RawLedger{UserID: "u"}, Options{})
	if l.Len() != 0 || !l.Span().IsZero() || report.Partial() {
		t.Fatal("expected an empty ledger with a zero span")
	}
	if got := l.Between(core.NewRange(core.NewDate(2025, 1, 1), core.NewDate(2026, 1, 1))); len(got) != 0 {
		t.Fatal("expected nothing between any dates")
	}
}

func TestBuildRejectsImplausibleTimestamps(t *testing.T) {
	raw := sampleRaw()
	raw.Transactions = append(raw.Transactions,
		store.Record{Key: "millis", Fields: map[string]any{"amount": "5", "kind": "expense", "category_id": "food", "occurred_at": unix(2025, 7, 2, 12) * 1000}},
		store.Record{Key: "ancient", Fields: map[string]any{"amount": "5", "kind": "expense", "category_id": "food", "occurred_at": "1066-10-14"}},
	)
	l, report := Build(raw, Options{})
	if l.Len() != 3 {
		t.Fatalf("expected the 3 plausible transactions, got %d", l.Len())
	}
	if got := report.CountByKind()[core.BadTimestamp]; got != 2 {
		t.Fatalf("bad timestamps = %d, want 2", got)
	}
	span := l.Span()
	if !span.To.Equal(core.NewDate(2025, 7, 4)) {
		t.Fatalf("span = %s", span)
	}
}

func TestParsePolicy(t *testing.T) {
	for in, want := range map[string]UnknownCategoryPolicy{"": Reject, "reject": Reject, "Substitute": Substitute} {
		got, err := ParsePolicy(in)
		if err != nil || got != want {
			t.Fatalf("ParsePolicy(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParsePolicy("ignore"); err == nil {
		t.Fatal("expected error")
	}
}

func TestSnapshotReplaceIsAtomic(t *testing.T) {
	first, _ := Build(sampleRaw(), Options{})
	snap := NewSnapshot(first)

	held := snap.Load()
	second := Empty("u1")

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				if n := snap.Load().Len(); n != 3 && n != 0 {
					t.Errorf("observed torn ledger with %d transactions", n)
				}
			}
		}()
	}
	if prev := snap.Swap(second); prev != first {
		t.Error("Swap did not return the previous ledger")
	}
	wg.Wait()

	if held.Len() != 3 {
		t.Fatal("a held snapshot changed after replacement")
	}
	if snap.Load().Len() != 0 {
		t.Fatal("snapshot was not replaced")
	}
}

func TestSnapshotZeroValue(t *testing.T) {
	snap := NewSnapshot(nil)
	if snap.Loaded() {
		t.Fatal("expected not loaded")
	}
	if snap.Load() == nil || snap.Load().Len() != 0 {
		t.Fatal("expected an empty ledger")
	}
}
