package memory

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"klarity/internal/core"
	"klarity/internal/ledger"
	"klarity/internal/store"
)

func TestMemoryStoreAddAndFetch(t *testing.T) {
	ctx := context.Background()
	s := New([]core.Category{{Name: "Food", Kind: core.Expense}})

	raw, err := s.FetchLedger(ctx, "u1")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(raw.Categories) != 1 {
		t.Fatalf("expected seeded category, got %d", len(raw.Categories))
	}
	catID := raw.Categories[0].Key

	id, err := s.AddTransaction(ctx, "u1", store.TransactionInput{
		Description: "lunch",
		Amount:      core.MustParseMoney("12.50"),
		Kind:        core.Expense,
		CategoryID:  catID,
		OccurredAt:  time.Date(2025, 3, 4, 12, 0, 0, 0, time.UTC),
	})
	if err != nil || id == "" {
		t.Fatalf("add: id=%q err=%v", id, err)
	}

	raw, _ = s.FetchLedger(ctx, "u1")
	l, rep := ledger.Build(raw, ledger.Options{})
	if rep.Partial() {
		t.Fatalf("unexpected skipped records: %s", rep.Summary())
	}
	tx, ok := l.Transaction(id)
	if !ok {
		t.Fatalf("transaction %q not indexed", id)
	}
	if !tx.Amount.Equal(core.MustParseMoney("12.50")) || tx.Category.Name != "Food" {
		t.Fatalf("unexpected transaction: %+v", tx)
	}
}

func TestMemoryStoreUsersAreIsolated(t *testing.T) {
	ctx := context.Background()
	s := New(nil)
	if _, err := s.AddCategory(ctx, "a", core.Category{Name: "Rent", Kind: core.Expense}); err != nil {
		t.Fatalf("add category: %v", err)
	}
	raw, _ := s.FetchLedger(ctx, "b")
	if len(raw.Categories) != 0 {
		t.Fatalf("user b sees %d categories", len(raw.Categories))
	}
}

func TestMemoryStoreFetchReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := New([]core.Category{{Name: "Food", Kind: core.Expense}})
	raw, _ := s.FetchLedger(ctx, "u")
	raw.Categories[0].Fields[store.FieldName] = "changed"

	again, _ := s.FetchLedger(ctx, "u")
	if again.Categories[0].Fields[store.FieldName] != "Food" {
		t.Fatal("fetch leaked internal state")
	}
}

func TestMemoryStoreUpdateAndDelete(t *testing.T) {
	ctx := context.Background()
	s := New(nil)
	catID, _ := s.AddCategory(ctx, "u", core.Category{Name: "Food", Kind: core.Expense})
	id, _ := s.AddTransaction(ctx, "u", store.TransactionInput{
		Amount:     core.MustParseMoney("10"),
		Kind:       core.Expense,
		CategoryID: catID,
		OccurredAt: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	})

	amount := core.MustParseMoney("15")
	if err := s.UpdateTransaction(ctx, "u", id, store.TransactionPatch{Amount: &amount}); err != nil {
		t.Fatalf("update: %v", err)
	}
	name := "Groceries"
	if err := s.UpdateCategory(ctx, "u", catID, store.CategoryPatch{Name: &name}); err != nil {
		t.Fatalf("update category: %v", err)
	}

	raw, _ := s.FetchLedger(ctx, "u")
	l, _ := ledger.Build(raw, ledger.Options{})
	tx, _ := l.Transaction(id)
	if !tx.Amount.Equal(amount) || tx.Category.Name != "Groceries" {
		t.Fatalf("patch not applied: %+v", tx)
	}

	if err := s.DeleteTransaction(ctx, "u", id); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := s.DeleteTransaction(ctx, "u", id); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("second delete: got %v, want ErrNotFound", err)
	}
	if err := s.DeleteCategory(ctx, "u", "missing"); store.KindOf(err) != store.NotFound {
		t.Fatalf("delete missing category: %v", err)
	}
}

func TestMemoryStoreRejectsInvalidInput(t *testing.T) {
	ctx := context.Background()
	s := New(nil)
	_, err := s.AddTransaction(ctx, "u", store.TransactionInput{
		Amount:     core.MustParseMoney("-1"),
		Kind:       core.Expense,
		OccurredAt: time.Now(),
	})
	if !errors.Is(err, core.ErrNegativeAmount) {
		t.Fatalf("got %v, want ErrNegativeAmount", err)
	}
	if _, err := s.AddCategory(ctx, "u", core.Category{Name: " ", Kind: core.Expense}); !errors.Is(err, core.ErrEmptyName) {
		t.Fatalf("got %v, want ErrEmptyName", err)
	}
}

func TestMemoryStoreCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(nil).FetchLedger(ctx, "u")
	if !errors.Is(err, store.ErrUnreachable) {
		t.Fatalf("got %v, want ErrUnreachable", err)
	}
}

func TestNewFromFilesSeedsAndDedupe(t *testing.T) {
	dir := t.TempDir()
	s := NewFromFiles(dir)
	raw, _ := s.FetchLedger(context.Background(), "u")
	if len(raw.Categories) != 0 {
		t.Fatalf("expected no categories without a seed file")
	}

	content := "# header\nFood\nSalary|income\nFood\nBad|other\n\n"
	if err := os.WriteFile(filepath.Join(dir, "seed_categories.txt"), []byte(content), 0o644); err != nil {
		t.Fatalf("write seed: %v", err)
	}
	s = NewFromFiles(dir)
	raw, _ = s.FetchLedger(context.Background(), "u")
	l, _ := ledger.Build(raw, ledger.Options{})
	cats := l.Categories()
	if len(cats) != 2 {
		t.Fatalf("categories = %+v", cats)
	}
	if cats[0].Name != "Food" || cats[0].Kind != core.Expense {
		t.Fatalf("cats[0] = %+v", cats[0])
	}
	if cats[1].Name != "Salary" || cats[1].Kind != core.Income {
		t.Fatalf("cats[1] = %+v", cats[1])
	}
}

func TestEnsureDefaultCategories(t *testing.T) {
	ctx := context.Background()
	s := New(nil)
	n, err := store.EnsureDefaultCategories(ctx, s, s, "u")
	if err != nil || n != len(core.DefaultCategories()) {
		t.Fatalf("first call: n=%d err=%v", n, err)
	}
	n, err = store.EnsureDefaultCategories(ctx, s, s, "u")
	if err != nil || n != 0 {
		t.Fatalf("second call: n=%d err=%v", n, err)
	}
}

func TestMemorySuggestionHistory(t *testing.T) {
	ctx := context.Background()
	s := New(nil)
	at := time.Date(2025, 3, 4, 12, 0, 0, 0, time.UTC)

	var keys []int64
	for _, text := range []string{"one", "two", "three"} {
		ts, err := s.SaveSuggestion(ctx, "u1", at, store.SuggestionRecord{Kind: "summary", Text: text})
		if err != nil {
			t.Fatalf("save %s: %v", text, err)
		}
		keys = append(keys, ts)
	}
	if keys[0] != at.Unix() || keys[1] != keys[0]+1 || keys[2] != keys[1]+1 {
		t.Fatalf("keys = %v", keys)
	}

	got, _ := s.ListSuggestions(ctx, "u1")
	if len(got) != 3 || got[0].Text != "three" || got[2].Text != "one" {
		t.Fatalf("history not newest first: %+v", got)
	}
	if other, _ := s.ListSuggestions(ctx, "u2"); len(other) != 0 {
		t.Fatalf("u2 sees %d suggestions", len(other))
	}

	if err := s.DeleteSuggestion(ctx, "u1", keys[1]); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := s.DeleteSuggestion(ctx, "u1", keys[1]); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("second delete: got %v, want ErrNotFound", err)
	}
	got, _ = s.ListSuggestions(ctx, "u1")
	if len(got) != 2 || got[0].Text != "three" || got[1].Text != "one" {
		t.Fatalf("after delete = %+v", got)
	}
}

func TestShippedSeedMatchesDefaults(t *testing.T) {
	s := NewFromFiles(filepath.Join("..", "..", "..", "data"))
	want := core.DefaultCategories()
	if len(s.seed) != len(want) {
		t.Fatalf("seed has %d categories, want %d", len(s.seed), len(want))
	}
	for i, c := range want {
		if s.seed[i].Name != c.Name || s.seed[i].Kind != c.Kind {
			t.Errorf("seed[%d] = %+v, want %+v", i, s.seed[i], c)
		}
	}
}
