package supabase

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"klarity/internal/core"
	"klarity/internal/ledger"
	"klarity/internal/store"
)

func TestDecodeRowsFeedsLedger(t *testing.T) {
	cats := []byte(`[
		{"id": "c1", "user_id": "u", "name": "Food", "kind": "expense"},
		{"id": "c2", "user_id": "u", "nombre": "Sueldo", "tipo": "Ingreso"}
	]`)
	txs := []byte(`[
		{"id": "t1", "user_id": "u", "amount": 12.345, "kind": "expense", "category_id": "c1", "occurred_at": "2025-02-03T10:00:00+00:00"},
		{"id": "t2", "user_id": "u", "monto": "1500", "categoria": "Sueldo", "fecha": 1738574400}
	]`)

	catRecs, err := decodeRows(cats)
	if err != nil {
		t.Fatalf("decode categories: %v", err)
	}
	txRecs, err := decodeRows(txs)
	if err != nil {
		t.Fatalf("decode transactions: %v", err)
	}
	if _, ok := txRecs[0].Fields["user_id"]; ok {
		t.Fatal("user_id should be stripped from fields")
	}
	if n, ok := txRecs[0].Fields["amount"].(json.Number); !ok || n.String() != "12.345" {
		t.Fatalf("amount = %#v, want json.Number 12.345", txRecs[0].Fields["amount"])
	}

	l, rep := ledger.Build(store.RawLedger{UserID: "u", Categories: catRecs, Transactions: txRecs}, ledger.Options{})
	if rep.Partial() {
		t.Fatalf("skipped: %s", rep.Summary())
	}
	t2, ok := l.Transaction("t2")
	if !ok || t2.Kind != core.Income || t2.CategoryID != "c2" {
		t.Fatalf("t2 = %+v ok=%v", t2, ok)
	}
}

func TestDecodeRowsEmptyAndMalformed(t *testing.T) {
	recs, err := decodeRows([]byte("  "))
	if err != nil || len(recs) != 0 {
		t.Fatalf("empty body: %v %v", recs, err)
	}
	if _, err := decodeRows([]byte(`{"message":"oops"}`)); err == nil {
		t.Fatal("object body should not decode as rows")
	}
	if err := requireRows("update transactions", "x", []byte("[]")); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("no rows: got %v, want ErrNotFound", err)
	}
	if err := requireRows("update transactions", "x", []byte("nope")); !errors.Is(err, store.ErrMalformed) {
		t.Fatalf("bad body: got %v, want ErrMalformed", err)
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		msg  string
		want store.ErrorKind
	}{
		{"(PGRST301) JWT expired", store.AuthExpired},
		{"request failed with status 401", store.AuthExpired},
		{"Invalid API key", store.AuthExpired},
		{`invalid input syntax for type numeric: "abc"`, store.Malformed},
		{"dial tcp: connection refused", store.Unreachable},
	}
	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			if got := store.KindOf(classify("op", errors.New(tt.msg))); got != tt.want {
				t.Fatalf("classify(%q) = %s, want %s", tt.msg, got, tt.want)
			}
		})
	}
}

func TestTransactionRows(t *testing.T) {
	when := time.Date(2025, 4, 5, 6, 7, 8, 0, time.FixedZone("X", 2*3600))
	row := transactionRow("id1", "u", store.TransactionInput{
		Description: "x",
		Amount:      core.MustParseMoney("9.99"),
		Kind:        core.Expense,
		CategoryID:  "c",
		OccurredAt:  when,
	})
	if row["id"] != "id1" || row["user_id"] != "u" || row["amount"] != "9.99" {
		t.Fatalf("row = %v", row)
	}
	if row["occurred_at"] != "2025-04-05T04:07:08Z" {
		t.Fatalf("occurred_at = %v", row["occurred_at"])
	}

	desc := "y"
	patch := transactionPatchRow(store.TransactionPatch{Description: &desc})
	if len(patch) != 1 || patch["description"] != "y" {
		t.Fatalf("patch row = %v", patch)
	}
}

func TestNewRequiresCredentials(t *testing.T) {
	if _, err := New("", "key"); err == nil {
		t.Fatal("expected error without url")
	}
}
