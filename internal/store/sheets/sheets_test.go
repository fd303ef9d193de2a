package sheets

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"google.golang.org/api/googleapi"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"klarity/internal/core"
	"klarity/internal/ledger"
	"klarity/internal/store"
)

func TestParseRowsHeaderAndUserFilter(t *testing.T) {
	values := [][]any{
		{"ID", "User_ID", "Descripcion", "Monto", "Tipo", "Categoria", "Fecha"},
		{"t1", "u1", "rent", 700.0, "Gasto", "Home", "2025-01-03"},
		{"", "u1", "bonus", "250,50", "Ingreso", "Salary", "2025-01-04"},
		{"t3", "u2", "not mine", 1.0, "Gasto", "Home", "2025-01-05"},
		{"", "", "", "", "", "", ""},
	}
	recs := parseRows("Transactions", values, "u1")
	if len(recs) != 2 {
		t.Fatalf("got %d records, want 2: %+v", len(recs), recs)
	}
	if recs[0].Key != "t1" || recs[1].Key != "Transactions!A3" {
		t.Fatalf("keys = %q, %q", recs[0].Key, recs[1].Key)
	}
	if _, ok := recs[0].Fields["user_id"]; ok {
		t.Fatal("user_id column should not become a field")
	}
	if recs[0].Fields["monto"] != 700.0 || recs[1].Fields["descripcion"] != "bonus" {
		t.Fatalf("fields = %v / %v", recs[0].Fields, recs[1].Fields)
	}
}

func TestParseRowsWithoutUserColumn(t *testing.T) {
	values := [][]any{
		{"Name", "Kind"},
		{"Home", "expense"},
		{" ", ""},
		{"Salary", "income"},
	}
	recs := parseRows("Categories", values, "anyone")
	if len(recs) != 2 {
		t.Fatalf("got %d records", len(recs))
	}
	if recs[1].Key != "Categories!A4" {
		t.Fatalf("key = %q", recs[1].Key)
	}
	if parseRows("Categories", nil, "u") != nil {
		t.Fatal("empty tab should yield no records")
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want store.ErrorKind
	}{
		{"unauthorized", &googleapi.Error{Code: 401}, store.AuthExpired},
		{"forbidden", &googleapi.Error{Code: 403}, store.AuthExpired},
		{"bad range", &googleapi.Error{Code: 400}, store.Malformed},
		{"missing sheet", &googleapi.Error{Code: 404}, store.NotFound},
		{"network", errors.New("dial tcp: timeout"), store.Unreachable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := store.KindOf(classify("op", tt.err)); got != tt.want {
				t.Fatalf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestCredentials(t *testing.T) {
	if _, err := credentials(Config{}); err == nil {
		t.Fatal("expected error without credentials")
	}
	b, err := credentials(Config{CredentialsJSON: `{"type":"service_account"}`, CredentialsFile: "/nope"})
	if err != nil || !strings.Contains(string(b), "service_account") {
		t.Fatalf("inline json: %s %v", b, err)
	}
	if _, err := credentials(Config{CredentialsFile: "/does/not/exist.json"}); err == nil {
		t.Fatal("expected error for missing file")
	}
	if _, err := New(context.Background(), Config{}); err == nil {
		t.Fatal("expected error without spreadsheet id")
	}
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	svc, err := gsheet.NewService(context.Background(),
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return newClient(svc, Config{SpreadsheetID: "sheet-1"})
}

func TestFetchLedgerAgainstFakeAPI(t *testing.T) {
	tabs := map[string][][]any{
		"Categories": {
			{"id", "name", "kind"},
			{"c1", "Home", "expense"},
		},
		"Transactions": {
			{"id", "amount", "category_id", "occurred_at"},
			{"t1", 700.5, "c1", "2025-01-03"},
		},
	}
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		tab := r.URL.Path[strings.LastIndex(r.URL.Path, "/")+1:]
		values, ok := tabs[tab]
		if !ok {
			http.Error(w, `{"error":{"code":400,"message":"Unable to parse range"}}`, http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"range": tab, "majorDimension": "ROWS", "values": values})
	})

	raw, err := c.FetchLedger(context.Background(), "u1")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	l, rep := ledger.Build(raw, ledger.Options{})
	if rep.Partial() {
		t.Fatalf("skipped: %s", rep.Summary())
	}
	tx, ok := l.Transaction("t1")
	if !ok || tx.Kind != core.Expense || !tx.Amount.Equal(core.MustParseMoney("700.5")) {
		t.Fatalf("t1 = %+v ok=%v", tx, ok)
	}
}

func TestFetchLedgerAuthFailure(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"code":401,"message":"Request had invalid authentication credentials."}}`))
	})
	_, err := c.FetchLedger(context.Background(), "u1")
	if !errors.Is(err, store.ErrAuthExpired) {
		t.Fatalf("got %v, want ErrAuthExpired", err)
	}
}
