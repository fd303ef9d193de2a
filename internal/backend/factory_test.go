package backend

import (
	"context"
	"path/filepath"
	"testing"

	"klarity/internal/config"
)

func TestFromAppConfig(t *testing.T) {
	if _, err := FromAppConfig(nil); err == nil {
		t.Fatal("expected error for nil config")
	}
	if _, err := FromAppConfig(&config.Config{DataBackend: "postgres"}); err == nil {
		t.Fatal("expected error for unknown backend")
	}
	cfg, err := FromAppConfig(&config.Config{DataBackend: "sqlite", SQLiteDBPath: "x.db", DataDir: "d"})
	if err != nil {
		t.Fatalf("FromAppConfig: %v", err)
	}
	if cfg.Type != SQLiteBackend || cfg.SQLiteDBPath != "x.db" || cfg.DataDirectory != "d" {
		t.Fatalf("cfg = %+v", cfg)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"memory", Config{Type: MemoryBackend}, false},
		{"bad type", Config{Type: "nope"}, true},
		{"sqlite without path", Config{Type: SQLiteBackend}, true},
		{"supabase without key", Config{Type: SupabaseBackend, SupabaseURL: "https://x"}, true},
		{"sheets without credentials", Config{Type: SheetsBackend, GoogleSpreadsheetID: "id"}, true},
		{"sheets with credentials", Config{Type: SheetsBackend, GoogleSpreadsheetID: "id", GoogleServiceAccountJSON: "{}"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.cfg.Validate(); (err != nil) != tt.wantErr {
				t.Fatalf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestFactoryCreate(t *testing.T) {
	ctx := context.Background()
	f := NewFactory(nil)

	mem, err := f.Create(ctx, Config{Type: MemoryBackend, DataDirectory: t.TempDir()})
	if err != nil {
		t.Fatalf("memory: %v", err)
	}
	if mem.Fetcher == nil || mem.Writer == nil {
		t.Fatal("memory backend should be read-write")
	}
	if mem.Suggestions == nil {
		t.Fatal("memory backend should keep suggestion history")
	}
	if err := mem.Close(); err != nil {
		t.Fatalf("close memory: %v", err)
	}

	sq, err := f.Create(ctx, Config{Type: SQLiteBackend, SQLiteDBPath: filepath.Join(t.TempDir(), "k.db")})
	if err != nil {
		t.Fatalf("sqlite: %v", err)
	}
	defer sq.Close()
	if _, err := sq.Fetcher.FetchLedger(ctx, "u"); err != nil {
		t.Fatalf("sqlite fetch: %v", err)
	}
	if sq.Suggestions == nil {
		t.Fatal("sqlite backend should keep suggestion history")
	}
	if _, err := sq.Suggestions.ListSuggestions(ctx, "u"); err != nil {
		t.Fatalf("sqlite suggestions: %v", err)
	}

	if _, err := f.Create(ctx, Config{Type: SheetsBackend}); err == nil {
		t.Fatal("sheets without config should fail")
	}
}
