package cli

import (
	"testing"
	"time"

	"klarity/internal/config"
	"klarity/internal/ledger"
)

func TestSessionConfig(t *testing.T) {
	cfg := &config.Config{
		UnknownCategoryPolicy: "substitute",
		LedgerTimezone:        "America/Bogota",
		SessionCacheSize:      10,
		SessionCacheTTL:       time.Minute,
	}
	sc, err := SessionConfig(cfg)
	if err != nil {
		t.Fatalf("SessionConfig() error = %v", err)
	}
	if sc.Ledger.OnUnknownCategory != ledger.Substitute {
		t.Errorf("policy = %q, want substitute", sc.Ledger.OnUnknownCategory)
	}
	if sc.Ledger.Location == nil || sc.Ledger.Location.String() != "America/Bogota" {
		t.Errorf("location = %v", sc.Ledger.Location)
	}
	if sc.CacheSize != 10 || sc.CacheTTL != time.Minute {
		t.Errorf("cache = %d/%v", sc.CacheSize, sc.CacheTTL)
	}
}

func TestSessionConfigErrors(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.Config
	}{
		{"bad policy", config.Config{UnknownCategoryPolicy: "drop"}},
		{"bad timezone", config.Config{UnknownCategoryPolicy: "reject", LedgerTimezone: "Mars/Base"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := SessionConfig(&tt.cfg); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestSetupLogger(t *testing.T) {
	logger := SetupLogger("debug", "json")
	if logger == nil {
		t.Fatal("SetupLogger returned nil")
	}
	if logger.Component() != "app" {
		t.Errorf("component = %q, want app", logger.Component())
	}
}
