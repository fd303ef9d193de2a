package worker

import (
	"context"
	"errors"
	"testing"

	"klarity/internal/amqp"
)

type fakeReloader struct {
	reloaded    []string
	invalidated []string
	err         error
}

func (f *fakeReloader) Reload(_ context.Context, userID string) error {
	f.reloaded = append(f.reloaded, userID)
	return f.err
}

func (f *fakeReloader) Invalidate(userID string) {
	f.invalidated = append(f.invalidated, userID)
}

func TestHandleLedgerChanged(t *testing.T) {
	tests := []struct {
		name            string
		origin          string
		reloadErr       error
		wantReloaded    int
		wantInvalidated int
		wantSkipped     int64
	}{
		{name: "remote change reloads", origin: "other", wantReloaded: 1},
		{name: "own change skipped", origin: "self", wantSkipped: 1},
		{name: "unknown origin reloads", origin: "", wantReloaded: 1},
		{name: "failed reload invalidates", origin: "other", reloadErr: errors.New("store down"), wantReloaded: 1, wantInvalidated: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &fakeReloader{err: tt.reloadErr}
			w := NewRefreshWorker(r, "self", nil)
			msg := amqp.NewLedgerChangedMessage("u1", "transaction_added", tt.origin)

			if err := w.HandleLedgerChanged(context.Background(), msg); err != nil {
				t.Fatalf("HandleLedgerChanged() error = %v", err)
			}
			if len(r.reloaded) != tt.wantReloaded {
				t.Errorf("reloaded = %v, want %d calls", r.reloaded, tt.wantReloaded)
			}
			if len(r.invalidated) != tt.wantInvalidated {
				t.Errorf("invalidated = %v, want %d calls", r.invalidated, tt.wantInvalidated)
			}
			if _, skipped := w.Stats(); skipped != tt.wantSkipped {
				t.Errorf("skipped = %d, want %d", skipped, tt.wantSkipped)
			}
		})
	}
}
