// Package worker keeps cached ledgers in step with writes made by other
// instances.
package worker

import (
	"context"
	"sync/atomic"

	"klarity/internal/amqp"
	"klarity/internal/log"
)

// Reloader refreshes a user's cached ledger.
type Reloader interface {
	Reload(ctx context.Context, userID string) error
	Invalidate(userID string)
}

// RefreshWorker reacts to ledger change events.
type RefreshWorker struct {
	reloader Reloader
	origin   string
	logger   *log.Logger

	handled atomic.Int64
	skipped atomic.Int64
}

// NewRefreshWorker creates a worker. Events published by origin are
// ignored since that instance already refreshed after its own write.
func NewRefreshWorker(reloader Reloader, origin string, logger *log.Logger) *RefreshWorker {
	if logger == nil {
		logger = log.Default(log.ComponentWorker)
	}
	return &RefreshWorker{
		reloader: reloader,
		origin:   origin,
		logger:   logger.WithComponent(log.ComponentWorker),
	}
}

// HandleLedgerChanged processes one change event. A failed reload drops
// the cached session instead of requeueing: the next request refetches.
func (w *RefreshWorker) HandleLedgerChanged(ctx context.Context, msg *amqp.LedgerChangedMessage) error {
	if msg.Origin != "" && msg.Origin == w.origin {
		w.skipped.Add(1)
		return nil
	}

	w.logger.InfoContext(ctx, "Processing ledger change",
		log.FieldUserID, msg.UserID,
		"reason", msg.Reason,
		"message_id", msg.ID)

	if err := w.reloader.Reload(ctx, msg.UserID); err != nil {
		w.reloader.Invalidate(msg.UserID)
		w.logger.WarnContext(ctx, "Reload after remote change failed, session dropped",
			log.FieldUserID, msg.UserID,
			log.FieldError, err.Error())
	}
	w.handled.Add(1)
	return nil
}

// Stats returns how many events were handled and how many were skipped
// as self-originated.
func (w *RefreshWorker) Stats() (handled, skipped int64) {
	return w.handled.Load(), w.skipped.Load()
}
