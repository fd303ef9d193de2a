package session

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"klarity/internal/cache"
	"klarity/internal/core"
	"klarity/internal/ledger"
	"klarity/internal/log"
	"klarity/internal/store"
)

// Change reasons published after a successful mutation.
const (
	ReasonTransactionAdded   = "transaction_added"
	ReasonTransactionUpdated = "transaction_updated"
	ReasonTransactionDeleted = "transaction_deleted"
	ReasonCategoryAdded      = "category_added"
	ReasonCategoryUpdated    = "category_updated"
	ReasonCategoryDeleted    = "category_deleted"
	ReasonDefaultsCreated    = "defaults_created"
)

// Publisher announces that a user's ledger changed.
type Publisher interface {
	PublishLedgerChanged(ctx context.Context, userID, reason string) error
}

type Config struct {
	Ledger    ledger.Options
	CacheSize int
	CacheTTL  time.Duration
	// LoadTimeout bounds a shared first load, which outlives the request
	// that started it.
	LoadTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{CacheSize: 100, CacheTTL: 15 * time.Minute, LoadTimeout: 30 * time.Second}
}

// Manager caches sessions per user. Concurrent first loads of the same
// user share one store fetch.
type Manager struct {
	fetcher   store.LedgerFetcher
	writer    store.LedgerWriter
	opts      ledger.Options
	timeout   time.Duration
	sessions  *cache.LRUCache[*Session]
	group     singleflight.Group
	publisher Publisher
	logger    *log.Logger
}

// NewManager creates a manager. A nil writer makes every mutation fail
// with store.ErrReadOnly.
func NewManager(fetcher store.LedgerFetcher, writer store.LedgerWriter, cfg Config, logger *log.Logger) *Manager {
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = DefaultConfig().CacheSize
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = DefaultConfig().CacheTTL
	}
	if cfg.LoadTimeout <= 0 {
		cfg.LoadTimeout = DefaultConfig().LoadTimeout
	}
	if logger == nil {
		logger = log.Default(log.ComponentSession)
	}
	return &Manager{
		fetcher:  fetcher,
		writer:   writer,
		opts:     cfg.Ledger,
		timeout:  cfg.LoadTimeout,
		sessions: cache.NewLRUCache[*Session](cfg.CacheSize, cfg.CacheTTL),
		logger:   logger.WithComponent(log.ComponentSession),
	}
}

// WithPublisher sets where change events go.
func (m *Manager) WithPublisher(p Publisher) *Manager {
	m.publisher = p
	return m
}

// Cache exposes the session cache so it can be registered for cleanup.
func (m *Manager) Cache() *cache.LRUCache[*Session] {
	return m.sessions
}

// ReadOnly reports whether mutations are disabled.
func (m *Manager) ReadOnly() bool {
	return m.writer == nil
}

// Session returns the cached session for userID, loading it on a miss.
func (m *Manager) Session(ctx context.Context, userID string) (*Session, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, ErrEmptyUserID
	}
	if s, ok := m.sessions.Get(userID); ok {
		return s, nil
	}

	ch := m.group.DoChan(userID, func() (any, error) {
		if s, ok := m.sessions.Get(userID); ok {
			return s, nil
		}
		// other callers may be waiting on this load; one leaving must not
		// cancel it for the rest
		lctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.timeout)
		defer cancel()

		s := newSession(userID, m.fetcher, m.opts)
		rep, err := s.Refresh(lctx)
		if err != nil {
			m.logger.Warn("Ledger load failed", log.NewFields().WithUser(userID).WithError(err).ToSlice()...)
			return nil, err
		}
		m.logLoad(userID, rep)
		m.sessions.Set(userID, s)
		return s, nil
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Session), nil
	}
}

// Cached reports whether a session for userID is currently cached.
func (m *Manager) Cached(userID string) bool {
	_, ok := m.sessions.Peek(userID)
	return ok
}

// Invalidate drops the cached session; the next access reloads it.
func (m *Manager) Invalidate(userID string) {
	m.sessions.Delete(userID)
}

// Reload refreshes a cached session in place. Users without a cached
// session are left alone; they load fresh on next access.
func (m *Manager) Reload(ctx context.Context, userID string) error {
	s, ok := m.sessions.Peek(userID)
	if !ok {
		return nil
	}
	rep, err := s.Refresh(ctx)
	if err != nil {
		m.Invalidate(userID)
		return fmt.Errorf("reload %s: %w", userID, err)
	}
	m.logLoad(userID, rep)
	return nil
}

func (m *Manager) logLoad(userID string, rep ledger.LoadReport) {
	fields := log.NewFields().WithUser(userID).WithOperation(log.OpLoad).WithLoad(rep.Transactions, len(rep.Skipped))
	if rep.Partial() {
		m.logger.Warn("Ledger loaded with skipped records", append(fields.ToSlice(), "summary", rep.Summary())...)
		return
	}
	m.logger.Debug("Ledger loaded", fields.ToSlice()...)
}

// writable returns the session to mutate, or an error when the store is
// read-only or the ledger cannot be loaded.
func (m *Manager) writable(ctx context.Context, userID string) (*Session, error) {
	if m.writer == nil {
		return nil, store.ErrReadOnly
	}
	return m.Session(ctx, userID)
}

// afterWrite refreshes the session and announces the change. Neither step
// fails the mutation, which has already been persisted.
func (m *Manager) afterWrite(ctx context.Context, s *Session, reason string) {
	if _, err := s.Refresh(ctx); err != nil {
		m.logger.Warn("Refresh after write failed", log.NewFields().WithUser(s.userID).WithError(err).ToSlice()...)
		m.Invalidate(s.userID)
	}
	if m.publisher == nil {
		return
	}
	if err := m.publisher.PublishLedgerChanged(ctx, s.userID, reason); err != nil {
		m.logger.Warn("Publish ledger change failed", log.NewFields().WithUser(s.userID).WithError(err).ToSlice()...)
	}
}

func unknownCategory(ref string) error {
	return &core.ValidationError{
		Kind:  core.UnknownCategory,
		Field: store.FieldCategoryID,
		Value: ref,
		Err:   core.ErrUnknownCategory,
	}
}

func lookupCategory(l *ledger.Ledger, ref string) (core.Category, bool) {
	if c, ok := l.Category(ref); ok {
		return c, true
	}
	return l.CategoryByName(ref)
}

func notFound(op, what, id string) error {
	return store.NewError(store.NotFound, op, fmt.Errorf("%s %q", what, id))
}

// AddTransaction validates the input against the user's categories and
// stores it. An empty kind takes the category's kind.
func (m *Manager) AddTransaction(ctx context.Context, userID string, in store.TransactionInput) (core.Transaction, error) {
	s, err := m.writable(ctx, userID)
	if err != nil {
		return core.Transaction{}, err
	}
	cat, ok := lookupCategory(s.Ledger(), in.CategoryID)
	if !ok {
		return core.Transaction{}, unknownCategory(in.CategoryID)
	}
	in.CategoryID = cat.ID
	if in.Kind == "" {
		in.Kind = cat.Kind
	}
	if in.Kind != cat.Kind {
		return core.Transaction{}, fmt.Errorf("%w: %s into %s category %q", ErrKindMismatch, in.Kind, cat.Kind, cat.Name)
	}
	if err := in.Validate(); err != nil {
		return core.Transaction{}, err
	}

	id, err := m.writer.AddTransaction(ctx, userID, in)
	if err != nil {
		return core.Transaction{}, err
	}
	m.afterWrite(ctx, s, ReasonTransactionAdded)

	if tx, ok := s.Ledger().Transaction(id); ok {
		return tx, nil
	}
	return core.Transaction{
		ID:          id,
		Description: in.Description,
		Amount:      in.Amount,
		Kind:        in.Kind,
		CategoryID:  cat.ID,
		Category:    cat,
		OccurredAt:  in.OccurredAt,
		Day:         core.DateOf(in.OccurredAt.In(s.opts.TimeLocation())),
	}, nil
}

// UpdateTransaction applies patch to an existing transaction. Moving a
// transaction to another category without naming a kind adopts that
// category's kind.
func (m *Manager) UpdateTransaction(ctx context.Context, userID, id string, patch store.TransactionPatch) (core.Transaction, error) {
	s, err := m.writable(ctx, userID)
	if err != nil {
		return core.Transaction{}, err
	}
	l := s.Ledger()
	cur, ok := l.Transaction(id)
	if !ok {
		return core.Transaction{}, notFound("update transaction", "transaction", id)
	}

	cat := cur.Category
	if patch.CategoryID != nil {
		c, ok := lookupCategory(l, *patch.CategoryID)
		if !ok {
			return core.Transaction{}, unknownCategory(*patch.CategoryID)
		}
		cat = c
		patch.CategoryID = &c.ID
		if patch.Kind == nil {
			patch.Kind = &c.Kind
		}
	}
	merged := patch.Apply(store.TransactionInput{
		Description: cur.Description,
		Amount:      cur.Amount,
		Kind:        cur.Kind,
		CategoryID:  cur.CategoryID,
		OccurredAt:  cur.OccurredAt,
	})
	if merged.Kind != cat.Kind {
		return core.Transaction{}, fmt.Errorf("%w: %s into %s category %q", ErrKindMismatch, merged.Kind, cat.Kind, cat.Name)
	}
	if err := merged.Validate(); err != nil {
		return core.Transaction{}, err
	}

	if err := m.writer.UpdateTransaction(ctx, userID, id, patch); err != nil {
		return core.Transaction{}, err
	}
	m.afterWrite(ctx, s, ReasonTransactionUpdated)

	if tx, ok := s.Ledger().Transaction(id); ok {
		return tx, nil
	}
	return cur, nil
}

func (m *Manager) DeleteTransaction(ctx context.Context, userID, id string) error {
	s, err := m.writable(ctx, userID)
	if err != nil {
		return err
	}
	if _, ok := s.Ledger().Transaction(id); !ok {
		return notFound("delete transaction", "transaction", id)
	}
	if err := m.writer.DeleteTransaction(ctx, userID, id); err != nil {
		return err
	}
	m.afterWrite(ctx, s, ReasonTransactionDeleted)
	return nil
}

// AddCategory creates a category. Names are unique per user, ignoring case.
func (m *Manager) AddCategory(ctx context.Context, userID string, c core.Category) (core.Category, error) {
	s, err := m.writable(ctx, userID)
	if err != nil {
		return core.Category{}, err
	}
	c.Name = strings.TrimSpace(c.Name)
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}
	if _, dup := s.Ledger().CategoryByName(c.Name); dup {
		return core.Category{}, fmt.Errorf("%w: %q", ErrDuplicateCategory, c.Name)
	}

	id, err := m.writer.AddCategory(ctx, userID, c)
	if err != nil {
		return core.Category{}, err
	}
	c.ID = id
	m.afterWrite(ctx, s, ReasonCategoryAdded)
	return c, nil
}

// UpdateCategory renames a category or changes its kind. The kind is
// locked once any transaction references the category. Before a rename,
// transactions that point at the category by name are repointed at its id
// so they keep resolving.
func (m *Manager) UpdateCategory(ctx context.Context, userID, id string, patch store.CategoryPatch) (core.Category, error) {
	s, err := m.writable(ctx, userID)
	if err != nil {
		return core.Category{}, err
	}
	l := s.Ledger()
	cur, ok := l.Category(id)
	if !ok {
		return core.Category{}, notFound("update category", "category", id)
	}
	if patch.Kind != nil && *patch.Kind != cur.Kind && l.CategoryUsage(id) > 0 {
		return core.Category{}, fmt.Errorf("%w: %q has %d transactions", ErrCategoryKindLocked, cur.Name, l.CategoryUsage(id))
	}
	next := patch.Apply(cur)
	next.Name = strings.TrimSpace(next.Name)
	if err := next.Validate(); err != nil {
		return core.Category{}, err
	}
	if other, dup := l.CategoryByName(next.Name); dup && other.ID != id {
		return core.Category{}, fmt.Errorf("%w: %q", ErrDuplicateCategory, next.Name)
	}
	if !strings.EqualFold(next.Name, cur.Name) {
		if err := m.pinNameReferences(ctx, s, id); err != nil {
			return core.Category{}, err
		}
	}

	if err := m.writer.UpdateCategory(ctx, userID, id, patch); err != nil {
		return core.Category{}, err
	}
	m.afterWrite(ctx, s, ReasonCategoryUpdated)
	return next, nil
}

// pinNameReferences rewrites legacy name references to the category id.
// A partial failure drops the cached session; the records already
// rewritten resolve the same way as before.
func (m *Manager) pinNameReferences(ctx context.Context, s *Session, id string) error {
	refs := s.Ledger().NameReferences(id)
	for _, txID := range refs {
		patch := store.TransactionPatch{CategoryID: &id}
		if err := m.writer.UpdateTransaction(ctx, s.userID, txID, patch); err != nil {
			m.Invalidate(s.userID)
			return fmt.Errorf("repoint transaction %s to category %s: %w", txID, id, err)
		}
	}
	if len(refs) > 0 {
		m.logger.Info("Repointed name references before rename",
			append(log.NewFields().WithUser(s.userID).ToSlice(), "category_id", id, "transactions", len(refs))...)
	}
	return nil
}

// DeleteCategory removes an unused category.
func (m *Manager) DeleteCategory(ctx context.Context, userID, id string) error {
	s, err := m.writable(ctx, userID)
	if err != nil {
		return err
	}
	l := s.Ledger()
	cur, ok := l.Category(id)
	if !ok {
		return notFound("delete category", "category", id)
	}
	if n := l.CategoryUsage(id); n > 0 {
		return fmt.Errorf("%w: %q has %d transactions", ErrCategoryInUse, cur.Name, n)
	}
	if err := m.writer.DeleteCategory(ctx, userID, id); err != nil {
		return err
	}
	m.afterWrite(ctx, s, ReasonCategoryDeleted)
	return nil
}

// EnsureDefaults creates the starter categories for a user with none.
func (m *Manager) EnsureDefaults(ctx context.Context, userID string) (int, error) {
	s, err := m.writable(ctx, userID)
	if err != nil {
		return 0, err
	}
	n, err := store.EnsureDefaultCategories(ctx, m.fetcher, m.writer, userID)
	if n > 0 {
		m.afterWrite(ctx, s, ReasonDefaultsCreated)
	}
	return n, err
}
