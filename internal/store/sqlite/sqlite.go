// Package sqlite stores ledgers in a local SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"klarity/internal/core"
	"klarity/internal/store"

	_ "modernc.org/sqlite"
)

type Store struct {
	db    *sql.DB
	newID func() string
}

var _ store.Store = (*Store)(nil)

// Open creates the database file if needed and runs migrations.
func Open(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db, newID: uuid.NewString}, nil
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// classify maps database errors to store error kinds.
func classify(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sql.ErrNoRows):
		return store.NewError(store.NotFound, op, err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return store.NewError(store.Unreachable, op, err)
	case strings.Contains(err.Error(), "converting"), strings.Contains(err.Error(), "Scan"):
		return store.NewError(store.Malformed, op, err)
	default:
		return store.NewError(store.Unreachable, op, err)
	}
}

// FetchLedger reads categories and transactions concurrently.
func (s *Store) FetchLedger(ctx context.Context, userID string) (store.RawLedger, error) {
	raw := store.RawLedger{UserID: userID}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		recs, err := s.fetchCategories(gctx, userID)
		raw.Categories = recs
		return err
	})
	g.Go(func() error {
		recs, err := s.fetchTransactions(gctx, userID)
		raw.Transactions = recs
		return err
	})
	if err := g.Wait(); err != nil {
		return store.RawLedger{}, err
	}
	return raw, nil
}

func (s *Store) fetchCategories(ctx context.Context, userID string) ([]store.Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, kind FROM categories WHERE user_id = ? ORDER BY created_at, id`, userID)
	if err != nil {
		return nil, classify("fetch categories", err)
	}
	defer rows.Close()

	var out []store.Record
	for rows.Next() {
		var id, name, kind string
		if err := rows.Scan(&id, &name, &kind); err != nil {
			return nil, store.NewError(store.Malformed, "fetch categories", err)
		}
		out = append(out, store.Record{Key: id, Fields: map[string]any{
			store.FieldName: name,
			store.FieldKind: kind,
		}})
	}
	return out, classify("fetch categories", rows.Err())
}

func (s *Store) fetchTransactions(ctx context.Context, userID string) ([]store.Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, description, amount, kind, category_id, occurred_at
		 FROM transactions WHERE user_id = ? ORDER BY occurred_at, id`, userID)
	if err != nil {
		return nil, classify("fetch transactions", err)
	}
	defer rows.Close()

	var out []store.Record
	for rows.Next() {
		var (
			id, desc, amount, kind, catID string
			occurredAt                    int64
		)
		if err := rows.Scan(&id, &desc, &amount, &kind, &catID, &occurredAt); err != nil {
			return nil, store.NewError(store.Malformed, "fetch transactions", err)
		}
		out = append(out, store.Record{Key: id, Fields: map[string]any{
			store.FieldDescription: desc,
			store.FieldAmount:      amount,
			store.FieldKind:        kind,
			store.FieldCategoryID:  catID,
			store.FieldOccurredAt:  occurredAt,
		}})
	}
	return out, classify("fetch transactions", rows.Err())
}

func (s *Store) AddTransaction(ctx context.Context, userID string, in store.TransactionInput) (string, error) {
	if err := in.Validate(); err != nil {
		return "", err
	}
	id := s.newID()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO transactions (id, user_id, description, amount, kind, category_id, occurred_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, userID, in.Description, in.Amount.String(), in.Kind.String(), in.CategoryID, in.OccurredAt.Unix())
	if err != nil {
		return "", classify("add transaction", err)
	}
	return id, nil
}

func (s *Store) UpdateTransaction(ctx context.Context, userID, id string, patch store.TransactionPatch) error {
	var (
		sets []string
		args []any
	)
	if patch.Description != nil {
		sets, args = append(sets, "description = ?"), append(args, *patch.Description)
	}
	if patch.Amount != nil {
		sets, args = append(sets, "amount = ?"), append(args, patch.Amount.String())
	}
	if patch.Kind != nil {
		sets, args = append(sets, "kind = ?"), append(args, patch.Kind.String())
	}
	if patch.CategoryID != nil {
		sets, args = append(sets, "category_id = ?"), append(args, *patch.CategoryID)
	}
	if patch.OccurredAt != nil {
		sets, args = append(sets, "occurred_at = ?"), append(args, patch.OccurredAt.Unix())
	}
	if len(sets) == 0 {
		return s.exists(ctx, "update transaction", "transactions", userID, id)
	}
	args = append(args, userID, id)
	res, err := s.db.ExecContext(ctx,
		`UPDATE transactions SET `+strings.Join(sets, ", ")+` WHERE user_id = ? AND id = ?`, args...)
	return affected("update transaction", res, err, id)
}

func (s *Store) DeleteTransaction(ctx context.Context, userID, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM transactions WHERE user_id = ? AND id = ?`, userID, id)
	return affected("delete transaction", res, err, id)
}

func (s *Store) AddCategory(ctx context.Context, userID string, c core.Category) (string, error) {
	if err := c.Validate(); err != nil {
		return "", err
	}
	id := c.ID
	if id == "" {
		id = s.newID()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO categories (id, user_id, name, kind) VALUES (?, ?, ?, ?)`,
		id, userID, strings.TrimSpace(c.Name), c.Kind.String())
	if err != nil {
		return "", classify("add category", err)
	}
	return id, nil
}

func (s *Store) UpdateCategory(ctx context.Context, userID, id string, patch store.CategoryPatch) error {
	var (
		sets []string
		args []any
	)
	if patch.Name != nil {
		sets, args = append(sets, "name = ?"), append(args, strings.TrimSpace(*patch.Name))
	}
	if patch.Kind != nil {
		sets, args = append(sets, "kind = ?"), append(args, patch.Kind.String())
	}
	if len(sets) == 0 {
		return s.exists(ctx, "update category", "categories", userID, id)
	}
	args = append(args, userID, id)
	res, err := s.db.ExecContext(ctx,
		`UPDATE categories SET `+strings.Join(sets, ", ")+` WHERE user_id = ? AND id = ?`, args...)
	return affected("update category", res, err, id)
}

func (s *Store) DeleteCategory(ctx context.Context, userID, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM categories WHERE user_id = ? AND id = ?`, userID, id)
	return affected("delete category", res, err, id)
}

// exists checks a row is there for patches that change nothing.
func (s *Store) exists(ctx context.Context, op, table, userID, id string) error {
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM `+table+` WHERE user_id = ? AND id = ?`, userID, id).Scan(&one)
	return classify(op, err)
}

func affected(op string, res sql.Result, err error, id string) error {
	if err != nil {
		return classify(op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return classify(op, err)
	}
	if n == 0 {
		return store.NewError(store.NotFound, op, fmt.Errorf("record %q", id))
	}
	return nil
}
