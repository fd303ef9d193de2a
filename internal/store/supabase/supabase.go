// Package supabase reads and writes ledgers kept in Supabase (PostgREST)
// tables "categories" and "transactions", both keyed by user_id.
package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	supa "github.com/supabase-community/supabase-go"
	"golang.org/x/sync/errgroup"

	"klarity/internal/core"
	"klarity/internal/store"
)

const (
	categoriesTable   = "categories"
	transactionsTable = "transactions"
)

type Store struct {
	client *supa.Client
	newID  func() string
}

var _ store.Store = (*Store)(nil)

func New(url, key string) (*Store, error) {
	if url == "" || key == "" {
		return nil, errors.New("supabase url and key are required")
	}
	client, err := supa.NewClient(url, key, &supa.ClientOptions{})
	if err != nil {
		return nil, fmt.Errorf("create supabase client: %w", err)
	}
	return &Store{client: client, newID: uuid.NewString}, nil
}

func (s *Store) FetchLedger(ctx context.Context, userID string) (store.RawLedger, error) {
	raw := store.RawLedger{UserID: userID}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		recs, err := s.selectAll(gctx, categoriesTable, userID)
		raw.Categories = recs
		return err
	})
	g.Go(func() error {
		recs, err := s.selectAll(gctx, transactionsTable, userID)
		raw.Transactions = recs
		return err
	})
	if err := g.Wait(); err != nil {
		return store.RawLedger{}, err
	}
	return raw, nil
}

func (s *Store) selectAll(ctx context.Context, table, userID string) ([]store.Record, error) {
	op := "select " + table
	if err := ctx.Err(); err != nil {
		return nil, store.NewError(store.Unreachable, op, err)
	}
	data, _, err := s.client.From(table).
		Select("*", "", false).
		Eq("user_id", userID).
		Execute()
	if err != nil {
		return nil, classify(op, err)
	}
	recs, err := decodeRows(data)
	if err != nil {
		return nil, store.NewError(store.Malformed, op, err)
	}
	return recs, nil
}

func (s *Store) AddTransaction(ctx context.Context, userID string, in store.TransactionInput) (string, error) {
	if err := in.Validate(); err != nil {
		return "", err
	}
	id := s.newID()
	return id, s.insert(ctx, transactionsTable, transactionRow(id, userID, in))
}

func (s *Store) UpdateTransaction(ctx context.Context, userID, id string, patch store.TransactionPatch) error {
	return s.update(ctx, transactionsTable, userID, id, transactionPatchRow(patch))
}

func (s *Store) DeleteTransaction(ctx context.Context, userID, id string) error {
	return s.delete(ctx, transactionsTable, userID, id)
}

func (s *Store) AddCategory(ctx context.Context, userID string, c core.Category) (string, error) {
	if err := c.Validate(); err != nil {
		return "", err
	}
	id := c.ID
	if id == "" {
		id = s.newID()
	}
	row := store.CategoryFields(c)
	row["id"] = id
	row["user_id"] = userID
	return id, s.insert(ctx, categoriesTable, row)
}

func (s *Store) UpdateCategory(ctx context.Context, userID, id string, patch store.CategoryPatch) error {
	row := map[string]any{}
	if patch.Name != nil {
		row[store.FieldName] = strings.TrimSpace(*patch.Name)
	}
	if patch.Kind != nil {
		row[store.FieldKind] = patch.Kind.String()
	}
	return s.update(ctx, categoriesTable, userID, id, row)
}

func (s *Store) DeleteCategory(ctx context.Context, userID, id string) error {
	return s.delete(ctx, categoriesTable, userID, id)
}

func (s *Store) insert(ctx context.Context, table string, row map[string]any) error {
	op := "insert " + table
	if err := ctx.Err(); err != nil {
		return store.NewError(store.Unreachable, op, err)
	}
	if _, _, err := s.client.From(table).Insert(row, false, "", "", "").Execute(); err != nil {
		return classify(op, err)
	}
	return nil
}

// update and delete ask for the affected rows back so a missing id can be
// reported as not found.
func (s *Store) update(ctx context.Context, table, userID, id string, row map[string]any) error {
	op := "update " + table
	if err := ctx.Err(); err != nil {
		return store.NewError(store.Unreachable, op, err)
	}
	var (
		data []byte
		err  error
	)
	if len(row) == 0 {
		data, _, err = s.client.From(table).Select("id", "", false).Eq("user_id", userID).Eq("id", id).Execute()
	} else {
		data, _, err = s.client.From(table).Update(row, "representation", "").Eq("user_id", userID).Eq("id", id).Execute()
	}
	if err != nil {
		return classify(op, err)
	}
	return requireRows(op, id, data)
}

func (s *Store) delete(ctx context.Context, table, userID, id string) error {
	op := "delete " + table
	if err := ctx.Err(); err != nil {
		return store.NewError(store.Unreachable, op, err)
	}
	data, _, err := s.client.From(table).Delete("representation", "").Eq("user_id", userID).Eq("id", id).Execute()
	if err != nil {
		return classify(op, err)
	}
	return requireRows(op, id, data)
}

func requireRows(op, id string, data []byte) error {
	recs, err := decodeRows(data)
	if err != nil {
		return store.NewError(store.Malformed, op, err)
	}
	if len(recs) == 0 {
		return store.NewError(store.NotFound, op, fmt.Errorf("record %q", id))
	}
	return nil
}

func transactionRow(id, userID string, in store.TransactionInput) map[string]any {
	row := in.Fields()
	row["id"] = id
	row["user_id"] = userID
	row[store.FieldOccurredAt] = in.OccurredAt.UTC().Format(time.RFC3339)
	return row
}

func transactionPatchRow(p store.TransactionPatch) map[string]any {
	row := map[string]any{}
	if p.Description != nil {
		row[store.FieldDescription] = *p.Description
	}
	if p.Amount != nil {
		row[store.FieldAmount] = p.Amount.String()
	}
	if p.Kind != nil {
		row[store.FieldKind] = p.Kind.String()
	}
	if p.CategoryID != nil {
		row[store.FieldCategoryID] = *p.CategoryID
	}
	if p.OccurredAt != nil {
		row[store.FieldOccurredAt] = p.OccurredAt.UTC().Format(time.RFC3339)
	}
	return row
}

// decodeRows turns a PostgREST JSON array into records keyed by "id".
// Numbers are kept as json.Number so amounts keep their exact digits.
func decodeRows(data []byte) ([]store.Record, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var rows []map[string]any
	if err := dec.Decode(&rows); err != nil {
		return nil, fmt.Errorf("decode rows: %w", err)
	}
	out := make([]store.Record, 0, len(rows))
	for _, row := range rows {
		key := ""
		if v, ok := row["id"]; ok && v != nil {
			key = fmt.Sprint(v)
		}
		delete(row, "id")
		delete(row, "user_id")
		out = append(out, store.Record{Key: key, Fields: row})
	}
	return out, nil
}

// classify maps PostgREST and transport errors to store error kinds.
func classify(op string, err error) error {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "jwt"),
		strings.Contains(msg, "pgrst301"),
		strings.Contains(msg, "401"),
		strings.Contains(msg, "invalid api key"):
		return store.NewError(store.AuthExpired, op, err)
	case strings.Contains(msg, "invalid input syntax"),
		strings.Contains(msg, "pgrst102"):
		return store.NewError(store.Malformed, op, err)
	default:
		return store.NewError(store.Unreachable, op, err)
	}
}
