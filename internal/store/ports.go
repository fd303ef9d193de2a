// Package store defines how ledgers are read from and written to the
// keyed-document stores behind the service. Adapters live in subpackages.
package store

import (
	"context"
	"strings"
	"time"

	"klarity/internal/core"
)

// Record is one untyped document as the store returns it. Only the ledger
// index interprets Fields.
type Record struct {
	Key    string
	Fields map[string]any
}

// RawLedger is everything a store holds for one user.
type RawLedger struct {
	UserID       string
	Categories   []Record
	Transactions []Record
}

// LedgerFetcher loads the raw records of a user's ledger.
// Failures are reported as *StoreError.
type LedgerFetcher interface {
	FetchLedger(ctx context.Context, userID string) (RawLedger, error)
}

// TransactionInput is a new transaction as submitted by a caller.
type TransactionInput struct {
	Description string
	Amount      core.Money
	Kind        core.Kind
	CategoryID  string
	OccurredAt  time.Time
}

// TransactionPatch carries the fields to change; nil fields are left alone.
type TransactionPatch struct {
	Description *string
	Amount      *core.Money
	Kind        *core.Kind
	CategoryID  *string
	OccurredAt  *time.Time
}

// CategoryPatch carries the category fields to change.
type CategoryPatch struct {
	Name *string
	Kind *core.Kind
}

// LedgerWriter mutates a user's ledger. Methods return the new record key
// where one is created.
type LedgerWriter interface {
	AddTransaction(ctx context.Context, userID string, in TransactionInput) (string, error)
	UpdateTransaction(ctx context.Context, userID, id string, patch TransactionPatch) error
	DeleteTransaction(ctx context.Context, userID, id string) error
	AddCategory(ctx context.Context, userID string, c core.Category) (string, error)
	UpdateCategory(ctx context.Context, userID, id string, patch CategoryPatch) error
	DeleteCategory(ctx context.Context, userID, id string) error
}

// Store is a full read-write adapter.
type Store interface {
	LedgerFetcher
	LedgerWriter
}

func (in TransactionInput) Validate() error {
	if err := in.Amount.Validate(); err != nil {
		return err
	}
	if !in.Kind.IsValid() {
		return core.ErrInvalidKind
	}
	if in.OccurredAt.IsZero() {
		return core.ErrBadTimestamp
	}
	if len(in.Description) > 200 {
		return core.ErrDescriptionLen
	}
	return nil
}

// Fields renders the input in the document shape every adapter persists.
// Amounts are stored as decimal strings and timestamps as unix seconds.
func (in TransactionInput) Fields() map[string]any {
	return map[string]any{
		FieldDescription: in.Description,
		FieldAmount:      in.Amount.String(),
		FieldKind:        in.Kind.String(),
		FieldCategoryID:  in.CategoryID,
		FieldOccurredAt:  in.OccurredAt.Unix(),
	}
}

// Apply returns the input with the patch applied.
func (p TransactionPatch) Apply(in TransactionInput) TransactionInput {
	if p.Description != nil {
		in.Description = *p.Description
	}
	if p.Amount != nil {
		in.Amount = *p.Amount
	}
	if p.Kind != nil {
		in.Kind = *p.Kind
	}
	if p.CategoryID != nil {
		in.CategoryID = *p.CategoryID
	}
	if p.OccurredAt != nil {
		in.OccurredAt = *p.OccurredAt
	}
	return in
}

func (p CategoryPatch) Apply(c core.Category) core.Category {
	if p.Name != nil {
		c.Name = *p.Name
	}
	if p.Kind != nil {
		c.Kind = *p.Kind
	}
	return c
}

// Canonical document field names written by adapters.
const (
	FieldDescription = "description"
	FieldAmount      = "amount"
	FieldKind        = "kind"
	FieldCategoryID  = "category_id"
	FieldOccurredAt  = "occurred_at"
	FieldName        = "name"
)

// CategoryFields renders a category in the persisted document shape.
func CategoryFields(c core.Category) map[string]any {
	return map[string]any{
		FieldName: strings.TrimSpace(c.Name),
		FieldKind: c.Kind.String(),
	}
}
