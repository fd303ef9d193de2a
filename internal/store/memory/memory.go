// Package memory is an in-process ledger store used for development and
// tests.
package memory

import (
	"bufio"
	"context"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"

	"klarity/internal/core"
	"klarity/internal/store"
)

type userLedger struct {
	cats []store.Record
	txs  []store.Record
}

// Store keeps every user's ledger in memory. Users seen for the first time
// start with the seed categories.
type Store struct {
	mu      sync.Mutex
	seed    []core.Category
	users   map[string]*userLedger
	history map[string][]store.SuggestionRecord
	newID   func() string
}

var (
	_ store.Store           = (*Store)(nil)
	_ store.SuggestionStore = (*Store)(nil)
)

func New(seed []core.Category) *Store {
	return &Store{
		seed:    seed,
		users:   make(map[string]*userLedger),
		history: make(map[string][]store.SuggestionRecord),
		newID:   uuid.NewString,
	}
}

// NewFromFiles reads seed categories from base/seed_categories.txt, one
// "Name|kind" per line. Kind defaults to expense. Without a file the
// store starts users with no categories.
func NewFromFiles(base string) *Store {
	var seed []core.Category
	for _, line := range readLines(filepath.Join(base, "seed_categories.txt")) {
		name, kindText, _ := strings.Cut(line, "|")
		kind := core.Expense
		if strings.TrimSpace(kindText) != "" {
			k, err := core.ParseKind(kindText)
			if err != nil {
				continue
			}
			kind = k
		}
		seed = append(seed, core.Category{Name: strings.TrimSpace(name), Kind: kind})
	}
	return New(seed)
}

// Seed replaces a user's ledger with the given raw records.
func (s *Store) Seed(userID string, raw store.RawLedger) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[userID] = &userLedger{
		cats: cloneRecords(raw.Categories),
		txs:  cloneRecords(raw.Transactions),
	}
}

// user returns the ledger for userID, creating it on first use.
// Callers hold s.mu.
func (s *Store) user(userID string) *userLedger {
	u, ok := s.users[userID]
	if ok {
		return u
	}
	u = &userLedger{}
	for _, c := range s.seed {
		u.cats = append(u.cats, store.Record{Key: s.newID(), Fields: store.CategoryFields(c)})
	}
	s.users[userID] = u
	return u
}

func (s *Store) FetchLedger(ctx context.Context, userID string) (store.RawLedger, error) {
	if err := ctx.Err(); err != nil {
		return store.RawLedger{}, store.NewError(store.Unreachable, "fetch ledger", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.user(userID)
	return store.RawLedger{
		UserID:       userID,
		Categories:   cloneRecords(u.cats),
		Transactions: cloneRecords(u.txs),
	}, nil
}

func (s *Store) AddTransaction(_ context.Context, userID string, in store.TransactionInput) (string, error) {
	if err := in.Validate(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.user(userID)
	id := s.newID()
	u.txs = append(u.txs, store.Record{Key: id, Fields: in.Fields()})
	return id, nil
}

func (s *Store) UpdateTransaction(_ context.Context, userID, id string, patch store.TransactionPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.user(userID)
	i := indexOf(u.txs, id)
	if i < 0 {
		return store.NewError(store.NotFound, "update transaction", fmt.Errorf("transaction %q", id))
	}
	f := u.txs[i].Fields
	if patch.Description != nil {
		f[store.FieldDescription] = *patch.Description
	}
	if patch.Amount != nil {
		f[store.FieldAmount] = patch.Amount.String()
	}
	if patch.Kind != nil {
		f[store.FieldKind] = patch.Kind.String()
	}
	if patch.CategoryID != nil {
		f[store.FieldCategoryID] = *patch.CategoryID
	}
	if patch.OccurredAt != nil {
		f[store.FieldOccurredAt] = patch.OccurredAt.Unix()
	}
	return nil
}

func (s *Store) DeleteTransaction(_ context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.user(userID)
	i := indexOf(u.txs, id)
	if i < 0 {
		return store.NewError(store.NotFound, "delete transaction", fmt.Errorf("transaction %q", id))
	}
	u.txs = append(u.txs[:i], u.txs[i+1:]...)
	return nil
}

func (s *Store) AddCategory(_ context.Context, userID string, c core.Category) (string, error) {
	if err := c.Validate(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.user(userID)
	id := c.ID
	if id == "" {
		id = s.newID()
	}
	if indexOf(u.cats, id) >= 0 {
		return "", fmt.Errorf("category %q already exists", id)
	}
	u.cats = append(u.cats, store.Record{Key: id, Fields: store.CategoryFields(c)})
	return id, nil
}

func (s *Store) UpdateCategory(_ context.Context, userID, id string, patch store.CategoryPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.user(userID)
	i := indexOf(u.cats, id)
	if i < 0 {
		return store.NewError(store.NotFound, "update category", fmt.Errorf("category %q", id))
	}
	f := u.cats[i].Fields
	if patch.Name != nil {
		f[store.FieldName] = strings.TrimSpace(*patch.Name)
	}
	if patch.Kind != nil {
		f[store.FieldKind] = patch.Kind.String()
	}
	return nil
}

func (s *Store) DeleteCategory(_ context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.user(userID)
	i := indexOf(u.cats, id)
	if i < 0 {
		return store.NewError(store.NotFound, "delete category", fmt.Errorf("category %q", id))
	}
	u.cats = append(u.cats[:i], u.cats[i+1:]...)
	return nil
}

func indexOf(recs []store.Record, key string) int {
	for i, r := range recs {
		if r.Key == key {
			return i
		}
	}
	return -1
}

func cloneRecords(in []store.Record) []store.Record {
	out := make([]store.Record, len(in))
	for i, r := range in {
		out[i] = store.Record{Key: r.Key, Fields: maps.Clone(r.Fields)}
		if out[i].Fields == nil {
			out[i].Fields = map[string]any{}
		}
	}
	return out
}

func readLines(path string) []string {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()
	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return dedupe(out)
}

// dedupe drops repeated lines, keeping the first occurrence.
func dedupe(in []string) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(in))
	for _, v := range in {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
