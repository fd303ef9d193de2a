// Package ledger builds the validated, indexed view of a user's transactions
// from the raw records a store returns.
package ledger

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"klarity/internal/core"
	"klarity/internal/store"
)

// UnknownCategoryPolicy decides what happens to a transaction whose
// category cannot be resolved.
type UnknownCategoryPolicy string

const (
	// Reject skips the transaction and reports an UnknownCategory error.
	Reject UnknownCategoryPolicy = "reject"
	// Substitute keeps the transaction under the Uncategorized category.
	Substitute UnknownCategoryPolicy = "substitute"
)

// DuplicateID is reported when two transaction records share a key. The
// first one wins.
const DuplicateID core.ValidationKind = "duplicate_id"

func ParsePolicy(s string) (UnknownCategoryPolicy, error) {
	switch p := UnknownCategoryPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case "", Reject:
		return Reject, nil
	case Substitute:
		return Substitute, nil
	default:
		return "", fmt.Errorf("invalid unknown category policy %q: must be %q or %q", s, Reject, Substitute)
	}
}

type Options struct {
	OnUnknownCategory UnknownCategoryPolicy
	// Location is the calendar used to assign transactions to days.
	// Defaults to UTC.
	Location *time.Location
}

// TimeLocation returns Location, or UTC when unset.
func (o Options) TimeLocation() *time.Location {
	if o.Location == nil {
		return time.UTC
	}
	return o.Location
}

// LoadReport tells how much of the raw ledger made it into the index.
type LoadReport struct {
	Transactions int
	Categories   int
	Skipped      []*core.ValidationError
}

// Partial reports whether any record was skipped.
func (r LoadReport) Partial() bool {
	return len(r.Skipped) > 0
}

// Err joins every skipped record's error, or returns nil.
func (r LoadReport) Err() error {
	if len(r.Skipped) == 0 {
		return nil
	}
	errs := make([]error, len(r.Skipped))
	for i, e := range r.Skipped {
		errs[i] = e
	}
	return errors.Join(errs...)
}

func (r LoadReport) CountByKind() map[core.ValidationKind]int {
	out := make(map[core.ValidationKind]int)
	for _, e := range r.Skipped {
		out[e.Kind]++
	}
	return out
}

// Summary renders e.g. "12 transactions, 3 categories loaded, 2 skipped (negative_amount=1, unknown_category=1)".
func (r LoadReport) Summary() string {
	s := fmt.Sprintf("%d transactions, %d categories loaded", r.Transactions, r.Categories)
	if len(r.Skipped) == 0 {
		return s
	}
	counts := r.CountByKind()
	kinds := make([]string, 0, len(counts))
	for k := range counts {
		kinds = append(kinds, string(k))
	}
	sort.Strings(kinds)
	parts := make([]string, len(kinds))
	for i, k := range kinds {
		parts[i] = fmt.Sprintf("%s=%d", k, counts[core.ValidationKind(k)])
	}
	return fmt.Sprintf("%s, %d skipped (%s)", s, len(r.Skipped), strings.Join(parts, ", "))
}

// Ledger is an immutable, indexed set of validated transactions. Every
// accessor returns copies, so a Ledger can be shared between goroutines.
type Ledger struct {
	userID      string
	categories  map[string]core.Category
	byName      map[string]core.Category
	catOrder    []core.Category
	ordered     []core.Transaction
	byID        map[string]int
	categoryUse map[string]int
	// transactions that reference their category by name, per category id
	nameRefs map[string][]string
}

// Empty returns a ledger without categories or transactions.
func Empty(userID string) *Ledger {
	return &Ledger{
		userID:      userID,
		categories:  map[string]core.Category{},
		byName:      map[string]core.Category{},
		byID:        map[string]int{},
		categoryUse: map[string]int{},
		nameRefs:    map[string][]string{},
	}
}

// Build validates raw records and indexes the valid ones. Invalid records
// are skipped and listed in the report; Build itself never fails.
func Build(raw store.RawLedger, opts Options) (*Ledger, LoadReport) {
	l := Empty(raw.UserID)
	var report LoadReport

	for _, rec := range raw.Categories {
		c, verr := parseCategory(rec)
		if verr != nil {
			report.Skipped = append(report.Skipped, verr)
			continue
		}
		if _, dup := l.categories[c.ID]; dup {
			report.Skipped = append(report.Skipped, invalid(DuplicateID, c.ID, "id", nil, nil))
			continue
		}
		l.categories[c.ID] = c
		nameKey := strings.ToLower(c.Name)
		if _, taken := l.byName[nameKey]; !taken {
			l.byName[nameKey] = c
		}
		l.catOrder = append(l.catOrder, c)
	}
	sort.Slice(l.catOrder, func(i, j int) bool {
		a, b := l.catOrder[i], l.catOrder[j]
		if !strings.EqualFold(a.Name, b.Name) {
			return strings.ToLower(a.Name) < strings.ToLower(b.Name)
		}
		return a.ID < b.ID
	})
	report.Categories = len(l.catOrder)

	seen := make(map[string]struct{}, len(raw.Transactions))
	for _, rec := range raw.Transactions {
		tx, verr := l.parseTransaction(rec, opts)
		if verr != nil {
			report.Skipped = append(report.Skipped, verr)
			continue
		}
		if _, dup := seen[tx.ID]; dup {
			report.Skipped = append(report.Skipped, invalid(DuplicateID, tx.ID, "id", nil, nil))
			continue
		}
		seen[tx.ID] = struct{}{}
		l.ordered = append(l.ordered, tx)
		if ref := lookupString(rec.Fields, categoryKeys); ref != tx.CategoryID {
			if _, ok := l.categories[tx.CategoryID]; ok {
				l.nameRefs[tx.CategoryID] = append(l.nameRefs[tx.CategoryID], tx.ID)
			}
		}
	}

	sort.SliceStable(l.ordered, func(i, j int) bool {
		a, b := l.ordered[i], l.ordered[j]
		if !a.OccurredAt.Equal(b.OccurredAt) {
			return a.OccurredAt.Before(b.OccurredAt)
		}
		return a.ID < b.ID
	})
	for i, tx := range l.ordered {
		l.byID[tx.ID] = i
		l.categoryUse[tx.CategoryID]++
	}
	report.Transactions = len(l.ordered)

	return l, report
}

func (l *Ledger) parseTransaction(rec store.Record, opts Options) (core.Transaction, *core.ValidationError) {
	key := recordKey(rec)
	if key == "" {
		return core.Transaction{}, invalid(core.MissingField, key, "id", nil, errors.New("record has no key"))
	}
	f := rec.Fields

	rawAmount, field, ok := lookup(f, amountKeys)
	if !ok {
		return core.Transaction{}, invalid(core.MissingField, key, field, nil, core.ErrInvalidAmount)
	}
	amount, err := parseAmount(rawAmount)
	if err != nil {
		return core.Transaction{}, invalid(core.BadAmount, key, field, rawAmount, err)
	}
	if amount.IsNegative() {
		return core.Transaction{}, invalid(core.NegativeAmount, key, field, rawAmount, nil)
	}

	rawWhen, field, ok := lookup(f, occurredAtKeys)
	if !ok {
		return core.Transaction{}, invalid(core.BadTimestamp, key, field, nil, core.ErrMissingField)
	}
	when, err := parseTimestamp(rawWhen, opts.TimeLocation())
	if err != nil {
		return core.Transaction{}, invalid(core.BadTimestamp, key, field, rawWhen, err)
	}

	cat, catFound := l.resolveCategory(lookupString(f, categoryKeys))

	var kind core.Kind
	if rawKind, field, ok := lookup(f, kindKeys); ok {
		kind, err = core.ParseKind(fmt.Sprint(rawKind))
		if err != nil {
			return core.Transaction{}, invalid(core.BadKind, key, field, rawKind, err)
		}
	} else if catFound {
		kind = cat.Kind
	} else {
		return core.Transaction{}, invalid(core.MissingField, key, kindKeys[0], nil, core.ErrInvalidKind)
	}

	if !catFound {
		if opts.OnUnknownCategory != Substitute {
			raw, _, _ := lookup(f, categoryKeys)
			return core.Transaction{}, invalid(core.UnknownCategory, key, categoryKeys[0], raw, nil)
		}
		cat = core.Uncategorized(kind)
	}

	return core.Transaction{
		ID:          key,
		Description: lookupString(f, descriptionKeys),
		Amount:      amount,
		Kind:        kind,
		CategoryID:  cat.ID,
		Category:    cat,
		OccurredAt:  when,
		Day:         core.DateOf(when),
	}, nil
}

// resolveCategory looks a reference up by id first, then by name.
func (l *Ledger) resolveCategory(ref string) (core.Category, bool) {
	if ref == "" {
		return core.Category{}, false
	}
	if c, ok := l.categories[ref]; ok {
		return c, true
	}
	if c, ok := l.byName[strings.ToLower(ref)]; ok {
		return c, true
	}
	return core.Category{}, false
}

func (l *Ledger) UserID() string { return l.userID }

// Len returns the number of transactions.
func (l *Ledger) Len() int { return len(l.ordered) }

func (l *Ledger) Transaction(id string) (core.Transaction, bool) {
	i, ok := l.byID[id]
	if !ok {
		return core.Transaction{}, false
	}
	return l.ordered[i], true
}

func (l *Ledger) Category(id string) (core.Category, bool) {
	c, ok := l.categories[id]
	return c, ok
}

// CategoryByName resolves a category by case-insensitive name.
func (l *Ledger) CategoryByName(name string) (core.Category, bool) {
	c, ok := l.byName[strings.ToLower(strings.TrimSpace(name))]
	return c, ok
}

// Categories returns all categories ordered by name.
func (l *Ledger) Categories() []core.Category {
	return append([]core.Category(nil), l.catOrder...)
}

// CategoryUsage returns how many transactions reference the category.
func (l *Ledger) CategoryUsage(id string) int {
	return l.categoryUse[id]
}

// NameReferences returns the ids of the transactions that reach the
// category through its name rather than its id. A rename would orphan them.
func (l *Ledger) NameReferences(id string) []string {
	refs := append([]string(nil), l.nameRefs[id]...)
	sort.Strings(refs)
	return refs
}

// Transactions returns every transaction in ascending time order.
func (l *Ledger) Transactions() []core.Transaction {
	return append([]core.Transaction(nil), l.ordered...)
}

// Span is [first day, last day + 1) over all transactions, or the zero
// range for an empty ledger.
func (l *Ledger) Span() core.DateRange {
	if len(l.ordered) == 0 {
		return core.DateRange{}
	}
	return core.InclusiveRange(l.ordered[0].Day, l.ordered[len(l.ordered)-1].Day)
}

// Between returns the transactions whose day lies in rng, ascending.
func (l *Ledger) Between(rng core.DateRange) []core.Transaction {
	if rng.IsEmpty() {
		return []core.Transaction{}
	}
	lo := sort.Search(len(l.ordered), func(i int) bool {
		return !l.ordered[i].Day.Before(rng.From)
	})
	hi := sort.Search(len(l.ordered), func(i int) bool {
		return !l.ordered[i].Day.Before(rng.To)
	})
	if lo >= hi {
		return []core.Transaction{}
	}
	return append([]core.Transaction(nil), l.ordered[lo:hi]...)
}
