package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	Income  Kind = "income"
	Expense Kind = "expense"
)

// UncategorizedID identifies the sentinel category that transactions fall
// back to when their category cannot be resolved and the ledger is built in
// substitute mode.
const UncategorizedID = "uncategorized"

const (
	dateLayout    = "2006-01-02"
	secondsPerDay = 24 * 60 * 60
)

type (
	// Kind tells whether a transaction adds to or subtracts from the balance.
	Kind string

	// Date is a civil calendar day, stored as midnight UTC.
	Date struct {
		time.Time
	}

	// DateRange is the half-open interval [From, To) of calendar days.
	DateRange struct {
		From Date
		To   Date
	}

	Category struct {
		ID   string
		Name string
		Kind Kind
	}

	// Transaction is a validated ledger entry. Amount is never negative; the
	// sign comes from Kind. Category is the resolved category at build time
	// and Day is the calendar day of OccurredAt in the ledger's location.
	Transaction struct {
		ID          string
		Description string
		Amount      Money
		Kind        Kind
		CategoryID  string
		Category    Category
		OccurredAt  time.Time
		Day         Date
	}
)

var (
	ErrInvalidDay     = errors.New("invalid day")
	ErrInvalidMonth   = errors.New("invalid month")
	ErrInvalidKind    = errors.New("invalid kind")
	ErrEmptyName      = errors.New("empty category name")
	ErrEmptyID        = errors.New("empty id")
	ErrNameTooLong    = errors.New("name too long (max 100 characters)")
	ErrDescriptionLen = errors.New("description too long (max 200 characters)")
)

// ParseKind accepts the canonical names as well as the Spanish labels used
// by older ledgers ("Ingreso", "Gasto"). Matching is case-insensitive.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "income", "ingreso", "ingresos":
		return Income, nil
	case "expense", "gasto", "gastos":
		return Expense, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidKind, s)
}

func (k Kind) IsValid() bool {
	return k == Income || k == Expense
}

func (k Kind) String() string {
	return string(k)
}

// Sign returns +1 for income and -1 for expense.
func (k Kind) Sign() int {
	if k == Income {
		return 1
	}
	return -1
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf returns the calendar day of t as observed in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, int(m), d)
}

// ParseDate parses a date string in YYYY-MM-DD format.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, err
	}
	return DateOf(t), nil
}

func (d Date) Validate() error {
	if d.IsZero() {
		return errors.New("date cannot be zero")
	}
	_, month, day := d.Date()
	if day < 1 || day > 31 {
		return ErrInvalidDay
	}
	if month < 1 || month > 12 {
		return ErrInvalidMonth
	}
	return nil
}

// Day returns the day of the month
func (d Date) Day() int {
	return d.Time.Day()
}

// Month returns the month
func (d Date) Month() int {
	return int(d.Time.Month())
}

// Year returns the year
func (d Date) Year() int {
	return d.Time.Year()
}

func (d Date) AddDays(n int) Date {
	return Date{Time: d.Time.AddDate(0, 0, n)}
}

func (d Date) Before(o Date) bool { return d.Time.Before(o.Time) }
func (d Date) After(o Date) bool  { return d.Time.After(o.Time) }
func (d Date) Equal(o Date) bool  { return d.Time.Equal(o.Time) }

// StartOfMonth returns the first day of d's month.
func (d Date) StartOfMonth() Date {
	return NewDate(d.Year(), d.Month(), 1)
}

// StartOfYear returns January 1st of d's year.
func (d Date) StartOfYear() Date {
	return NewDate(d.Year(), 1, 1)
}

// StartIn returns the instant at which d starts in loc.
func (d Date) StartIn(loc *time.Location) time.Time {
	return time.Date(d.Year(), time.Month(d.Month()), d.Day(), 0, 0, 0, 0, loc)
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(dateLayout)
}

func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Date) UnmarshalText(b []byte) error {
	if len(b) == 0 {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// MarshalJSON shadows time.Time's RFC 3339 encoding.
func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	return d.UnmarshalText([]byte(strings.Trim(string(b), `"`)))
}

func minDate(a, b Date) Date {
	if a.Before(b) {
		return a
	}
	return b
}

func maxDate(a, b Date) Date {
	if a.After(b) {
		return a
	}
	return b
}

// NewRange returns the half-open range [from, to).
func NewRange(from, to Date) DateRange {
	return DateRange{From: from, To: to}
}

// InclusiveRange returns the range covering every day from first through
// last, both included.
func InclusiveRange(first, last Date) DateRange {
	return DateRange{From: first, To: last.AddDays(1)}
}

func (r DateRange) IsZero() bool {
	return r.From.IsZero() && r.To.IsZero()
}

// IsEmpty reports whether the range contains no day at all.
func (r DateRange) IsEmpty() bool {
	return !r.From.Before(r.To)
}

// Contains reports whether From <= d < To.
func (r DateRange) Contains(d Date) bool {
	return !d.Before(r.From) && d.Before(r.To)
}

// Days returns the number of calendar days in the range.
func (r DateRange) Days() int {
	if r.IsEmpty() {
		return 0
	}
	return int((r.To.Unix() - r.From.Unix()) / secondsPerDay)
}

// LastDay returns the last day included in the range.
func (r DateRange) LastDay() Date {
	return r.To.AddDays(-1)
}

// Intersect returns the overlap of r and o. The result may be empty.
func (r DateRange) Intersect(o DateRange) DateRange {
	return DateRange{From: maxDate(r.From, o.From), To: minDate(r.To, o.To)}
}

func (r DateRange) String() string {
	return fmt.Sprintf("[%s, %s)", r.From, r.To)
}

func (c Category) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrEmptyName
	}
	if len(c.Name) > 100 {
		return ErrNameTooLong
	}
	if !c.Kind.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidKind, c.Kind)
	}
	return nil
}

// Uncategorized returns the sentinel category for the given kind.
func Uncategorized(kind Kind) Category {
	return Category{ID: UncategorizedID, Name: "Uncategorized", Kind: kind}
}

// DefaultCategories is the starter set created for a user with no categories.
func DefaultCategories() []Category {
	return []Category{
		{Name: "Food", Kind: Expense},
		{Name: "Transport", Kind: Expense},
		{Name: "Salary", Kind: Income},
		{Name: "Leisure", Kind: Expense},
		{Name: "Utilities", Kind: Expense},
		{Name: "Royalties", Kind: Income},
	}
}

// Signed returns the amount with the sign implied by the transaction kind.
func (t Transaction) Signed() Money {
	if t.Kind == Expense {
		return t.Amount.Neg()
	}
	return t.Amount
}

func (t Transaction) Validate() error {
	if strings.TrimSpace(t.ID) == "" {
		return ErrEmptyID
	}
	if len(t.Description) > 200 {
		return ErrDescriptionLen
	}
	if err := t.Amount.Validate(); err != nil {
		return err
	}
	if !t.Kind.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidKind, t.Kind)
	}
	if t.OccurredAt.IsZero() {
		return errors.New("occurred_at cannot be zero")
	}
	return nil
}
