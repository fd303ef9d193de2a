package ledger

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"klarity/internal/core"
	"klarity/internal/store"
)

// Field aliases, canonical name first. The Spanish names were written by
// older mobile clients and are still found in some stores.
var (
	amountKeys      = []string{store.FieldAmount, "monto"}
	kindKeys        = []string{store.FieldKind, "type", "tipo"}
	categoryKeys    = []string{store.FieldCategoryID, "category", "categoria"}
	occurredAtKeys  = []string{store.FieldOccurredAt, "date", "fecha"}
	descriptionKeys = []string{store.FieldDescription, "descripcion"}
	nameKeys        = []string{store.FieldName, "nombre"}
)

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func lookup(fields map[string]any, keys []string) (any, string, bool) {
	for _, k := range keys {
		if v, ok := fields[k]; ok && v != nil {
			return v, k, true
		}
	}
	return nil, keys[0], false
}

func lookupString(fields map[string]any, keys []string) string {
	v, _, ok := lookup(fields, keys)
	if !ok {
		return ""
	}
	return strings.TrimSpace(fmt.Sprint(v))
}

// parseAmount accepts JSON numbers, integers and decimal strings.
func parseAmount(v any) (core.Money, error) {
	switch x := v.(type) {
	case core.Money:
		return x, nil
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return core.Money{}, core.ErrInvalidAmount
		}
		return core.MoneyFromFloat(x), nil
	case float32:
		return parseAmount(float64(x))
	case int:
		return core.MoneyFromInt(int64(x)), nil
	case int64:
		return core.MoneyFromInt(x), nil
	case json.Number:
		return core.ParseMoney(x.String())
	case string:
		return core.ParseMoney(x)
	case []byte:
		return core.ParseMoney(string(x))
	}
	return core.Money{}, core.ErrInvalidAmount
}

// Plausible years for a ledger entry. Milliseconds read as seconds land
// tens of thousands of years out.
const (
	minYear = 1900
	maxYear = 2999
)

// parseTimestamp accepts unix seconds (integer or fractional), RFC 3339
// timestamps and plain dates. Plain dates and zone-less timestamps are read
// in loc. Years outside [minYear, maxYear] are rejected.
func parseTimestamp(v any, loc *time.Location) (time.Time, error) {
	t, err := decodeTimestamp(v, loc)
	if err != nil {
		return time.Time{}, err
	}
	if y := t.Year(); y < minYear || y > maxYear {
		return time.Time{}, fmt.Errorf("%w: year %d out of range", core.ErrBadTimestamp, y)
	}
	return t, nil
}

func decodeTimestamp(v any, loc *time.Location) (time.Time, error) {
	switch x := v.(type) {
	case time.Time:
		if x.IsZero() {
			return time.Time{}, core.ErrBadTimestamp
		}
		return x.In(loc), nil
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return time.Time{}, core.ErrBadTimestamp
		}
		sec, frac := math.Modf(x)
		return time.Unix(int64(sec), int64(frac*1e9)).In(loc), nil
	case int:
		return time.Unix(int64(x), 0).In(loc), nil
	case int64:
		return time.Unix(x, 0).In(loc), nil
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return time.Unix(i, 0).In(loc), nil
		}
		f, err := x.Float64()
		if err != nil {
			return time.Time{}, core.ErrBadTimestamp
		}
		return decodeTimestamp(f, loc)
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return time.Time{}, core.ErrBadTimestamp
		}
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return time.Unix(i, 0).In(loc), nil
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return decodeTimestamp(f, loc)
		}
		for _, layout := range timestampLayouts {
			if t, err := time.ParseInLocation(layout, s, loc); err == nil {
				return t.In(loc), nil
			}
		}
	}
	return time.Time{}, core.ErrBadTimestamp
}

func invalid(kind core.ValidationKind, key, field string, value any, err error) *core.ValidationError {
	return &core.ValidationError{Kind: kind, Record: key, Field: field, Value: value, Err: err}
}

// parseCategory turns a category document into a core.Category.
func parseCategory(rec store.Record) (core.Category, *core.ValidationError) {
	key := recordKey(rec)
	if key == "" {
		return core.Category{}, invalid(core.MissingField, key, "id", nil, errors.New("record has no key"))
	}
	name := lookupString(rec.Fields, nameKeys)
	if name == "" {
		return core.Category{}, invalid(core.MissingField, key, store.FieldName, nil, core.ErrEmptyName)
	}
	rawKind, field, ok := lookup(rec.Fields, kindKeys)
	if !ok {
		return core.Category{}, invalid(core.MissingField, key, field, nil, core.ErrInvalidKind)
	}
	kind, err := core.ParseKind(fmt.Sprint(rawKind))
	if err != nil {
		return core.Category{}, invalid(core.BadKind, key, field, rawKind, err)
	}
	return core.Category{ID: key, Name: name, Kind: kind}, nil
}

func recordKey(rec store.Record) string {
	if k := strings.TrimSpace(rec.Key); k != "" {
		return k
	}
	if v, ok := rec.Fields["id"]; ok && v != nil {
		return strings.TrimSpace(fmt.Sprint(v))
	}
	return ""
}
