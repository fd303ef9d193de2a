package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"klarity/internal/charts"
	"klarity/internal/core"
	"klarity/internal/insight"
	"klarity/internal/log"
	"klarity/internal/period"
	"klarity/internal/session"
	"klarity/internal/store"
)

const maxBodyBytes = 1 << 20

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// requestError is a malformed request: bad JSON, a bad query parameter.
type requestError struct {
	msg string
}

func (e *requestError) Error() string { return e.msg }

func badRequest(format string, args ...any) error {
	return &requestError{msg: fmt.Sprintf(format, args...)}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

// statusFor maps domain errors to an HTTP status and a stable code.
func statusFor(err error) (int, string) {
	var reqErr *requestError
	switch {
	case errors.As(err, &reqErr):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, session.ErrEmptyUserID):
		return http.StatusBadRequest, "missing_user"
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, charts.ErrNoData), errors.Is(err, insight.ErrNoTransactions):
		return http.StatusNotFound, "no_data"
	case errors.Is(err, store.ErrReadOnly):
		return http.StatusMethodNotAllowed, "read_only"
	case errors.Is(err, session.ErrCategoryKindLocked),
		errors.Is(err, session.ErrCategoryInUse),
		errors.Is(err, session.ErrDuplicateCategory):
		return http.StatusConflict, "conflict"
	case errors.Is(err, core.ErrUnknownCategory):
		return http.StatusUnprocessableEntity, "unknown_category"
	case errors.Is(err, session.ErrKindMismatch):
		return http.StatusUnprocessableEntity, "kind_mismatch"
	case errors.Is(err, core.ErrInvalidCustomRange):
		return http.StatusUnprocessableEntity, "invalid_range"
	case errors.Is(err, core.ErrInvalidAmount),
		errors.Is(err, core.ErrNegativeAmount),
		errors.Is(err, core.ErrInvalidKind),
		errors.Is(err, core.ErrBadTimestamp),
		errors.Is(err, core.ErrMissingField),
		errors.Is(err, core.ErrDescriptionLen),
		errors.Is(err, core.ErrEmptyName),
		errors.Is(err, core.ErrNameTooLong),
		errors.Is(err, insight.ErrUnknownKind),
		errors.Is(err, insight.ErrEmptyQuestion):
		return http.StatusUnprocessableEntity, "invalid"
	case errors.Is(err, insight.ErrNoGenerator), errors.Is(err, insight.ErrNoHistory):
		return http.StatusNotImplemented, "not_configured"
	case errors.Is(err, store.ErrAuthExpired):
		return http.StatusBadGateway, "store_auth_expired"
	case errors.Is(err, store.ErrMalformed):
		return http.StatusBadGateway, "store_malformed"
	case errors.Is(err, store.ErrUnreachable):
		return http.StatusServiceUnavailable, "store_unreachable"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "timeout"
	}
	return http.StatusInternalServerError, "internal"
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := statusFor(err)
	logger := log.FromContext(r.Context())
	fields := log.NewFields().WithError(err)
	fields[log.FieldStatusCode] = status
	fields["code"] = code
	if uid := r.PathValue("uid"); uid != "" {
		fields.WithUser(uid)
	}
	if status >= http.StatusInternalServerError {
		logger.ErrorContext(r.Context(), "Request failed", fields.ToSlice()...)
	} else {
		logger.DebugContext(r.Context(), "Request rejected", fields.ToSlice()...)
	}

	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal error"
	}
	writeJSON(w, status, errorResponse{Error: msg, Code: code})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return badRequest("request body is empty")
		}
		return badRequest("invalid JSON body: %v", err)
	}
	return nil
}

// today is the "today" query parameter, or the server's current day in
// the configured location.
func (s *Server) today(r *http.Request) (core.Date, error) {
	if v := strings.TrimSpace(r.URL.Query().Get("today")); v != "" {
		d, err := core.ParseDate(v)
		if err != nil {
			return core.Date{}, badRequest("invalid today %q: want YYYY-MM-DD", v)
		}
		return d, nil
	}
	return core.DateOf(s.now().In(s.loc)), nil
}

// periodRequest reads preset, from and to. from/to without a preset
// mean custom.
func periodRequest(r *http.Request) (period.Request, error) {
	q := r.URL.Query()
	from, to := strings.TrimSpace(q.Get("from")), strings.TrimSpace(q.Get("to"))
	presetText := q.Get("preset")
	if presetText == "" && (from != "" || to != "") {
		presetText = string(period.Custom)
	}
	preset, err := period.ParsePreset(presetText)
	if err != nil {
		return period.Request{}, badRequest("%v", err)
	}
	req := period.Request{Preset: preset}
	if preset != period.Custom {
		return req, nil
	}
	if req.From, err = parseDate("from", from); err != nil {
		return period.Request{}, err
	}
	if req.To, err = parseDate("to", to); err != nil {
		return period.Request{}, err
	}
	return req, nil
}

func parseDate(name, v string) (core.Date, error) {
	if v == "" {
		return core.Date{}, badRequest("%s is required for a custom period", name)
	}
	d, err := core.ParseDate(v)
	if err != nil {
		return core.Date{}, badRequest("invalid %s %q: want YYYY-MM-DD", name, v)
	}
	return d, nil
}

func (s *Server) topParam(r *http.Request) (int, error) {
	v := strings.TrimSpace(r.URL.Query().Get("top"))
	if v == "" {
		return s.defaultTop, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 || n > 100 {
		return 0, badRequest("invalid top %q: want 1-100", v)
	}
	return n, nil
}

func parseBool(v string) bool {
	b, _ := strconv.ParseBool(strings.TrimSpace(v))
	return b
}

// parseOccurredAt accepts RFC 3339 or a bare date, which means the start
// of that day in loc.
func parseOccurredAt(v string, loc *time.Location) (time.Time, error) {
	v = strings.TrimSpace(v)
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	if d, err := core.ParseDate(v); err == nil {
		return d.StartIn(loc), nil
	}
	return time.Time{}, badRequest("invalid occurred_at %q: want RFC 3339 or YYYY-MM-DD", v)
}

// sanitizeInput removes potentially dangerous characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
