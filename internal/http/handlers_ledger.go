package http

import (
	"net/http"
	"strings"

	"klarity/internal/core"
	"klarity/internal/report"
	"klarity/internal/store"
)

func missing(field string) error {
	return &core.ValidationError{Kind: core.MissingField, Field: field, Err: core.ErrMissingField}
}

func invalidField(kind core.ValidationKind, field string, value any, err error) error {
	return &core.ValidationError{Kind: kind, Field: field, Value: value, Err: err}
}

type transactionListJSON struct {
	Count        int               `json:"count"`
	Transactions []transactionJSON `json:"transactions"`
}

// handleListTransactions lists the transactions of a period, optionally
// narrowed to one kind and sorted by a column.
func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	_, rep, err := s.buildReport(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	q := r.URL.Query()
	col, err := report.ParseColumn(q.Get("sort"))
	if err != nil {
		s.writeError(w, r, badRequest("%v", err))
		return
	}

	txs := rep.Transactions
	if v := strings.TrimSpace(q.Get("kind")); v != "" {
		kind, err := core.ParseKind(v)
		if err != nil {
			s.writeError(w, r, badRequest("invalid kind %q", v))
			return
		}
		kept := make([]core.Transaction, 0, len(txs))
		for _, t := range txs {
			if t.Kind == kind {
				kept = append(kept, t)
			}
		}
		txs = kept
	}
	txs = report.SortTransactions(txs, col, parseBool(q.Get("desc")))
	writeJSON(w, http.StatusOK, transactionListJSON{Count: len(txs), Transactions: transactionsOf(txs)})
}

// patch converts the request body to a store patch. Values are parsed but
// not range-checked; the session validates the merged result.
func (s *Server) patch(body transactionRequest) (store.TransactionPatch, error) {
	var p store.TransactionPatch
	if body.Description != nil {
		d := sanitizeInput(*body.Description)
		p.Description = &d
	}
	if body.Amount != nil {
		m, err := core.ParseMoney(*body.Amount)
		if err != nil {
			return p, invalidField(core.BadAmount, store.FieldAmount, *body.Amount, err)
		}
		p.Amount = &m
	}
	if body.Kind != nil && strings.TrimSpace(*body.Kind) != "" {
		k, err := core.ParseKind(*body.Kind)
		if err != nil {
			return p, invalidField(core.BadKind, store.FieldKind, *body.Kind, err)
		}
		p.Kind = &k
	}
	if body.Category != nil {
		c := strings.TrimSpace(*body.Category)
		p.CategoryID = &c
	}
	if body.OccurredAt != nil {
		t, err := parseOccurredAt(*body.OccurredAt, s.loc)
		if err != nil {
			return p, invalidField(core.BadTimestamp, store.FieldOccurredAt, *body.OccurredAt, core.ErrBadTimestamp)
		}
		p.OccurredAt = &t
	}
	return p, nil
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var body transactionRequest
	if err := decodeJSON(w, r, &body); err != nil {
		s.writeError(w, r, err)
		return
	}
	switch {
	case body.Amount == nil:
		s.writeError(w, r, missing(store.FieldAmount))
		return
	case body.Category == nil || strings.TrimSpace(*body.Category) == "":
		s.writeError(w, r, missing(store.FieldCategoryID))
		return
	}
	p, err := s.patch(body)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	// the current time stands in for a missing occurred_at
	in := p.Apply(store.TransactionInput{OccurredAt: s.now()})

	tx, err := s.sessions.AddTransaction(r.Context(), r.PathValue("uid"), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, transactionOf(tx))
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	var body transactionRequest
	if err := decodeJSON(w, r, &body); err != nil {
		s.writeError(w, r, err)
		return
	}
	p, err := s.patch(body)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	tx, err := s.sessions.UpdateTransaction(r.Context(), r.PathValue("uid"), r.PathValue("id"), p)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, transactionOf(tx))
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.DeleteTransaction(r.Context(), r.PathValue("uid"), r.PathValue("id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type categoryUsageJSON struct {
	categoryJSON
	Transactions int `json:"transactions"`
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessions.Session(r.Context(), r.PathValue("uid"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	l := sess.Ledger()
	cats := l.Categories()
	out := make([]categoryUsageJSON, len(cats))
	for i, c := range cats {
		out[i] = categoryUsageJSON{categoryJSON: categoryOf(c), Transactions: l.CategoryUsage(c.ID)}
	}
	writeJSON(w, http.StatusOK, out)
}

func categoryPatch(body categoryRequest) (store.CategoryPatch, error) {
	var p store.CategoryPatch
	if body.Name != nil {
		n := sanitizeInput(*body.Name)
		p.Name = &n
	}
	if body.Kind != nil {
		k, err := core.ParseKind(*body.Kind)
		if err != nil {
			return p, invalidField(core.BadKind, store.FieldKind, *body.Kind, err)
		}
		p.Kind = &k
	}
	return p, nil
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var body categoryRequest
	if err := decodeJSON(w, r, &body); err != nil {
		s.writeError(w, r, err)
		return
	}
	if body.Kind == nil {
		s.writeError(w, r, missing(store.FieldKind))
		return
	}
	p, err := categoryPatch(body)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	c, err := s.sessions.AddCategory(r.Context(), r.PathValue("uid"), p.Apply(core.Category{}))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, categoryOf(c))
}

func (s *Server) handleUpdateCategory(w http.ResponseWriter, r *http.Request) {
	var body categoryRequest
	if err := decodeJSON(w, r, &body); err != nil {
		s.writeError(w, r, err)
		return
	}
	p, err := categoryPatch(body)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	c, err := s.sessions.UpdateCategory(r.Context(), r.PathValue("uid"), r.PathValue("id"), p)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, categoryOf(c))
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.DeleteCategory(r.Context(), r.PathValue("uid"), r.PathValue("id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleDefaultCategories creates the starter categories when the user
// has none.
func (s *Server) handleDefaultCategories(w http.ResponseWriter, r *http.Request) {
	n, err := s.sessions.EnsureDefaults(r.Context(), r.PathValue("uid"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	status := http.StatusOK
	if n > 0 {
		status = http.StatusCreated
	}
	writeJSON(w, status, map[string]int{"created": n})
}
