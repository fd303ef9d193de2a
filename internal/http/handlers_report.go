package http

import (
	"bytes"
	"net/http"
	"strconv"
	"strings"

	"klarity/internal/charts"
	"klarity/internal/insight"
	"klarity/internal/log"
	"klarity/internal/report"
	"klarity/internal/session"
)

// buildReport loads the user's session and computes the report the query
// asks for.
func (s *Server) buildReport(r *http.Request) (*session.Session, report.Report, error) {
	sess, err := s.sessions.Session(r.Context(), r.PathValue("uid"))
	if err != nil {
		return nil, report.Report{}, err
	}
	req, err := periodRequest(r)
	if err != nil {
		return nil, report.Report{}, err
	}
	today, err := s.today(r)
	if err != nil {
		return nil, report.Report{}, err
	}
	top, err := s.topParam(r)
	if err != nil {
		return nil, report.Report{}, err
	}
	rep, err := sess.Report(req, today, top)
	if err != nil {
		return nil, report.Report{}, err
	}
	return sess, rep, nil
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	sess, rep, err := s.buildReport(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	col, err := report.ParseColumn(r.URL.Query().Get("sort"))
	if err != nil {
		s.writeError(w, r, badRequest("%v", err))
		return
	}
	txs := report.SortTransactions(rep.Transactions, col, parseBool(r.URL.Query().Get("desc")))

	if load, _ := sess.LastLoad(); load.Partial() {
		w.Header().Set("X-Ledger-Skipped", strconv.Itoa(len(load.Skipped)))
	}

	if strings.EqualFold(r.URL.Query().Get("format"), "text") {
		var buf bytes.Buffer
		if err := rep.WriteText(&buf); err != nil {
			s.writeError(w, r, err)
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(buf.Bytes())
		return
	}
	writeJSON(w, http.StatusOK, reportOf(rep, txs))
}

// handleRefresh drops the cached ledger and loads it again from the store.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	uid := strings.TrimSpace(r.PathValue("uid"))
	if uid == "" {
		s.writeError(w, r, session.ErrEmptyUserID)
		return
	}
	s.sessions.Invalidate(uid)
	sess, err := s.sessions.Session(r.Context(), uid)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, loadOf(sess.LastLoad()))
}

func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSuffix(r.PathValue("chart"), ".png")
	_, rep, err := s.buildReport(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	var png []byte
	switch name {
	case "balance":
		png, err = charts.Balance(rep.Summary.CumulativeSeries)
	case "categories":
		png, err = charts.Categories(rep.TopCategories, "Top categories")
	case "expenses":
		png, err = charts.ExpenseBreakdown(rep)
	default:
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "unknown chart " + strconv.Quote(name), Code: "not_found"})
		return
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(png)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}

type promptJSON struct {
	Kind   insight.Kind `json:"kind"`
	Prompt string       `json:"prompt"`
}

// handleInsightPrompt returns the prompt text without generating anything,
// for clients that talk to a generator themselves.
func (s *Server) handleInsightPrompt(w http.ResponseWriter, r *http.Request) {
	kind, err := insight.ParseKind(r.URL.Query().Get("kind"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	_, rep, err := s.buildReport(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	prompt, err := insight.Build(kind, rep)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, promptJSON{Kind: kind, Prompt: prompt})
}

func (s *Server) handleInsight(w http.ResponseWriter, r *http.Request) {
	if s.advisor == nil {
		s.writeError(w, r, insight.ErrNoGenerator)
		return
	}
	var body insightRequest
	if err := decodeJSON(w, r, &body); err != nil {
		s.writeError(w, r, err)
		return
	}
	sess, rep, err := s.buildReport(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	var sug insight.Suggestion
	if q := sanitizeInput(body.Question); q != "" {
		// free-form questions see the whole ledger, not just the period
		sug, err = s.advisor.Ask(r.Context(), q, sess.Ledger().Transactions())
	} else {
		var kind insight.Kind
		if kind, err = insight.ParseKind(body.Kind); err == nil {
			sug, err = s.advisor.Advise(r.Context(), kind, rep)
		}
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if s.history != nil {
		saved, err := s.history.Record(r.Context(), sess.UserID(), sug)
		if err != nil {
			log.FromContext(r.Context()).Warn("Suggestion not saved", log.FieldUserID, sess.UserID(), log.FieldError, err.Error())
		} else {
			sug = saved
		}
	}
	writeJSON(w, http.StatusOK, sug)
}

type suggestionListJSON struct {
	Count       int                  `json:"count"`
	Suggestions []insight.Suggestion `json:"suggestions"`
}

// handleListSuggestions returns the saved suggestions, newest first.
func (s *Server) handleListSuggestions(w http.ResponseWriter, r *http.Request) {
	uid := strings.TrimSpace(r.PathValue("uid"))
	if uid == "" {
		s.writeError(w, r, session.ErrEmptyUserID)
		return
	}
	list, err := s.history.List(r.Context(), uid)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, suggestionListJSON{Count: len(list), Suggestions: list})
}

func (s *Server) handleDeleteSuggestion(w http.ResponseWriter, r *http.Request) {
	uid := strings.TrimSpace(r.PathValue("uid"))
	if uid == "" {
		s.writeError(w, r, session.ErrEmptyUserID)
		return
	}
	ts, err := strconv.ParseInt(r.PathValue("ts"), 10, 64)
	if err != nil {
		s.writeError(w, r, badRequest("invalid suggestion id %q", r.PathValue("ts")))
		return
	}
	if err := s.history.Delete(r.Context(), uid, ts); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
