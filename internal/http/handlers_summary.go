package http

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"contas/internal/core"
	"contas/internal/state"
)

// handleSummary returns the derived month view, cached per owner and month.
// The cache is short-lived and dropped on every mutation, so a hit is never
// more than seconds stale.
func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	month, err := monthParam(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	user := currentUser(r.Context())

	if s.summaries != nil {
		if cached, ok := s.summaries.Get(user.ID, month); ok {
			respondJSON(w, http.StatusOK, toSummaryJSON(cached))
			return
		}
	}

	owners, err := s.ownerIDs(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	transactions, err := s.reader.ListTransactions(r.Context(), owners)
	if err != nil {
		respondError(w, r, err)
		return
	}
	plans, err := s.reader.ListPlans(r.Context(), owners)
	if err != nil {
		respondError(w, r, err)
		return
	}

	summary := core.Summarize(core.MonthAnchor(month), transactions, plans)
	if s.summaries != nil {
		s.summaries.Set(user.ID, month, summary)
	}
	respondJSON(w, http.StatusOK, toSummaryJSON(summary))
}

// handleEvents streams recomputed month summaries over SSE. Each connection
// gets its own session subscribed to the hub; the first event is the current
// summary, later ones follow every mutation.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		respondError(w, r, fmt.Errorf("streaming unsupported by connection"))
		return
	}
	month, err := monthParam(r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	user := currentUser(r.Context())
	owners, err := s.ownerIDs(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}

	session, err := state.NewSession(r.Context(), s.hub, user.ID, owners, month)
	if err != nil {
		respondError(w, r, err)
		return
	}
	defer session.Close()

	// Buffered so a slow write never blocks the hub's delivery path; a
	// lagging client just skips intermediate summaries.
	updates := make(chan core.MonthSummary, 8)
	unsubscribe := session.Observe(func(summary core.MonthSummary) {
		select {
		case updates <- summary:
		default:
		}
	})
	defer unsubscribe()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	slog.InfoContext(r.Context(), "Summary stream opened",
		"user_id", user.ID,
		"month", month.Format("2006-01"))

	for {
		select {
		case <-r.Context().Done():
			slog.DebugContext(r.Context(), "Summary stream closed", "user_id", user.ID)
			return
		case summary := <-updates:
			payload, err := json.Marshal(toSummaryJSON(summary))
			if err != nil {
				slog.ErrorContext(r.Context(), "Failed to encode summary event", "error", err)
				return
			}
			if _, err := fmt.Fprintf(w, "event: summary\ndata: %s\n\n", payload); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
