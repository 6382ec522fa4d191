package http

import (
	"net/http"
	"time"

	"contas/internal/core"
	"contas/internal/services"
)

type createPlanRequest struct {
	Title            string `json:"title"`
	Category         string `json:"category"`
	Kind             string `json:"kind"`
	TotalAmount      string `json:"total_amount"`
	InstallmentCount int    `json:"installment_count"`
	StartDate        string `json:"start_date"`
}

func (s *Server) handleCreatePlan(w http.ResponseWriter, r *http.Request) {
	var req createPlanRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	cents, err := core.ParseDecimalToCents(req.TotalAmount)
	if err != nil {
		respondError(w, r, err)
		return
	}
	start, err := core.ParseWhen(req.StartDate)
	if err != nil {
		respondError(w, r, err)
		return
	}

	id, err := s.finance.CreatePlan(r.Context(), services.CreatePlanInput{
		OwnerID:          currentUser(r.Context()).ID,
		Title:            req.Title,
		Category:         req.Category,
		Kind:             core.PlanKind(req.Kind),
		TotalAmount:      core.Money{Cents: cents},
		InstallmentCount: req.InstallmentCount,
		StartDate:        start,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}

	s.invalidateSummaries(r.Context())
	respondJSON(w, http.StatusCreated, map[string]string{"id": id})
}

func (s *Server) handleListPlans(w http.ResponseWriter, r *http.Request) {
	owners, err := s.ownerIDs(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	plans, err := s.reader.ListPlans(r.Context(), owners)
	if err != nil {
		respondError(w, r, err)
		return
	}

	out := make([]planJSON, len(plans))
	for i, p := range plans {
		out[i] = toPlanJSON(p)
	}
	respondJSON(w, http.StatusOK, out)
}

func (s *Server) handleDeletePlan(w http.ResponseWriter, r *http.Request) {
	if err := s.finance.DeletePlan(r.Context(), r.PathValue("id")); err != nil {
		respondError(w, r, err)
		return
	}

	s.invalidateSummaries(r.Context())
	respondJSON(w, http.StatusNoContent, nil)
}

type payInstallmentRequest struct {
	Number int    `json:"number"`
	Month  string `json:"month"`
}

// handlePayInstallment flips the installment and records the ledger entry
// dated mid-month of the view the payer was looking at. Paying a vanished
// plan or an already-paid installment succeeds without effect.
func (s *Server) handlePayInstallment(w http.ResponseWriter, r *http.Request) {
	var req payInstallmentRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	if req.Number < 1 {
		respondError(w, r, badRequestf("installment number must be positive"))
		return
	}

	viewMonth := time.Now().UTC()
	if req.Month != "" {
		parsed, err := core.ParseWhen(req.Month)
		if err != nil {
			respondError(w, r, err)
			return
		}
		viewMonth = parsed
	}

	user := currentUser(r.Context())
	err := s.finance.PayInstallment(r.Context(), user.ID, user.Name,
		r.PathValue("id"), req.Number, viewMonth)
	if err != nil {
		respondError(w, r, err)
		return
	}

	s.invalidateSummaries(r.Context())
	respondJSON(w, http.StatusOK, map[string]string{"status": "paid"})
}
