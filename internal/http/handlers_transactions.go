package http

import (
	"net/http"

	"contas/internal/core"
	"contas/internal/services"
)

type createTransactionRequest struct {
	Label    string `json:"label"`
	Amount   string `json:"amount"`
	Type     string `json:"type"`
	Category string `json:"category"`
	Method   string `json:"method"`
	Date     string `json:"date"`
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req createTransactionRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	cents, err := core.ParseDecimalToCents(req.Amount)
	if err != nil {
		respondError(w, r, err)
		return
	}
	date, err := core.ParseWhen(req.Date)
	if err != nil {
		respondError(w, r, err)
		return
	}

	user := currentUser(r.Context())
	id, err := s.finance.AddTransaction(r.Context(), services.AddTransactionInput{
		OwnerID:   user.ID,
		OwnerName: user.Name,
		Label:     req.Label,
		Amount:    core.Money{Cents: cents},
		Type:      core.TransactionType(req.Type),
		Category:  req.Category,
		Method:    core.PaymentMethod(req.Method),
		Date:      date,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}

	s.invalidateSummaries(r.Context())
	respondJSON(w, http.StatusCreated, map[string]string{"id": id})
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	owners, err := s.ownerIDs(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	list, err := s.reader.ListTransactions(r.Context(), owners)
	if err != nil {
		respondError(w, r, err)
		return
	}

	// An explicit month narrows the list; without one the full ledger
	// comes back.
	if r.URL.Query().Get("month") != "" {
		month, err := monthParam(r)
		if err != nil {
			respondError(w, r, err)
			return
		}
		list = core.FilterByMonth(list, month)
	}

	respondJSON(w, http.StatusOK, toTransactionsJSON(list))
}

type editTransactionRequest struct {
	Label  *string `json:"label"`
	Amount *string `json:"amount"`
}

func (s *Server) handleEditTransaction(w http.ResponseWriter, r *http.Request) {
	var req editTransactionRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	if req.Label == nil && req.Amount == nil {
		respondError(w, r, badRequestf("nothing to update"))
		return
	}

	var amount *core.Money
	if req.Amount != nil {
		cents, err := core.ParseDecimalToCents(*req.Amount)
		if err != nil {
			respondError(w, r, err)
			return
		}
		amount = &core.Money{Cents: cents}
	}

	if err := s.finance.EditTransaction(r.Context(), r.PathValue("id"), req.Label, amount); err != nil {
		respondError(w, r, err)
		return
	}

	s.invalidateSummaries(r.Context())
	respondJSON(w, http.StatusOK, map[string]string{"id": r.PathValue("id")})
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	if err := s.finance.RemoveTransaction(r.Context(), r.PathValue("id")); err != nil {
		respondError(w, r, err)
		return
	}

	s.invalidateSummaries(r.Context())
	respondJSON(w, http.StatusNoContent, nil)
}
