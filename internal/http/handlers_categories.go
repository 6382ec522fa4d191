package http

import (
	"net/http"

	"contas/internal/core"
)

type categoryRequest struct {
	Label   string `json:"label"`
	Color   string `json:"color"`
	IconKey string `json:"icon_key"`
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	custom, err := s.reader.ListCategories(r.Context(), currentUser(r.Context()).ID)
	if err != nil {
		respondError(w, r, err)
		return
	}

	// Built-ins always lead the list, in their fixed order.
	all := core.NewRegistry(custom).All()
	out := make([]categoryJSON, len(all))
	for i, c := range all {
		out[i] = toCategoryJSON(c)
	}
	respondJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	id, err := s.finance.AddCategory(r.Context(), core.Category{
		OwnerID: currentUser(r.Context()).ID,
		Label:   req.Label,
		Color:   req.Color,
		IconKey: req.IconKey,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]string{"id": id})
}

func (s *Server) handleUpdateCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	err := s.finance.EditCategory(r.Context(), r.PathValue("id"), core.Category{
		OwnerID: currentUser(r.Context()).ID,
		Label:   req.Label,
		Color:   req.Color,
		IconKey: req.IconKey,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"id": r.PathValue("id")})
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	if err := s.finance.RemoveCategory(r.Context(), r.PathValue("id")); err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}
