package http

import (
	"net/http"

	"contas/internal/core"
)

type setMaintenanceRequest struct {
	Enabled bool `json:"enabled"`
}

// handleSetMaintenance flips the maintenance switch. The service re-checks
// the caller's admin flag in storage; the gate middleware alone is not
// enough because admins always pass it.
func (s *Server) handleSetMaintenance(w http.ResponseWriter, r *http.Request) {
	var req setMaintenanceRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	if err := s.admin.SetMaintenanceMode(r.Context(), currentUser(r.Context()).ID, req.Enabled); err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"maintenance": req.Enabled})
}

type broadcastRequest struct {
	Title   string `json:"title"`
	Message string `json:"message"`
	Type    string `json:"type"`
}

func (s *Server) handleBroadcast(w http.ResponseWriter, r *http.Request) {
	var req broadcastRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	id, err := s.admin.Broadcast(r.Context(), currentUser(r.Context()).ID, core.Notification{
		Title:   req.Title,
		Message: req.Message,
		Type:    core.NotificationType(req.Type),
	})
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]string{"id": id})
}

func (s *Server) handleDeleteNotification(w http.ResponseWriter, r *http.Request) {
	err := s.admin.RemoveNotification(r.Context(), currentUser(r.Context()).ID, r.PathValue("id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}
