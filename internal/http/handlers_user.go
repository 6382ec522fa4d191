package http

import (
	"net/http"
	"strings"
)

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, toUserJSON(currentUser(r.Context())))
}

type linkPartnerRequest struct {
	Email string `json:"email"`
}

// handleLinkPartner joins the caller's household with the user registered
// under the given email. The link is symmetric and takes effect on the next
// read for both sides.
func (s *Server) handleLinkPartner(w http.ResponseWriter, r *http.Request) {
	var req linkPartnerRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	email := strings.TrimSpace(req.Email)
	if email == "" {
		respondError(w, r, badRequestf("email is required"))
		return
	}

	if err := s.users.LinkPartner(r.Context(), currentUser(r.Context()).ID, email); err != nil {
		respondError(w, r, err)
		return
	}

	s.invalidateSummaries(r.Context())
	respondJSON(w, http.StatusOK, map[string]string{"status": "linked"})
}

func (s *Server) handleListNotifications(w http.ResponseWriter, r *http.Request) {
	list, err := s.admin.Notifications(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	out := make([]notificationJSON, len(list))
	for i, n := range list {
		out[i] = toNotificationJSON(n)
	}
	respondJSON(w, http.StatusOK, out)
}

func (s *Server) handleMaintenanceStatus(w http.ResponseWriter, r *http.Request) {
	on, err := s.admin.MaintenanceMode(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"maintenance": on})
}
