package http

import (
	"context"
	"net/http"
	"strings"

	"contas/internal/core"
)

// Identity headers set by the fronting auth proxy. The id is authoritative;
// email and name are mirrored into storage on every request.
const (
	headerUserID    = "X-User-ID"
	headerUserEmail = "X-User-Email"
	headerUserName  = "X-User-Name"
)

type contextKey int

const userContextKey contextKey = iota

// withIdentity requires the proxy's user id header, upserts the identity
// and stores the full user record (with admin flag and partner link) in the
// request context.
func (s *Server) withIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(headerUserID))
		if id == "" {
			respondJSON(w, http.StatusUnauthorized, errorResponse{Error: "missing identity"})
			return
		}

		user, err := s.users.EnsureUser(r.Context(),
			id,
			strings.TrimSpace(r.Header.Get(headerUserEmail)),
			strings.TrimSpace(r.Header.Get(headerUserName)))
		if err != nil {
			respondError(w, r, err)
			return
		}

		ctx := context.WithValue(r.Context(), userContextKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// currentUser returns the authenticated user stored by withIdentity.
func currentUser(ctx context.Context) core.User {
	user, _ := ctx.Value(userContextKey).(core.User)
	return user
}

// withMaintenanceGate returns 503 to regular users while the maintenance
// switch is on. Admins pass so they can work and flip the switch back; the
// status and notification reads stay open so clients can render the banner.
func (s *Server) withMaintenanceGate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if maintenanceExempt(r) {
			next.ServeHTTP(w, r)
			return
		}

		on, err := s.admin.MaintenanceMode(r.Context())
		if err != nil {
			respondError(w, r, err)
			return
		}
		if on && !currentUser(r.Context()).Admin {
			w.Header().Set("Retry-After", "300")
			respondJSON(w, http.StatusServiceUnavailable,
				errorResponse{Error: "maintenance in progress"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func maintenanceExempt(r *http.Request) bool {
	if r.Method != http.MethodGet {
		return false
	}
	switch r.URL.Path {
	case "/api/maintenance", "/api/notifications", "/api/me":
		return true
	}
	return false
}

// ownerIDs resolves the ids whose data the caller may read.
func (s *Server) ownerIDs(ctx context.Context) ([]string, error) {
	return s.users.OwnerIDs(ctx, currentUser(ctx).ID)
}

// invalidateSummaries drops cached month summaries for the caller and the
// linked partner, whose shared view includes the caller's records.
func (s *Server) invalidateSummaries(ctx context.Context) {
	if s.summaries == nil {
		return
	}
	user := currentUser(ctx)
	s.summaries.InvalidateOwner(user.ID)
	if user.PartnerID != "" {
		s.summaries.InvalidateOwner(user.PartnerID)
	}
}
