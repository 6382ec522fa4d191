package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"contas/internal/core"
	"contas/internal/services"
	"contas/internal/storage"
)

const maxBodyBytes = 1 << 20

type errorResponse struct {
	Error string `json:"error"`
}

func respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if body == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

// respondError maps domain and service errors onto HTTP statuses. Unmapped
// errors become a 500 with a generic body so internals never leak.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	message := "internal error"

	switch {
	case errors.Is(err, storage.ErrNotFound),
		errors.Is(err, services.ErrPartnerNotFound):
		status = http.StatusNotFound
		message = err.Error()
	case errors.Is(err, services.ErrNotAdmin):
		status = http.StatusForbidden
		message = err.Error()
	case errors.Is(err, core.ErrBuiltinCategory),
		errors.Is(err, services.ErrSelfLink):
		status = http.StatusConflict
		message = err.Error()
	case errors.Is(err, core.ErrInvalidAmount),
		errors.Is(err, core.ErrInvalidDate),
		errors.Is(err, core.ErrInvalidType),
		errors.Is(err, core.ErrInvalidMethod),
		errors.Is(err, core.ErrInvalidKind),
		errors.Is(err, core.ErrEmptyLabel),
		errors.Is(err, core.ErrEmptyTitle),
		errors.Is(err, core.ErrInvalidInstallmentCount),
		errors.Is(err, core.ErrLabelTooLong),
		errors.Is(err, core.ErrMethodOnIncome),
		errors.Is(err, core.ErrEmptyMessage),
		errors.Is(err, core.ErrInvalidNotification),
		errors.Is(err, errBadRequest):
		status = http.StatusBadRequest
		message = err.Error()
	}

	if status == http.StatusInternalServerError {
		slog.ErrorContext(r.Context(), "Request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err)
	}
	respondJSON(w, status, errorResponse{Error: message})
}

// errBadRequest marks handler-level input errors for the status mapper.
var errBadRequest = errors.New("bad request")

func badRequestf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{errBadRequest}, args...)...)
}

// decodeJSON reads the request body into dst, rejecting unknown fields and
// trailing garbage.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return badRequestf("invalid JSON body: %v", err)
	}
	if dec.More() {
		return badRequestf("unexpected data after JSON body")
	}
	return nil
}

// monthParam reads the month query parameter as YYYY-MM, defaulting to the
// current month.
func monthParam(r *http.Request) (time.Time, error) {
	raw := r.URL.Query().Get("month")
	if raw == "" {
		now := time.Now().UTC()
		return core.MonthAnchor(now), nil
	}
	if len(raw) != 7 {
		return time.Time{}, badRequestf("month must be YYYY-MM, got %q", raw)
	}
	t, err := core.ParseWhen(raw)
	if err != nil {
		return time.Time{}, badRequestf("month must be YYYY-MM, got %q", raw)
	}
	return t, nil
}
