package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/dmitrijs2005/accountkeeper/internal/common"
)

const maxBodyBytes = 1 << 20

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Name    string `json:"name"`
	Message string `json:"message"`
}

// writeJSON writes JSON response with status code.
func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// writeError answers with common.StatusOf(err). Client errors carry the full
// message; server errors only the generic one.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := common.StatusOf(err)

	detail := errorDetail{Name: "InternalServerError", Message: "internal server error"}
	if e, ok := common.AsError(err); ok {
		detail = errorDetail{Name: e.Name, Message: e.Message}
	}

	if status < http.StatusInternalServerError {
		detail.Message = err.Error()
	} else {
		h.log.Error(r.Context(), "request failed", "path", r.URL.Path, "error", err)
		h.recordError(r, err)
	}

	writeJSON(w, status, errorBody{Error: detail})
}

// writeUnauthorized always answers 401, keeping the name of a tagged 401.
func (h *Handler) writeUnauthorized(w http.ResponseWriter, r *http.Request, err error) {
	e, ok := common.AsError(err)
	if !ok || e.Status != http.StatusUnauthorized {
		h.log.Warn(r.Context(), "session rejected", "error", err)
		e = common.ErrInvalidToken
	}
	writeJSON(w, http.StatusUnauthorized, errorBody{Error: errorDetail{Name: e.Name, Message: e.Message}})
}

func (h *Handler) recordError(r *http.Request, err error) {
	if h.events != nil {
		h.events.Record(r.Context(), "error", fmt.Sprintf("%s %s: %v", r.Method, r.URL.Path, err))
	}
}

// decodeJSON reads a bounded JSON body into dst and runs its validation.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst validatable) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return fmt.Errorf("%w: body too large", common.ErrMissingRequiredParameter)
		}
		return fmt.Errorf("%w: invalid JSON body", common.ErrMissingRequiredParameter)
	}
	if err := dst.Validate(); err != nil {
		return fmt.Errorf("%w: %v", common.ErrMissingRequiredParameter, err)
	}
	return nil
}
