package httpx

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dmehra2102/order-fulfillment/pkg/apperr"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError maps the apperr kind of err to a status code and error envelope.
func WriteError(w http.ResponseWriter, err error) {
	status, code := StatusOf(err)
	WriteJSON(w, status, ErrorResponse{
		Error:   code,
		Message: err.Error(),
		Field:   apperr.FieldOf(err),
	})
}

func StatusOf(err error) (int, string) {
	switch {
	case errors.Is(err, apperr.Validation):
		return http.StatusBadRequest, string(apperr.Validation)
	case errors.Is(err, apperr.NotFound):
		return http.StatusNotFound, string(apperr.NotFound)
	case errors.Is(err, apperr.Conflict):
		return http.StatusConflict, string(apperr.Conflict)
	case errors.Is(err, apperr.Transport):
		return http.StatusBadGateway, string(apperr.Transport)
	default:
		return http.StatusInternalServerError, "internal"
	}
}

// Decode reads a JSON body, reporting malformed input as a validation error.
func Decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return apperr.Invalid("body", "invalid json: %v", err)
	}
	return nil
}
