// Package handlers contains the HTTP request handlers of the search API.
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/matsource/matsource/pkg/errors"
)

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// ErrorResponse is the error body of the API: a single message field.
type ErrorResponse struct {
	Error string `json:"error"`
}

// writeError writes the standard error body.
func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, ErrorResponse{Error: message})
}

// writeAppError maps application errors to HTTP status codes.  Internal
// failure detail is masked; callers see a generic message.
func writeAppError(w http.ResponseWriter, err error) {
	switch {
	case errors.IsCode(err, errors.CodeInvalidParam):
		writeError(w, http.StatusBadRequest, errors.Message(err))
	case errors.IsCode(err, errors.CodeNotFound), errors.IsCode(err, errors.CodeMaterialNotFound):
		writeError(w, http.StatusNotFound, errors.Message(err))
	default:
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
