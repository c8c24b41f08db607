package handler

import (
	"net/http"

	"github.com/Temutjin2k/ride-hail-client/internal/adapter/codec"
)

func errorResponse(w http.ResponseWriter, status int, message any) {
	env := envelope{"error": message}

	// Write the response using the writeJSON() helper. If this happens to return an
	// error then log it, and fall back to sending the client an empty response with a
	// 500 Internal Server Error status code.
	if err := writeJSON(w, status, env, nil); err != nil {
		w.WriteHeader(500)
	}
}

// failedValidationResponse returns 422 UnprocessableEntity status.
func failedValidationResponse(w http.ResponseWriter, errors map[string]string) {
	errorResponse(w, http.StatusUnprocessableEntity, errors)
}

// badRequestResponse returns 400 BadRequest status
func badRequestResponse(w http.ResponseWriter, message any) {
	errorResponse(w, http.StatusBadRequest, message)
}

// applicationFailure answers HTTP 200 with a non-zero status, the way the
// dispatch server reports refusals.
func applicationFailure(w http.ResponseWriter, status int, message string) {
	body := envelope{"status": status, "message": message}
	if err := writeJSON(w, http.StatusOK, body, nil); err != nil {
		w.WriteHeader(500)
	}
}

// internalErrorResponse returns 500 InternalServerError status.
func internalErrorResponse(w http.ResponseWriter, message string) {
	if err := writeRaw(w, http.StatusInternalServerError, codec.ErrorBody(message), nil); err != nil {
		w.WriteHeader(500)
	}
}
