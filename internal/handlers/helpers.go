package handlers

import (
	"encoding/json"
	"net/http"
	"time"
)

// envelope is the standard response shape: data on success, errors on
// failure, message for human-readable status.
type envelope struct {
	Data      any      `json:"data,omitempty"`
	Message   string   `json:"message,omitempty"`
	Errors    []string `json:"errors,omitempty"`
	Timestamp string   `json:"timestamp"`
}

// RequireMethod validates that the HTTP request uses the specified method.
// Returns true if the method matches, false otherwise (and writes error response).
func RequireMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return false
	}
	return true
}

// WriteJSON writes a JSON response with the specified status code and data.
func WriteJSON(w http.ResponseWriter, statusCode int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(data)
}

// WriteData writes a success envelope carrying a payload.
func WriteData(w http.ResponseWriter, statusCode int, data any) error {
	return WriteJSON(w, statusCode, envelope{
		Data:      data,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// WriteMessage writes a success envelope carrying only a message.
func WriteMessage(w http.ResponseWriter, statusCode int, message string) error {
	return WriteJSON(w, statusCode, envelope{
		Message:   message,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// WriteError writes an error envelope with a single error.
func WriteError(w http.ResponseWriter, statusCode int, message string) error {
	return WriteErrors(w, statusCode, []string{message})
}

// WriteErrors writes an error envelope with multiple errors, e.g. the
// per-field failures of payload validation.
func WriteErrors(w http.ResponseWriter, statusCode int, errors []string) error {
	return WriteJSON(w, statusCode, envelope{
		Errors:    errors,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}
