// Package respond renders the uniform JSON envelope used by every endpoint:
// {"success": bool, "message": string, "data": {...}}. Failure paths share
// the same shape as success so clients parse responses uniformly.
package respond

import (
	"encoding/json"
	"net/http"
)

// Envelope is the wire format of every response.
type Envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// JSON writes an arbitrary envelope with the given status code.
func JSON(w http.ResponseWriter, status int, body Envelope) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// Success writes a success envelope.
func Success(w http.ResponseWriter, status int, message string, data any) {
	JSON(w, status, Envelope{Success: true, Message: message, Data: data})
}

// Fail writes a failure envelope.
func Fail(w http.ResponseWriter, status int, message string) {
	JSON(w, status, Envelope{Success: false, Message: message})
}

// NotFoundHandler serves the envelope for unmatched routes.
func NotFoundHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		Fail(w, http.StatusNotFound, "not found: "+r.URL.Path)
	}
}

// MethodNotAllowedHandler serves the envelope for unsupported methods.
func MethodNotAllowedHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		Fail(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}
