package api

import (
	"encoding/json"
	"log"
	"net/http"
)

// Response is the envelope every endpoint returns: an explicit success
// flag and human-readable message alongside the payload, so clients
// never have to infer the outcome from the status code alone.
type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, message string, data any) {
	encode(w, status, Response{
		Success: status < http.StatusBadRequest,
		Message: message,
		Data:    data,
	})
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	encode(w, status, Response{Success: false, Message: message, Error: code})
}

func encode(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("write response: %v", err)
	}
}
