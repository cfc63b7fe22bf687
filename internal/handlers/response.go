package handlers

import (
	"encoding/json"
	"net/http"
	"taskManager/internal/logger"
)

// Envelope is the body shape of every API response.
type Envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Count   *int   `json:"count,omitempty"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

func responseWithJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Error("HTTP: failed to encode response", err)
	}
}

func responseWithSuccess(w http.ResponseWriter, code int, message string, data any) {
	responseWithJSON(w, code, Envelope{Success: true, Message: message, Data: data})
}

func responseWithList(w http.ResponseWriter, data any, count int) {
	responseWithJSON(w, http.StatusOK, Envelope{Success: true, Count: &count, Data: data})
}

func responseWithError(w http.ResponseWriter, code int, message string) {
	responseWithJSON(w, code, Envelope{Success: false, Message: message})
}

// WriteInternalError is the fallback for failures nothing else handled.
func WriteInternalError(w http.ResponseWriter, detail string) {
	responseWithJSON(w, http.StatusInternalServerError, Envelope{
		Success: false,
		Message: "Something went wrong!",
		Error:   detail,
	})
}

func NotFound(w http.ResponseWriter, r *http.Request) {
	responseWithError(w, http.StatusNotFound, "Route not found")
}

func MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	responseWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
}
