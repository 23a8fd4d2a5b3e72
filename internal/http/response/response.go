package response

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type errorEnvelope struct {
	Error errorBody `json:"error"`
}

func JSON(w http.ResponseWriter, r *http.Request, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.ErrorContext(r.Context(), "response encoding failed", "error", err, "path", r.URL.Path)
	}
}

// Error writes the uniform error envelope. Handlers never write error JSON
// by hand so clients can rely on one shape across every endpoint.
func Error(w http.ResponseWriter, r *http.Request, status int, code, message string, details any) {
	JSON(w, r, status, errorEnvelope{Error: errorBody{Code: code, Message: message, Details: details}})
}
