package respond

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// Envelope is the standard API response wrapper used across handlers.
type Envelope struct {
	Code  int    `json:"code"`
	Msg   string `json:"msg"`
	Error string `json:"error,omitempty"`
	Data  any    `json:"data,omitempty"`
}

// ListEnvelope carries one page of rows.
type ListEnvelope struct {
	Code  int    `json:"code"`
	Msg   string `json:"msg"`
	Rows  any    `json:"rows"`
	Total int64  `json:"total"`
}

// JSON writes a success or informational response using the common envelope.
func JSON(w http.ResponseWriter, status int, msg string, data any) {
	write(w, status, Envelope{Code: status, Msg: msg, Data: data})
}

// OK is JSON with status 200.
func OK(w http.ResponseWriter, msg string, data any) {
	JSON(w, http.StatusOK, msg, data)
}

// Error writes an error response with the shared envelope structure.
func Error(w http.ResponseWriter, status int, msg string) {
	write(w, status, Envelope{Code: status, Msg: msg, Error: http.StatusText(status)})
}

// List writes a page of rows. A nil rows slice is sent as [].
func List(w http.ResponseWriter, rows any, total int64) {
	if rows == nil {
		rows = []any{}
	}
	write(w, http.StatusOK, ListEnvelope{Code: http.StatusOK, Msg: "success", Rows: rows, Total: total})
}

// Fields writes a success envelope whose payload sits next to code and msg,
// e.g. {"code":200,"msg":"...","token":"..."}.
func Fields(w http.ResponseWriter, msg string, fields map[string]any) {
	payload := make(map[string]any, len(fields)+2)
	for k, v := range fields {
		payload[k] = v
	}
	payload["code"] = http.StatusOK
	payload["msg"] = msg
	write(w, http.StatusOK, payload)
}

func write(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("respond: encode payload failed", "error", err)
	}
}
