package httpx

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
)

func NewRequestID() string { return "req_" + uuid.NewString() }

// Envelope is the wire shape of every JSON response: data on success,
// error on failure, never both.
type Envelope struct {
	Data      any       `json:"data"`
	Error     *ErrorObj `json:"error"`
	RequestID string    `json:"request_id"`
}

type ErrorObj struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("content-type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func WriteData(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, Envelope{Data: data, RequestID: NewRequestID()})
}

func WriteError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, Envelope{
		Error:     &ErrorObj{Code: code, Message: message},
		RequestID: NewRequestID(),
	})
}

func ReadJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}
