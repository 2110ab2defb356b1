package response

import (
	"encoding/json"
	"net/http"
)

type envelope struct {
	Error    bool        `json:"error"`
	Message  string      `json:"message,omitempty"`
	Messages []string    `json:"messages,omitempty"`
	Result   interface{} `json:"result"`
}

// WriteError writes e as the JSON error envelope with e.StatusCode
func WriteError(w http.ResponseWriter, r *http.Request, e *Error) {
	writeJSON(w, e.StatusCode, envelope{
		Error:    true,
		Message:  e.Message,
		Messages: e.Messages,
		Result:   []string{},
	})
}

// WriteResponse writes result with 200 OK
func WriteResponse(w http.ResponseWriter, r *http.Request, result interface{}) {
	WriteResponseWithStatus(w, r, http.StatusOK, result)
}

// WriteResponseWithStatus writes result with the given status code
func WriteResponseWithStatus(w http.ResponseWriter, r *http.Request, status int, result interface{}) {
	writeJSON(w, status, envelope{
		Result: result,
	})
}

func writeJSON(w http.ResponseWriter, status int, body envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
