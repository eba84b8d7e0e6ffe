package clients

import (
	"encoding/json"
	"fmt"
)

// APIError is a non-2xx vendor response. Body holds the vendor's payload
// when it was JSON.
type APIError struct {
	Gateway    string
	StatusCode int
	Body       json.RawMessage
}

func (e *APIError) Error() string {
	if len(e.Body) > 0 {
		return fmt.Sprintf("%s returned status %d: %s", e.Gateway, e.StatusCode, truncate(string(e.Body), 300))
	}
	return fmt.Sprintf("%s returned status %d", e.Gateway, e.StatusCode)
}

func newAPIError(gateway string, status int, body []byte) *APIError {
	e := &APIError{Gateway: gateway, StatusCode: status}
	if json.Valid(body) {
		e.Body = json.RawMessage(body)
	} else if len(body) > 0 {
		quoted, _ := json.Marshal(truncate(string(body), 1000))
		e.Body = quoted
	}
	return e
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
