// Package httpx provides HTTP response utilities following RFC7807 problem details.
package httpx

import (
	"encoding/json"
	"io"
	"net/http"
)

// maxBodyBytes caps request payloads; sale and reservation documents are
// small, anything beyond this is not a legitimate request.
const maxBodyBytes = 1 << 20

// ProblemDetail represents RFC7807 problem details.
type ProblemDetail struct {
	Type   string `json:"type,omitempty"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

// JSON sends a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// Problem sends an RFC7807 problem details response. The type member is
// derived from the status so clients can dispatch without parsing titles.
func Problem(w http.ResponseWriter, status int, title, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(ProblemDetail{
		Type:   problemType(status),
		Title:  title,
		Status: status,
		Detail: detail,
	})
}

func problemType(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "urn:mostrador:problem:validation"
	case http.StatusUnauthorized:
		return "urn:mostrador:problem:unauthorized"
	case http.StatusNotFound:
		return "urn:mostrador:problem:not-found"
	case http.StatusConflict:
		return "urn:mostrador:problem:conflict"
	default:
		return "about:blank"
	}
}

// DecodeJSON decodes the JSON request body into the target struct. The
// body is capped at 1 MiB.
func DecodeJSON(r *http.Request, target any) error {
	return json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(target)
}
