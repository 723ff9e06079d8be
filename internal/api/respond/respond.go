// Package respond writes the JSON bodies served by the query, history and
// health endpoints.
package respond

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/albapepper/gagwatch/internal/gardenapi"
)

// ErrorResponse is the standard error shape for all API errors.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// ErrorBody describes one failure. Upstream is set when the Grow a Garden
// API could not be reached or answered with a non-2xx status.
type ErrorBody struct {
	Code     string           `json:"code"`
	Message  string           `json:"message"`
	Detail   string           `json:"detail,omitempty"`
	Upstream *UpstreamFailure `json:"upstream,omitempty"`
}

// UpstreamFailure names the status API endpoint that failed.
type UpstreamFailure struct {
	Endpoint string `json:"endpoint"`
	Status   int    `json:"status,omitempty"` // 0 when no response arrived
}

// WriteMessage writes a rendered message (already encoded) with ETag and
// cache headers. X-Cache reports whether it came from the query cache.
func WriteMessage(w http.ResponseWriter, data []byte, etag string, ttl time.Duration, cacheHit bool) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("ETag", etag)
	w.Header().Set("Vary", "Accept-Encoding")
	setCacheHeaders(w, ttl, cacheHit)
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// WriteNotModified sends a 304 with the matching ETag.
func WriteNotModified(w http.ResponseWriter, etag string) {
	w.Header().Set("ETag", etag)
	w.WriteHeader(http.StatusNotModified)
}

// WriteQueryFailure sends a 502 carrying the short failure title a chat
// user would see, plus the failing endpoint when err identifies one.
func WriteQueryFailure(w http.ResponseWriter, title string, err error) {
	body := ErrorBody{
		Code:    "UPSTREAM_UNAVAILABLE",
		Message: title,
	}
	if err != nil {
		body.Detail = err.Error()
	}
	var fe *gardenapi.FetchError
	if errors.As(err, &fe) {
		body.Upstream = &UpstreamFailure{Endpoint: fe.Endpoint, Status: fe.Status}
	}
	writeError(w, http.StatusBadGateway, body)
}

// WriteError sends a structured JSON error response.
func WriteError(w http.ResponseWriter, status int, code, message string) {
	writeError(w, status, ErrorBody{Code: code, Message: message})
}

// WriteErrorDetail sends a structured error with additional detail.
func WriteErrorDetail(w http.ResponseWriter, status int, code, message, detail string) {
	writeError(w, status, ErrorBody{Code: code, Message: message, Detail: detail})
}

// WriteJSONObject marshals a Go value to JSON and writes it.
// Used for uncached responses (health checks, history).
func WriteJSONObject(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, body ErrorBody) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{Error: body})
}

// setCacheHeaders lets clients reuse a rendered message for as long as the
// server-side query cache would.
func setCacheHeaders(w http.ResponseWriter, ttl time.Duration, cacheHit bool) {
	if cacheHit {
		w.Header().Set("X-Cache", "HIT")
	} else {
		w.Header().Set("X-Cache", "MISS")
	}
	maxAge := int(ttl.Seconds())
	if maxAge <= 0 {
		w.Header().Set("Cache-Control", "no-cache")
		return
	}
	w.Header().Set("Cache-Control", fmt.Sprintf("public, max-age=%d", maxAge))
}
