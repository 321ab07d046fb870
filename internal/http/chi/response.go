package chi

import (
	"encoding/json"
	"math"
	"net/http"
	"strconv"

	"github.com/marcelsud/webhook-relay/ratelimit"
)

type detailResponse struct {
	Detail string `json:"detail"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeRateLimited answers 429 with Retry-After in whole seconds, rounded up, at least 1
func writeRateLimited(w http.ResponseWriter, d ratelimit.Decision, message string) {
	retry := int(math.Ceil(d.RetryAfter.Seconds()))
	if retry < 1 {
		retry = 1
	}
	w.Header().Set("Retry-After", strconv.Itoa(retry))
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
	writeJSON(w, http.StatusTooManyRequests, errorResponse{Error: message})
}
