package chi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	"github.com/go-chi/httplog"
	"github.com/marcelsud/webhook-relay/metrics"
	"github.com/marcelsud/webhook-relay/ratelimit"
	"github.com/marcelsud/webhook-relay/webhook/payload"
)

type ctxKey int

const (
	identityKey ctxKey = iota
	payloadKey
)

func duplicateMessage(window time.Duration) string {
	return fmt.Sprintf("Duplicate submission detected. Please wait %d seconds before sending the same content again.", int(math.Ceil(window.Seconds())))
}

func identityFrom(ctx context.Context) string {
	id, _ := ctx.Value(identityKey).(string)
	return id
}

func payloadFrom(ctx context.Context) (payload.Payload, bool) {
	p, ok := ctx.Value(payloadKey).(payload.Payload)
	return p, ok
}

func (g *gateway) identify(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity := g.Identity.Resolve(r)
		httplog.LogEntrySetField(r.Context(), "client", identity)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), identityKey, identity)))
	})
}

// limit applies the coarse per-endpoint rule. Store failures let the request through.
func (g *gateway) limit(scope string, rule ratelimit.Rule) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if g.Limiter == nil {
				next.ServeHTTP(w, r)
				return
			}
			d, err := g.Limiter.CheckCoarse(r.Context(), scope, identityFrom(r.Context()), rule)
			if err != nil {
				g.limiterFailed(r, err)
			}
			if !d.Allowed {
				g.Recorder.RecordRateLimited(r.Context(), scope)
				writeRateLimited(w, d, "Rate limit exceeded: "+rule.String())
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// capturePayload reads and validates the relay body once so both the duplicate check and the handler can use it
func (g *gateway) capturePayload(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, g.MaxBodyBytes))
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				g.Recorder.RecordRelay(r.Context(), metrics.OutcomeInvalid)
				writeJSON(w, http.StatusRequestEntityTooLarge, detailResponse{Detail: "Request body too large."})
				return
			}
			g.Recorder.RecordRelay(r.Context(), metrics.OutcomeInvalid)
			writeJSON(w, http.StatusBadRequest, detailResponse{Detail: "Failed to read request body."})
			return
		}

		p, err := payload.Parse(body)
		if err != nil {
			g.Recorder.RecordRelay(r.Context(), metrics.OutcomeInvalid)
			writeJSON(w, http.StatusUnprocessableEntity, detailResponse{Detail: err.Error()})
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), payloadKey, p)))
	})
}

func (g *gateway) suppressDuplicates(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if g.Limiter == nil {
			next.ServeHTTP(w, r)
			return
		}
		var fingerprinted any
		if p, ok := payloadFrom(r.Context()); ok {
			fingerprinted = p
		}
		d, err := g.Limiter.CheckDuplicate(r.Context(), identityFrom(r.Context()), fingerprinted)
		if err != nil {
			g.limiterFailed(r, err)
		}
		if !d.Allowed {
			g.Recorder.RecordRateLimited(r.Context(), metrics.ScopeDuplicate)
			writeRateLimited(w, d, duplicateMessage(g.Limiter.Duplicate.Window))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (g *gateway) limiterFailed(r *http.Request, err error) {
	g.Recorder.RecordLimiterError(r.Context())
	logger := httplog.LogEntry(r.Context())
	logger.Warn().Err(err).Msg("rate limiter unavailable, allowing request")
}
