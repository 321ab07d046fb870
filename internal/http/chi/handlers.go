package chi

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog"
	"github.com/marcelsud/webhook-relay/metrics"
	"github.com/marcelsud/webhook-relay/ratelimit"
	"github.com/marcelsud/webhook-relay/relay"
	"github.com/marcelsud/webhook-relay/webhook"
	"github.com/rs/zerolog"
)

const defaultMaxBodyBytes = 1 << 20

// Limits are the coarse and duplicate rules applied per endpoint
type Limits struct {
	Default  ratelimit.Rule
	Register ratelimit.Rule
}

// Dependencies wires the gateway to the rest of the service
type Dependencies struct {
	Webhooks     webhook.UseCase
	Relay        relay.UseCase
	Limiter      *ratelimit.Limiter
	Identity     ratelimit.IdentityResolver
	Limits       Limits
	Recorder     metrics.Recorder
	Metrics      http.Handler
	Logger       zerolog.Logger
	MaxBodyBytes int64
}

type gateway struct {
	Dependencies
}

// Handlers builds the relay API.
// Every relay request walks: identify, coarse limit, capture payload, duplicate check, relay.
func Handlers(ctx context.Context, deps Dependencies) *chi.Mux {
	if deps.Recorder == nil {
		deps.Recorder = metrics.Nop{}
	}
	if deps.MaxBodyBytes <= 0 {
		deps.MaxBodyBytes = defaultMaxBodyBytes
	}
	if deps.Limits.Default.Limit == 0 {
		deps.Limits.Default = ratelimit.DefaultRule
	}
	if deps.Limits.Register.Limit == 0 {
		deps.Limits.Register = ratelimit.DefaultRegisterRule
	}
	g := &gateway{Dependencies: deps}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(httplog.RequestLogger(deps.Logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS", "HEAD"},
		AllowedHeaders: []string{"*"},
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
	})
	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics)
	}

	r.Group(func(r chi.Router) {
		r.Use(g.identify)

		r.With(g.limit(ratelimit.ScopeIndex, deps.Limits.Default)).
			Method(http.MethodGet, "/", getIndex())
		r.With(g.limit(ratelimit.ScopeCount, deps.Limits.Default)).
			Method(http.MethodGet, "/count_webhooks", getCount(deps.Webhooks))
		r.With(g.limit(ratelimit.ScopeRegister, deps.Limits.Register)).
			Method(http.MethodPost, "/AddHook", postAddHook(deps.Webhooks, deps.Recorder, deps.MaxBodyBytes))
		r.With(
			g.limit(ratelimit.ScopeRelay, deps.Limits.Default),
			g.capturePayload,
			g.suppressDuplicates,
		).Method(http.MethodPost, "/relay/{id}", postRelay(deps.Relay, deps.Recorder))
	})

	return r
}
