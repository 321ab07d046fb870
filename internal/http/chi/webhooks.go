package chi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httplog"
	"github.com/marcelsud/webhook-relay/metrics"
	"github.com/marcelsud/webhook-relay/relay"
	"github.com/marcelsud/webhook-relay/webhook"
)

/* HTTP layer DTOs
 * Field names follow the public contract of the relay and are kept as-is.
 */

type addHookRequest struct {
	URL *string `json:"url"`
}

type addHookResponse struct {
	Message string `json:"message"`
	HookURL string `json:"HookURL"`
}

type countResponse struct {
	WebhookCount int64 `json:"webhook_count"`
}

// postAddHook handles POST /AddHook
func postAddHook(webhookService webhook.UseCase, recorder metrics.Recorder, maxBody int64) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req addHookRequest
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody)).Decode(&req); err != nil || req.URL == nil {
			writeJSON(w, http.StatusUnprocessableEntity, detailResponse{Detail: "Body must be a JSON object with a string field \"url\"."})
			return
		}

		reg, err := webhookService.Register(r.Context(), *req.URL)
		switch {
		case errors.Is(err, webhook.ErrInvalidDestination):
			recorder.RecordRegistration(r.Context(), metrics.OutcomeInvalid)
			writeJSON(w, http.StatusOK, messageResponse{Message: "Invalid Webhook url."})
			return
		case err != nil:
			recorder.RecordRegistration(r.Context(), metrics.OutcomeError)
			logger := httplog.LogEntry(r.Context())
			logger.Error().Err(err).Msg("registering webhook")
			writeJSON(w, http.StatusInternalServerError, detailResponse{Detail: "Internal server error."})
			return
		}

		recorder.RecordRegistration(r.Context(), metrics.OutcomeAccepted)
		httplog.LogEntrySetField(r.Context(), "hook_id", reg.ID)
		writeJSON(w, http.StatusOK, addHookResponse{
			Message: "Webhook created successfully.",
			HookURL: reg.RelayURL,
		})
	})
}

// getCount handles GET /count_webhooks
func getCount(webhookService webhook.UseCase) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n, err := webhookService.Count(r.Context())
		if err != nil {
			logger := httplog.LogEntry(r.Context())
			logger.Error().Err(err).Msg("counting webhooks")
			writeJSON(w, http.StatusInternalServerError, detailResponse{Detail: "Internal server error."})
			return
		}
		writeJSON(w, http.StatusOK, countResponse{WebhookCount: n})
	})
}

// postRelay handles POST /relay/{id}; the payload was captured by middleware
func postRelay(relayService relay.UseCase, recorder metrics.Recorder) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		p, ok := payloadFrom(r.Context())
		if !ok {
			writeJSON(w, http.StatusUnprocessableEntity, detailResponse{Detail: "Missing payload."})
			return
		}
		httplog.LogEntrySetField(r.Context(), "hook_id", id)

		err := relayService.Relay(r.Context(), id, p)
		switch {
		case errors.Is(err, webhook.ErrNotFound):
			recorder.RecordRelay(r.Context(), metrics.OutcomeNotFound)
			writeJSON(w, http.StatusNotFound, detailResponse{Detail: "Webhook not found."})
		case errors.Is(err, relay.ErrDispatcherClosed):
			recorder.RecordRelay(r.Context(), metrics.OutcomeClosed)
			writeJSON(w, http.StatusServiceUnavailable, detailResponse{Detail: "Service is shutting down."})
		case err != nil:
			recorder.RecordRelay(r.Context(), metrics.OutcomeError)
			logger := httplog.LogEntry(r.Context())
			logger.Error().Err(err).Msg("relaying webhook")
			writeJSON(w, http.StatusInternalServerError, detailResponse{Detail: "Internal server error."})
		default:
			recorder.RecordRelay(r.Context(), metrics.OutcomeAccepted)
			writeJSON(w, http.StatusOK, messageResponse{Message: "Webhook relayed successfully."})
		}
	})
}
