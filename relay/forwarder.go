package relay

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/marcelsud/webhook-relay/webhook/payload"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	DefaultForwardTimeout = 5 * time.Second
	userAgent             = "webhook-relay/1.0"
	maxResponseBody       = 1024 // cap on logged response body
	tracerName            = "github.com/marcelsud/webhook-relay/relay"
)

// Forwarder posts payloads to destinations. One attempt, no retry.
type Forwarder struct {
	client  *http.Client
	timeout time.Duration
	logger  zerolog.Logger
	tracer  trace.Tracer
}

func NewForwarder(timeout time.Duration, logger zerolog.Logger) *Forwarder {
	if timeout <= 0 {
		timeout = DefaultForwardTimeout
	}
	return &Forwarder{
		client:  &http.Client{Timeout: timeout},
		timeout: timeout,
		logger:  logger,
		tracer:  otel.Tracer(tracerName),
	}
}

// Send posts p as JSON to destinationURL. Any non-2xx status is an error.
// Failures are logged with the destination host only; the full URL carries a secret token.
func (f *Forwarder) Send(ctx context.Context, destinationURL string, p payload.Payload) error {
	host := hostOf(destinationURL)
	ctx, span := f.tracer.Start(ctx, "relay.forward",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("destination.host", host)),
	)
	defer span.End()

	err := f.send(ctx, destinationURL, host, p, span)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func (f *Forwarder) send(ctx context.Context, destinationURL, host string, p payload.Payload, span trace.Span) error {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	body, err := p.Bytes()
	if err != nil {
		f.logger.Error().Err(err).Str("destination_host", host).Msg("encoding payload")
		return fmt.Errorf("encoding payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, destinationURL, bytes.NewReader(body))
	if err != nil {
		f.logger.Error().Err(err).Str("destination_host", host).Msg("creating forward request")
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		// *url.Error repeats the full URL
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			err = urlErr.Err
		}
		f.logger.Warn().Err(err).Str("destination_host", host).Msg("forward failed")
		return fmt.Errorf("posting to destination: %w", err)
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))
	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		f.logger.Warn().
			Str("destination_host", host).
			Int("status", resp.StatusCode).
			Str("response", string(respBody)).
			Msg("forward rejected by destination")
		return fmt.Errorf("%w: status %d", ErrForwardFailed, resp.StatusCode)
	}

	return nil
}

func hostOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "unknown"
	}
	return u.Host
}
