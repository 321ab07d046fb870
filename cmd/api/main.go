package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/httplog"
	"github.com/marcelsud/webhook-relay/config"
	"github.com/marcelsud/webhook-relay/internal/http/chi"
	"github.com/marcelsud/webhook-relay/internal/storage"
	"github.com/marcelsud/webhook-relay/metrics"
	"github.com/marcelsud/webhook-relay/ratelimit"
	"github.com/marcelsud/webhook-relay/relay"
	"github.com/marcelsud/webhook-relay/webhook"
	"github.com/rs/zerolog"
)

/* main wires the packages together: config, storage, registry, dispatcher,
 * metrics and the HTTP gateway. Imports only go downwards from here.
 * Errors are printed and turned into a non-zero exit code.
 */
func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.GetConfig()
	if err != nil {
		return err
	}
	limits, err := cfg.Limits()
	if err != nil {
		return err
	}
	logger := httplog.NewLogger("webhook-relay", httplog.Options{
		JSON:     true,
		LogLevel: cfg.LogLevel,
	})

	ctx, stop := signal.NotifyContext(
		context.Background(),
		syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT,
	)
	defer stop()

	backends, err := storage.Open(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := backends.Close(context.Background()); err != nil {
			logger.Error().Err(err).Msg("closing storage")
		}
	}()

	service := webhook.NewService(backends.Repository, cfg.BaseURL, cfg.DestinationPrefix)

	collector := metrics.NewServiceCollector(service, nil)
	exporter, err := metrics.NewOTelExporter(collector)
	if err != nil {
		return fmt.Errorf("creating metrics exporter: %w", err)
	}

	forwarder := relay.NewForwarder(cfg.ForwardTimeout, logger)
	dispatcher := relay.NewDispatcher(service, forwarder, exporter, relay.DispatcherConfig{
		Workers:   cfg.ForwardWorkers,
		QueueSize: cfg.ForwardQueueSize,
	}, logger)
	collector.SetQueue(dispatcher)
	dispatcher.Start(ctx)

	r := chi.Handlers(ctx, chi.Dependencies{
		Webhooks: service,
		Relay:    dispatcher,
		Limiter:  ratelimit.NewLimiter(backends.Limiter, limits.Duplicate, logger),
		Identity: ratelimit.IdentityResolver{
			TrustedHeader:     cfg.TrustedProxyHeader,
			TrustForwardedFor: cfg.TrustForwardedFor,
		},
		Limits: chi.Limits{
			Default:  limits.Default,
			Register: limits.Register,
		},
		Recorder:     exporter,
		Metrics:      exporter.ServeHTTP(),
		Logger:       logger,
		MaxBodyBytes: cfg.MaxBodyBytes,
	})
	srv := &http.Server{
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		Addr:         ":" + cfg.Port,
		Handler:      r,
	}

	errShutdown := make(chan error, 1)
	go shutdown(ctx, srv, dispatcher, exporter, cfg.ShutdownTimeout, logger, errShutdown)
	logger.Info().
		Str("port", cfg.Port).
		Str("base_url", cfg.BaseURL).
		Msg("listening")
	err = srv.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serving http: %w", err)
	}
	return <-errShutdown
}

/* shutdown waits for a signal, stops accepting requests, then drains the
 * forward queue. Both steps share one deadline.
 */
func shutdown(ctx context.Context, server *http.Server, dispatcher *relay.Dispatcher, exporter *metrics.OTelExporter, timeout time.Duration, logger zerolog.Logger, errShutdown chan error) {
	<-ctx.Done()
	logger.Info().Msg("shutting down server")

	ctxTimeout, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	var err error
	if serr := server.Shutdown(ctxTimeout); serr != nil {
		logger.Error().Err(serr).Msg("shutting down server")
		err = fmt.Errorf("forcing server close: %w", serr)
	}
	if derr := dispatcher.Stop(ctxTimeout); derr != nil {
		logger.Error().Err(derr).Msg("draining forward queue")
		if err == nil {
			err = fmt.Errorf("draining forward queue: %w", derr)
		}
	}
	if xerr := exporter.Shutdown(ctxTimeout); xerr != nil {
		logger.Warn().Err(xerr).Msg("shutting down metrics exporter")
	}
	errShutdown <- err
}
