package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/vitalvas/sph/config"
	"github.com/vitalvas/sph/muxhandlers"
	"github.com/vitalvas/sph/replay"
	"github.com/vitalvas/sph/sphsig"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(o *options) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run a merchant endpoint that verifies gateway redirects and callbacks",
		Long: `Run a merchant endpoint that verifies gateway redirects and callbacks.

Signed routes:
  /payment/{success,failure,cancel}  browser redirects back from the gateway
  /callback                          server-to-server notifications

Unsigned routes:
  /healthz   liveness
  /metrics   Prometheus metrics

Replayed request ids are rejected using Redis when redis.addr is set, and
process memory otherwise.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if addr != "" {
				o.cfg.Server.Addr = addr
			}

			guard, closeGuard := newReplayGuard(o.cfg, o.logger)
			defer closeGuard()

			reg := prometheus.NewRegistry()
			reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

			handler, err := newServerHandler(o.cfg, o.logger, guard, reg)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return runServer(ctx, &http.Server{
				Addr:         o.cfg.Server.Addr,
				Handler:      handler,
				ReadTimeout:  o.cfg.Server.ReadTimeout,
				WriteTimeout: o.cfg.Server.WriteTimeout,
			}, o.logger)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address; overrides server.addr")

	return cmd
}

func runServer(ctx context.Context, srv *http.Server, logger *zap.Logger) error {
	errCh := make(chan error, 1)

	go func() {
		logger.Info("server listening", zap.String("addr", srv.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}

		return err
	case <-ctx.Done():
	}

	logger.Info("server shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}

func newReplayGuard(cfg *config.Config, logger *zap.Logger) (sphsig.ReplayGuard, func()) {
	if cfg.Redis.Addr == "" {
		logger.Info("replay guard in memory")
		return replay.NewMemoryGuard(cfg.Redis.ReplayTTL), func() {}
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	logger.Info("replay guard in redis", zap.String("addr", cfg.Redis.Addr))

	closeFn := func() {
		if err := rdb.Close(); err != nil {
			logger.Warn("redis close failed", zap.Error(err))
		}
	}

	return replay.NewRedisGuard(rdb, cfg.Redis.KeyPrefix, cfg.Redis.ReplayTTL, logger), closeFn
}

func extractorFor(source string) sphsig.Extractor {
	switch source {
	case config.SourceHeader:
		return sphsig.HeaderFields
	case config.SourceForm:
		return sphsig.FormFields
	default:
		return sphsig.QueryFields
	}
}

func newServerHandler(cfg *config.Config, logger *zap.Logger, guard sphsig.ReplayGuard, reg *prometheus.Registry) (http.Handler, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	creds := cfg.Credentials()
	if err := creds.Validate(); err != nil {
		return nil, err
	}

	resolver := func(_ *http.Request, keyID string) (sphsig.Credentials, error) {
		if keyID != creds.KeyID {
			return sphsig.Credentials{}, fmt.Errorf("unknown key id %q", keyID)
		}

		return creds, nil
	}

	verify := sphsig.VerifyConfig{
		Resolver: resolver,
		MaxAge:   cfg.Server.MaxAge,
		Replay:   guard,
		Metrics:  sphsig.NewMetrics(reg),
		Logger:   logger,
	}

	redirects := verify
	redirects.Extractor = extractorFor(cfg.Server.Source)

	redirectMW, err := sphsig.Middleware(sphsig.MiddlewareConfig{Verify: redirects})
	if err != nil {
		return nil, err
	}

	callbacks := verify
	callbacks.Extractor = sphsig.HeaderFields

	callbackMW, err := sphsig.Middleware(sphsig.MiddlewareConfig{Verify: callbacks})
	if err != nil {
		return nil, err
	}

	sizeLimit, err := muxhandlers.RequestSizeLimitMiddleware(muxhandlers.RequestSizeLimitConfig{MaxBytes: cfg.Server.MaxBodyBytes})
	if err != nil {
		return nil, err
	}

	timeout, err := muxhandlers.TimeoutMiddleware(muxhandlers.TimeoutConfig{Duration: cfg.Server.HandlerTimeout})
	if err != nil {
		return nil, err
	}

	r := mux.NewRouter()
	r.Use(
		muxhandlers.CorrelationIDMiddleware(muxhandlers.CorrelationIDConfig{TrustIncoming: true}),
		muxhandlers.RecoveryMiddleware(muxhandlers.RecoveryConfig{Logger: logger}),
		timeout,
		sizeLimit,
	)

	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}).Methods(http.MethodGet)

	payment := r.PathPrefix("/payment").Subrouter()
	payment.Use(redirectMW)
	payment.HandleFunc("/{result:success|failure|cancel}", func(w http.ResponseWriter, r *http.Request) {
		result := mux.Vars(r)["result"]
		requestID := sphsig.RequestIDFromContext(r.Context())

		logger.Info("payment redirect verified",
			zap.String("result", result),
			zap.String("request_id", requestID),
			zap.String("correlation_id", muxhandlers.CorrelationIDFromContext(r.Context())),
		)

		writeJSON(w, http.StatusOK, map[string]string{
			"result":     result,
			"request_id": requestID,
		})
	}).Methods(http.MethodGet, http.MethodPost)

	r.Handle("/callback", callbackMW(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger.Info("callback verified",
			zap.String("request_id", sphsig.RequestIDFromContext(r.Context())),
			zap.String("correlation_id", muxhandlers.CorrelationIDFromContext(r.Context())),
		)
		w.WriteHeader(http.StatusNoContent)
	}))).Methods(http.MethodPost)

	return r, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
