package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-faster/errors"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"nciso/server/internal/api"
	"nciso/server/internal/auth"
	"nciso/server/internal/broker"
	"nciso/server/internal/config"
	"nciso/server/internal/mcp"
	"nciso/server/internal/middleware"
	"nciso/server/internal/observability"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve REST and MCP over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		return serve(cmd.Context(), cfg)
	},
}

func serve(ctx context.Context, cfg *config.Config) error {
	log := observability.L()
	observability.InitLoki(observability.LokiConfig{
		URL:            cfg.LokiURL,
		User:           cfg.LokiUser,
		APIKey:         cfg.LokiAPIKey,
		AppName:        cfg.AppEnv,
		InstanceID:     cfg.InstanceID,
		InstanceRegion: cfg.InstanceRegion,
	})

	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.close()

	verifier, err := auth.NewVerifier(verifierConfig(cfg))
	if err != nil {
		return errors.Wrap(err, "token verifier")
	}
	authorizer := middleware.NewAuthorizer(verifier, broker.NewMembershipBroker(a.gdb, 5*time.Minute))

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	limiter, err := newRateLimiter(ctx, cfg)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           newRouter(a, authorizer, limiter),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		log.Info("listening", zap.String("addr", srv.Addr), zap.String("instance", cfg.InstanceID), zap.String("region", cfg.InstanceRegion))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return errors.Wrap(err, "listen")
	case <-ctx.Done():
	}

	log.Info("shutting down")
	// In-flight requests get up to 30 seconds.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "shutdown")
	}
	log.Info("server stopped")
	return nil
}

// verifierConfig prefers the shared JWT secret and falls back to the
// project's JWKS endpoint.
func verifierConfig(cfg *config.Config) auth.VerifierConfig {
	vc := auth.VerifierConfig{Secret: cfg.SupabaseJWTSecret, Audience: "authenticated"}
	if vc.Secret == "" && cfg.SupabaseURL != "" {
		vc.JWKSURL = cfg.SupabaseURL + "/auth/v1/.well-known/jwks.json"
	}
	return vc
}

// newRateLimiter shares windows through Redis when REDIS_URL is set and keeps
// them in memory otherwise.
func newRateLimiter(ctx context.Context, cfg *config.Config) (*middleware.RateLimiter, error) {
	if cfg.RedisURL == "" {
		store := middleware.NewMemoryWindowStore()
		go store.RunSweeper(ctx)
		return middleware.NewRateLimiter(cfg.RateLimitPerSecond, store), nil
	}
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, errors.Wrap(err, "parse redis url")
	}
	client := redis.NewClient(opts)
	go func() {
		<-ctx.Done()
		_ = client.Close()
	}()
	return middleware.NewRateLimiter(cfg.RateLimitPerSecond, middleware.NewRedisWindowStore(client)), nil
}

type healthBody struct {
	Status   string `json:"status"`
	Instance string `json:"instance"`
	Region   string `json:"region"`
	DB       string `json:"db"`
	Version  string `json:"version"`
}

// newRouter mounts health, metrics, MCP and REST. Every route passes through
// panic recovery and request metrics.
func newRouter(a *app, authorizer *middleware.Authorizer, limiter *middleware.RateLimiter) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		body := healthBody{
			Status:   "ok",
			Instance: a.cfg.InstanceID,
			Region:   a.cfg.InstanceRegion,
			DB:       "ok",
			Version:  version,
		}
		status := http.StatusOK
		if err := a.ping(r.Context()); err != nil {
			body.Status, body.DB = "degraded", "unavailable"
			status = http.StatusServiceUnavailable
		}
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("X-Instance-ID", a.cfg.InstanceID)
		w.Header().Set("X-Instance-Region", a.cfg.InstanceRegion)
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	})

	mux.Handle("GET /metrics", observability.MetricsHandler())

	handler := mcp.NewHandler(version, "")
	mux.Handle("/v1/mcp", authorizer.Authorize(limiter.Middleware(middleware.Transport(handler, "/v1/mcp"))))

	api.Register(mux, a.svc, authorizer, limiter)

	return middleware.Recovery(middleware.Metrics(mux))
}
