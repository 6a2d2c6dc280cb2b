// Package server exposes the valuation service as a JSON HTTP API.
// Routes live under /api/v1 behind optional API-key and rate-limit
// middleware; /health stays open for probes.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/cma-cli/internal/cma"
	"github.com/sells-group/cma-cli/internal/config"
	"github.com/sells-group/cma-cli/internal/store"
)

// Server wires the analysis service and store into an HTTP API.
type Server struct {
	cfg     config.ServerConfig
	svc     *cma.Service
	store   store.Store
	limiter *rate.Limiter
}

// New builds a server around svc. The store is used directly only for
// health checks; everything else goes through the service.
func New(cfg config.ServerConfig, svc *cma.Service, st store.Store) *Server {
	s := &Server{cfg: cfg, svc: svc, store: st}
	if cfg.RateRPS > 0 {
		burst := cfg.RateBurst
		if burst < 1 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(cfg.RateRPS), burst)
	}
	return s
}

// Router assembles the route tree.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer, s.requestLogger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.corsOrigins(),
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-API-Key"},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(s.requireAPIKey, s.rateLimit)

		r.Route("/cma", func(r chi.Router) {
			r.Post("/analyze", s.handleAnalyze)
			r.Get("/history", s.handleHistory)
			r.Get("/{analysisID}", s.handleGetAnalysis)
			r.Get("/{analysisID}/report", s.handleAnalysisReport)
		})

		r.Route("/properties", func(r chi.Router) {
			r.Post("/", s.handleCreateProperty)
			r.Get("/", s.handleListProperties)
			r.Get("/{propertyID}", s.handleGetProperty)
		})

		r.Get("/markets", s.handleMarkets)
	})

	return r
}

func (s *Server) corsOrigins() []string {
	if len(s.cfg.CORSOrigins) == 0 {
		return []string{"*"}
	}
	return s.cfg.CORSOrigins
}

// Start serves until ctx is cancelled, then drains in-flight requests.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.cfg.Port),
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		zap.L().Info("server: shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			zap.L().Error("server: shutdown", zap.Error(err))
		}
	}()

	zap.L().Info("server: listening", zap.Int("port", s.cfg.Port))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return eris.Wrap(err, "server: listen")
	}
	return nil
}
