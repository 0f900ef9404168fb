package api

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"golang.org/x/time/rate"

	"github.com/ballast-systems/ballast/internal/pipeline"
)

// #region options

// Options carries the HTTP-facing knobs for the decision API.
type Options struct {
	BindAddress         string
	CORSOrigins         []string
	DecideRatePerSec    float64
	DecideRateBurst     int
	HealthyFallbackRate float64
	EnablePrometheus    bool
}

// DefaultOptions returns a permissive local-development configuration.
func DefaultOptions() Options {
	return Options{
		BindAddress:         "0.0.0.0:8080",
		CORSOrigins:         []string{"*"},
		DecideRatePerSec:    50,
		DecideRateBurst:     100,
		HealthyFallbackRate: 0.5,
		EnablePrometheus:    true,
	}
}

// #endregion options

// #region server

// Server exposes the decision runner over HTTP and WebSocket.
type Server struct {
	opts    Options
	runner  *pipeline.Runner
	limiter *rate.Limiter
	hub     *hub
	server  *http.Server
}

// NewServer wires a server around an already-started runner.
func NewServer(opts Options, runner *pipeline.Runner) *Server {
	return &Server{
		opts:    opts,
		runner:  runner,
		limiter: rate.NewLimiter(rate.Limit(opts.DecideRatePerSec), opts.DecideRateBurst),
		hub:     newHub(),
	}
}

// Router builds the route table without binding a listener. Split out so
// tests can drive handlers through httptest.
func (s *Server) Router() http.Handler {
	router := mux.NewRouter()

	// API routes
	api := router.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/decide", s.postDecide).Methods("POST")
	api.HandleFunc("/health", s.getHealth).Methods("GET")
	api.HandleFunc("/metrics", s.getMetrics).Methods("GET")
	api.HandleFunc("/audit/records", s.getAuditRecords).Methods("GET")
	api.HandleFunc("/audit/report", s.getAuditReport).Methods("GET")
	api.HandleFunc("/audit/verify", s.getAuditVerify).Methods("GET")
	api.HandleFunc("/stream/decisions", s.streamDecisions).Methods("GET")

	// Prometheus exposition lives outside the versioned prefix.
	if s.opts.EnablePrometheus {
		router.Handle("/metrics", promhttp.Handler()).Methods("GET")
	}

	c := cors.New(cors.Options{
		AllowedOrigins:   s.opts.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
		MaxAge:           3600,
	})

	return c.Handler(router)
}

// Run serves until ctx is canceled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	s.server = &http.Server{
		Addr:    s.opts.BindAddress,
		Handler: s.Router(),
	}

	// Fan decisions out to stream subscribers for the life of the server.
	go s.hub.run(s.runner.Notify())

	log.Printf("[API] listening on %s", s.opts.BindAddress)

	errc := make(chan error, 1)
	go func() {
		errc <- s.server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.server.Shutdown(shutdownCtx)
	case err := <-errc:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	}
}

// #endregion server
