// Package httpapi wires the HTTP surface of the exporter.
// Handlers stay thin; assembling and record derivation live in the
// service packages.
package httpapi

import (
	"log/slog"
	"net/http"
	"sync"

	chi "github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/datevrec/datevrec/internal/accrual"
	"github.com/datevrec/datevrec/internal/payment"
	"github.com/datevrec/datevrec/internal/report"
	"github.com/datevrec/datevrec/internal/revenue"
)

// Server exposes run execution and the account dictionary over HTTP.
type Server struct {
	asm     *revenue.Assembler
	builder *accrual.Builder
	pay     *payment.Builder
	log     *slog.Logger
	rt      *chi.Mux

	mu     sync.RWMutex
	latest *report.Run
}

// New constructs the HTTP server with routes and middleware.
func New(asm *revenue.Assembler, builder *accrual.Builder, pay *payment.Builder, logger *slog.Logger) *Server {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(requestLogger(logger))
	r.Use(recoverer(logger))
	r.Use(metricsMiddleware)

	s := &Server{asm: asm, builder: builder, pay: pay, log: logger, rt: r}
	s.routes()
	return s
}

// Handler exposes the configured http.Handler.
func (s *Server) Handler() http.Handler { return s.rt }

func (s *Server) routes() {
	s.rt.Post("/v1/runs", s.postRun)
	s.rt.Get("/v1/runs/latest", s.latestRun)
	s.rt.Get("/v1/accounts", s.listAccounts)
	s.rt.Get("/healthz", s.healthz)
	s.rt.Get("/readyz", s.readyz)
	s.rt.Method(http.MethodGet, "/metrics", metricsHandler())
}

func (s *Server) healthz(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) }
func (s *Server) readyz(w http.ResponseWriter, r *http.Request)  { w.WriteHeader(http.StatusOK) }

func (s *Server) setLatest(run *report.Run) {
	s.mu.Lock()
	s.latest = run
	s.mu.Unlock()
}

func (s *Server) lastRun() *report.Run {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest
}
