package metrics

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"whatsup-go/internal/whatsup"
)

// InFlightFunc reports how many fetches are running.
type InFlightFunc func() int

// NewRouter returns a router serving /metrics from gatherer and /healthz.
func NewRouter(gatherer prometheus.Gatherer, inFlight InFlightFunc) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		if inFlight != nil {
			w.Write([]byte("ok in_flight=" + strconv.Itoa(inFlight()) + "\n"))
			return
		}
		w.Write([]byte("ok\n"))
	})
	return r
}

// Server exposes the metrics router over HTTP.
type Server struct {
	srv    *http.Server
	logger whatsup.Logger
}

func NewServer(addr string, handler http.Handler, logger whatsup.Logger) *Server {
	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 5 * time.Second,
		},
		logger: logger,
	}
}

// Start listens on the configured address and serves in the background.
// It returns once the listener is bound.
func (s *Server) Start() (net.Addr, error) {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return nil, err
	}
	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("metrics server stopped", "error", err)
		}
	}()
	s.logger.Info("metrics server listening", "addr", ln.Addr().String())
	return ln.Addr(), nil
}

// Shutdown stops the server, waiting for open requests until ctx ends.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
