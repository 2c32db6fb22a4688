package metrics

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.trai.ch/derive/internal/core/domain"
	"go.trai.ch/zerr"
)

const shutdownTimeout = 5 * time.Second

// HTTPHandler serves the metrics of reg.
func HTTPHandler(reg *prom.Registry) http.Handler {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

// Route is an additional handler served next to /metrics.
type Route struct {
	Pattern string
	Handler http.Handler
}

// Server exposes /metrics on a listener until its context is canceled.
type Server struct {
	srv *http.Server
	ln  net.Listener
}

// Listen binds addr and prepares a server for reg and routes. Use ":0" for an ephemeral port.
func Listen(addr string, reg *prom.Registry, routes ...Route) (*Server, error) {
	var lc net.ListenConfig
	ln, err := lc.Listen(context.Background(), "tcp", addr)
	if err != nil {
		return nil, errors.Join(domain.ErrMetricsListenFailed, zerr.With(err, "addr", addr))
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", HTTPHandler(reg))
	for _, r := range routes {
		mux.Handle(r.Pattern, r.Handler)
	}

	return &Server{
		srv: &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second},
		ln:  ln,
	}, nil
}

// Addr is the bound address.
func (s *Server) Addr() string {
	return s.ln.Addr().String()
}

// Serve blocks until ctx is done, then shuts the server down.
func (s *Server) Serve(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.srv.Serve(s.ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return zerr.Wrap(err, "metrics server stopped")
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := s.srv.Shutdown(shutdownCtx); err != nil {
			return zerr.Wrap(err, "metrics server shutdown")
		}
		return nil
	}
}
