// Package statusserver exposes the environment's health as a small JSON
// API, so dashboards and scripts can poll one endpoint instead of shelling
// out to kubectl and helm.
package statusserver

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Snapshot is one observation of the whole environment.
type Snapshot struct {
	Cluster  ClusterStatus   `json:"cluster"`
	Releases []ReleaseStatus `json:"releases"`
	Tunnel   TunnelStatus    `json:"tunnel"`
	Forwards []ForwardStatus `json:"forwards"`
	Time     time.Time       `json:"time"`
}

// ClusterStatus reports whether the API server answers.
type ClusterStatus struct {
	Name      string `json:"name"`
	Provider  string `json:"provider"`
	Reachable bool   `json:"reachable"`
}

// ReleaseStatus is the deployed state of one Helm release.
type ReleaseStatus struct {
	Name      string `json:"name"`
	Namespace string `json:"namespace"`
	Status    string `json:"status"`
	Revision  int    `json:"revision,omitempty"`
}

// TunnelStatus reports the public tunnel, if one is running.
type TunnelStatus struct {
	Running bool   `json:"running"`
	URL     string `json:"url,omitempty"`
}

// ForwardStatus is one tracked port-forward.
type ForwardStatus struct {
	Name      string `json:"name"`
	LocalPort int    `json:"local_port"`
	Alive     bool   `json:"alive"`
}

// Collector produces a Snapshot on demand. The server holds no state of
// its own; every request observes the environment fresh.
type Collector interface {
	Collect(ctx context.Context) (Snapshot, error)
}

// CollectorFunc adapts a function to the Collector interface.
type CollectorFunc func(ctx context.Context) (Snapshot, error)

func (f CollectorFunc) Collect(ctx context.Context) (Snapshot, error) {
	return f(ctx)
}

// Server serves the status API on one address.
type Server struct {
	addr      string
	collector Collector
}

// New returns a Server for the given listen address.
func New(addr string, collector Collector) *Server {
	return &Server{addr: addr, collector: collector}
}

// Handler builds the HTTP routes.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Get("/status", func(w http.ResponseWriter, req *http.Request) {
		snap, err := s.collector.Collect(req.Context())
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		snap.Time = time.Now().UTC()

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(snap); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	})

	return r
}

// ListenAndServe blocks serving the API until ctx is canceled, then shuts
// down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}
