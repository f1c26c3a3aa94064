package statusserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthz(t *testing.T) {
	s := New(":0", CollectorFunc(func(ctx context.Context) (Snapshot, error) {
		return Snapshot{}, nil
	}))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestStatusReturnsSnapshot(t *testing.T) {
	s := New(":0", CollectorFunc(func(ctx context.Context) (Snapshot, error) {
		return Snapshot{
			Cluster: ClusterStatus{Name: "raidhelper", Provider: "minikube", Reachable: true},
			Releases: []ReleaseStatus{
				{Name: "argocd", Namespace: "argocd", Status: "deployed", Revision: 3},
			},
			Tunnel: TunnelStatus{Running: true, URL: "https://abc-def.trycloudflare.com"},
			Forwards: []ForwardStatus{
				{Name: "grafana", LocalPort: 3000, Alive: true},
			},
		}, nil
	}))

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var snap Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.True(t, snap.Cluster.Reachable)
	assert.Equal(t, "argocd", snap.Releases[0].Name)
	assert.Equal(t, "https://abc-def.trycloudflare.com", snap.Tunnel.URL)
	assert.False(t, snap.Time.IsZero(), "server should stamp the snapshot")
}

func TestStatusCollectorError(t *testing.T) {
	s := New(":0", CollectorFunc(func(ctx context.Context) (Snapshot, error) {
		return Snapshot{}, errors.New("cluster unreachable")
	}))

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "cluster unreachable")
}

func TestListenAndServeStopsOnCancel(t *testing.T) {
	s := New("127.0.0.1:0", CollectorFunc(func(ctx context.Context) (Snapshot, error) {
		return Snapshot{}, nil
	}))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- s.ListenAndServe(ctx)
	}()

	cancel()
	assert.NoError(t, <-done)
}
