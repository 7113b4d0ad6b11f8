package api

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/ecuserver/pkg/metrics"
	promMetrics "github.com/marmos91/ecuserver/pkg/metrics/prometheus"
)

func TestRouter_HealthRoutes(t *testing.T) {
	metrics.ResetRegistry()
	srv := httptest.NewServer(NewRouter(nil))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/health/ready")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	// Root redirects to /health.
	resp, err = http.Get(srv.URL + "/")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "/health", resp.Request.URL.Path)
}

func TestRouter_MetricsDisabled(t *testing.T) {
	metrics.ResetRegistry()
	srv := httptest.NewServer(NewRouter(nil))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRouter_MetricsEnabled(t *testing.T) {
	metrics.InitRegistry()
	t.Cleanup(metrics.ResetRegistry)

	m := promMetrics.NewEchoMetrics()
	m.RecordConnectionAccepted()

	srv := httptest.NewServer(NewRouter(nil))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "ecuserver_connections_accepted_total 1")
	assert.Contains(t, string(body), "go_goroutines")
}

func TestServer_StartStop(t *testing.T) {
	metrics.ResetRegistry()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	s := NewServer(APIConfig{}, nil)
	assert.Equal(t, DefaultPort, s.Port())
	assert.Nil(t, s.Addr())

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- s.Serve(ctx, ln) }()

	url := fmt.Sprintf("http://%s/health", ln.Addr())
	require.Eventually(t, func() bool {
		resp, err := http.Get(url)
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, ln.Addr().String(), s.Addr().String())

	cancel()
	select {
	case err := <-errc:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}

	// Stop after shutdown is a no-op.
	assert.NoError(t, s.Stop(context.Background()))
}

func TestServer_StartBindFailure(t *testing.T) {
	taken, err := net.Listen("tcp", ":0")
	require.NoError(t, err)
	defer taken.Close()

	s := NewServer(APIConfig{Port: taken.Addr().(*net.TCPAddr).Port}, nil)
	err = s.Start(context.Background())
	assert.Error(t, err)
}

func TestAPIConfig_IsEnabled(t *testing.T) {
	var cfg APIConfig
	assert.True(t, cfg.IsEnabled())

	off := false
	cfg.Enabled = &off
	assert.False(t, cfg.IsEnabled())
}
