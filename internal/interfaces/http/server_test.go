package http

import (
	"context"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/npl-scorer/internal/config"
	"github.com/turtacn/npl-scorer/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/npl-scorer/internal/interfaces/http/handlers"
)

func TestNewServer(t *testing.T) {
	s := NewServer(config.OpsConfig{Host: "127.0.0.1", Port: 9090}, http.NewServeMux(), logging.NewNopLogger())
	assert.Equal(t, "127.0.0.1:9090", s.srv.Addr)
	assert.Equal(t, 15*time.Second, s.shutdownTimeout)
}

func TestServer_ServeAndStop(t *testing.T) {
	router := NewRouter(RouterConfig{Mode: "test", HealthHandler: handlers.NewHealthHandler("v", nil)})
	s := NewServer(config.OpsConfig{ShutdownTimeout: time.Second}, router, logging.NewNopLogger())

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- s.Serve(ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/healthz")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	require.NoError(t, s.Stop(context.Background()))
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("server did not stop")
	}
}
