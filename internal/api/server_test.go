package api_test

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/mahjongtracker/internal/api"
	"github.com/mcoot/mahjongtracker/internal/config"
	"github.com/mcoot/mahjongtracker/internal/testutil"
)

func TestServerServesUntilShutdown(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "pong")
	})
	server := api.NewServer(handler, config.ServerConfig{Host: "127.0.0.1", Port: 0}, testutil.NopLogger())
	require.NoError(t, server.Listen())
	assert.NotEqual(t, "127.0.0.1:0", server.Addr())

	errCh := make(chan error, 1)
	go func() { errCh <- server.Start() }()

	resp, err := http.Get("http://" + server.Addr() + "/")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, "pong", string(body))

	require.NoError(t, server.Shutdown(context.Background()))
	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestServerListenError(t *testing.T) {
	first := api.NewServer(http.NotFoundHandler(), config.ServerConfig{Host: "127.0.0.1"}, testutil.NopLogger())
	require.NoError(t, first.Listen())
	defer func() { _ = first.Shutdown(context.Background()) }()

	_, port, _ := strings.Cut(first.Addr(), ":")
	n, err := strconv.Atoi(port)
	require.NoError(t, err)

	second := api.NewServer(http.NotFoundHandler(), config.ServerConfig{Host: "127.0.0.1", Port: n}, testutil.NopLogger())
	assert.Error(t, second.Listen())
}
