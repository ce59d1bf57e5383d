package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCountersIncrement(t *testing.T) {
	m := New()

	m.GameCreated()
	m.GameCreated()
	m.ResultsRecorded(3)
	m.PostGameStep("hook", errors.New("boom"), time.Millisecond)
	m.PostGameStep("hook", nil, time.Millisecond)
	m.LoginAttempt(false)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.gamesCreated))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.resultsRecorded))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.postGameSteps.WithLabelValues("hook", "failure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.postGameSteps.WithLabelValues("hook", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.logins.WithLabelValues("failure")))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.GameCreated()
		m.PlayerJoined()
		m.CodeCollision()
		m.ResultsRecorded(1)
		m.UserRegistered()
		m.LoginAttempt(true)
		m.PostGameStep("snapshot", nil, time.Second)
		m.HTTPRequest("/api/games", http.MethodPost, http.StatusOK, time.Second)
	})
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := New()
	m.HTTPRequest("/api/games", http.MethodPost, http.StatusOK, 10*time.Millisecond)

	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `mahjong_http_requests_total{code="200",method="POST",route="/api/games"} 1`)
}
