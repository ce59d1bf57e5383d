// Package metrics exposes Prometheus collectors for the tracker.
//
// All recording methods are safe to call on a nil *Metrics, which lets
// services run without instrumentation in unit tests.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "mahjong"

// Metrics holds the application's collectors and the registry they live in
type Metrics struct {
	registry *prometheus.Registry

	gamesCreated     prometheus.Counter
	gameJoins        prometheus.Counter
	codeCollisions   prometheus.Counter
	resultsRecorded  prometheus.Counter
	registrations    prometheus.Counter
	logins           *prometheus.CounterVec
	postGameSteps    *prometheus.CounterVec
	postGameDuration *prometheus.HistogramVec
	httpRequests     *prometheus.CounterVec
	httpDuration     *prometheus.HistogramVec
}

// New creates collectors and registers them on a fresh registry
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		gamesCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "games_created_total",
			Help:      "Number of games created.",
		}),
		gameJoins: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "game_joins_total",
			Help:      "Number of players that joined an existing game.",
		}),
		codeCollisions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "game_code_collisions_total",
			Help:      "Generated game codes that were already taken.",
		}),
		resultsRecorded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "results_recorded_total",
			Help:      "Number of win/loss rows recorded.",
		}),
		registrations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "registrations_total",
			Help:      "Number of user registrations.",
		}),
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "logins_total",
			Help:      "Login attempts by outcome.",
		}, []string{"outcome"}),
		postGameSteps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "postgame_steps_total",
			Help:      "Post-game processing steps by step and outcome.",
		}, []string{"step", "outcome"}),
		postGameDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "postgame_step_duration_seconds",
			Help:      "Duration of post-game processing steps.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"step"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route, method and status code.",
		}, []string{"route", "method", "code"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.gamesCreated,
		m.gameJoins,
		m.codeCollisions,
		m.resultsRecorded,
		m.registrations,
		m.logins,
		m.postGameSteps,
		m.postGameDuration,
		m.httpRequests,
		m.httpDuration,
	)
	return m
}

// Registry returns the registry holding all collectors
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) GameCreated() {
	if m == nil {
		return
	}
	m.gamesCreated.Inc()
}

func (m *Metrics) PlayerJoined() {
	if m == nil {
		return
	}
	m.gameJoins.Inc()
}

func (m *Metrics) CodeCollision() {
	if m == nil {
		return
	}
	m.codeCollisions.Inc()
}

func (m *Metrics) ResultsRecorded(n int) {
	if m == nil {
		return
	}
	m.resultsRecorded.Add(float64(n))
}

func (m *Metrics) UserRegistered() {
	if m == nil {
		return
	}
	m.registrations.Inc()
}

// LoginAttempt records a login by outcome ("success" or "failure")
func (m *Metrics) LoginAttempt(success bool) {
	if m == nil {
		return
	}
	outcome := "failure"
	if success {
		outcome = "success"
	}
	m.logins.WithLabelValues(outcome).Inc()
}

// PostGameStep records a post-game step ("snapshot", "hook") and its outcome
func (m *Metrics) PostGameStep(step string, err error, d time.Duration) {
	if m == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	m.postGameSteps.WithLabelValues(step, outcome).Inc()
	m.postGameDuration.WithLabelValues(step).Observe(d.Seconds())
}

// HTTPRequest records a completed request against its route template
func (m *Metrics) HTTPRequest(route, method string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(route, method).Observe(d.Seconds())
}
