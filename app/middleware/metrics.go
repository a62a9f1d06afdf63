package middleware

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Session gates reported on safs_auth_gate_decisions_total
const (
	GateAuthenticate = "authenticate"
	GateAdmin        = "admin"
	GateApproved     = "approved"
)

// Gate outcomes
const (
	OutcomeAllowed      = "allowed"
	OutcomeMissingToken = "missing_token"
	OutcomeInvalidToken = "invalid_token"
	OutcomeForbidden    = "forbidden"
)

// unmatchedRoute labels requests that hit no registered route so scanners cannot inflate label sets
const unmatchedRoute = "unmatched"

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "safs_http_requests_total",
			Help: "Storefront API requests by method, route template and status class",
		},
		[]string{"method", "route", "class"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "safs_http_request_duration_seconds",
			Help:    "Storefront API latency by route template",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"route"},
	)

	httpInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "safs_http_inflight_requests",
			Help: "Storefront API requests currently being served",
		},
	)

	authGateDecisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "safs_auth_gate_decisions_total",
			Help: "Session gate decisions by gate and outcome",
		},
		[]string{"gate", "outcome"},
	)
)

func recordGate(gate, outcome string) {
	authGateDecisionsTotal.WithLabelValues(gate, outcome).Inc()
}

// statusClass folds a status code into 2xx, 4xx and so on
func statusClass(status int) string {
	return strconv.Itoa(status/100) + "xx"
}

// Metrics records request counts and latency per route template.
// Bcrypt-bound endpoints (login, register) dominate the latency buckets.
func Metrics() fiber.Handler {
	return func(c fiber.Ctx) error {
		start := time.Now()
		httpInFlight.Inc()
		defer httpInFlight.Dec()

		err := c.Next()

		route := unmatchedRoute
		if r := c.Route(); r != nil && r.Path != "" && r.Path != "/" {
			route = r.Path
		}

		httpRequestsTotal.WithLabelValues(c.Method(), route, statusClass(c.Response().StatusCode())).Inc()
		httpRequestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())

		return err
	}
}
