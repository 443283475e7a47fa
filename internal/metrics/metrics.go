// Package metrics collects and exposes Prometheus metrics for the
// authentication flows.
package metrics

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector counts authentication outcomes. Handlers record into it;
// the /metrics endpoint exposes the registry.
type Collector struct {
	registry *prometheus.Registry

	signUps       prometheus.Counter
	signIns       prometheus.Counter
	refreshes     prometheus.Counter
	authFailures  *prometheus.CounterVec
	tokensIssued  *prometheus.CounterVec
	tokensRevoked prometheus.Counter
	tokensSwept   prometheus.Counter
}

// NewCollector builds a Collector with its own registry.
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		signUps: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "auth_signups_total",
			Help: "Completed sign-up flows.",
		}),
		signIns: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "auth_signins_total",
			Help: "Completed sign-in flows.",
		}),
		refreshes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "auth_refreshes_total",
			Help: "Completed refresh flows.",
		}),
		authFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "auth_failures_total",
			Help: "Failed auth operations by reason.",
		}, []string{"reason"}),
		tokensIssued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "auth_tokens_issued_total",
			Help: "Tokens issued by kind.",
		}, []string{"kind"}),
		tokensRevoked: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "auth_tokens_revoked_total",
			Help: "Revocation events (per user, not per token).",
		}),
		tokensSwept: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "auth_tokens_swept_total",
			Help: "Ledger rows garbage collected.",
		}),
	}
	c.registry.MustRegister(
		c.signUps, c.signIns, c.refreshes,
		c.authFailures, c.tokensIssued, c.tokensRevoked, c.tokensSwept,
	)
	return c
}

func (c *Collector) RecordSignUp() {
	c.signUps.Inc()
	c.tokensIssued.WithLabelValues("ACCESS").Inc()
	c.tokensIssued.WithLabelValues("REFRESH").Inc()
}

func (c *Collector) RecordSignIn() {
	c.signIns.Inc()
	c.tokensIssued.WithLabelValues("ACCESS").Inc()
	c.tokensIssued.WithLabelValues("REFRESH").Inc()
	c.tokensRevoked.Inc()
}

func (c *Collector) RecordRefresh() {
	c.refreshes.Inc()
	c.tokensIssued.WithLabelValues("ACCESS").Inc()
}

func (c *Collector) RecordFailure(reason string) {
	c.authFailures.WithLabelValues(reason).Inc()
}

func (c *Collector) RecordRevocation() {
	c.tokensRevoked.Inc()
}

func (c *Collector) RecordSwept(n int64) {
	c.tokensSwept.Add(float64(n))
}

// Handler returns the /metrics endpoint for this collector's registry.
func (c *Collector) Handler() echo.HandlerFunc {
	h := promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
	return func(ec echo.Context) error {
		h.ServeHTTP(ec.Response(), ec.Request())
		return nil
	}
}
