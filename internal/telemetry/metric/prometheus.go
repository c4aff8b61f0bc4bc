package metric

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	namespace = "signals"
	subsystem = "cli"
)

// Login results.
const (
	LoginSuccess  = "success"
	LoginRejected = "rejected"
	LoginError    = "error"
)

// Client holds the metrics of one signals-cli process.
//
// All methods are safe on a nil *Client, so callers can leave metrics off
// without branching.
type Client struct {
	registry *prometheus.Registry

	requestsTotal        *prometheus.CounterVec
	requestDuration      *prometheus.HistogramVec
	loginsTotal          *prometheus.CounterVec
	logoutsTotal         prometheus.Counter
	sessionInvalidations prometheus.Counter
}

// NewClient creates the metrics and registers them on a private registry.
func NewClient() *Client {
	c := &Client{
		registry: prometheus.NewRegistry(),
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "requests_total",
			Help:      "Outgoing API requests by method and status code (0 = no response)",
		}, []string{"method", "code"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "request_duration_seconds",
			Help:      "Outgoing API request latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		loginsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "logins_total",
			Help:      "Login attempts by result",
		}, []string{"result"}),
		logoutsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "logouts_total",
			Help:      "User-initiated logouts",
		}),
		sessionInvalidations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "session_invalidations_total",
			Help:      "Forced logouts triggered by a 401 response",
		}),
	}

	c.registry.MustRegister(
		c.requestsTotal,
		c.requestDuration,
		c.loginsTotal,
		c.logoutsTotal,
		c.sessionInvalidations,
	)
	return c
}

// Registry returns the registry holding the client metrics.
func (c *Client) Registry() *prometheus.Registry {
	if c == nil {
		return nil
	}
	return c.registry
}

// Register adds an extra collector to the registry.
func (c *Client) Register(collector prometheus.Collector) error {
	if c == nil {
		return nil
	}
	return c.registry.Register(collector)
}

// ObserveRequest records one finished request. code is 0 when the
// transport produced no response.
func (c *Client) ObserveRequest(method string, code int, elapsed time.Duration) {
	if c == nil {
		return
	}
	c.requestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	c.requestDuration.WithLabelValues(method).Observe(elapsed.Seconds())
}

// ObserveLogin records a login attempt.
func (c *Client) ObserveLogin(result string) {
	if c == nil {
		return
	}
	c.loginsTotal.WithLabelValues(result).Inc()
}

// ObserveLogout records a user-initiated logout.
func (c *Client) ObserveLogout() {
	if c == nil {
		return
	}
	c.logoutsTotal.Inc()
}

// ObserveInvalidation records a forced logout.
func (c *Client) ObserveInvalidation() {
	if c == nil {
		return
	}
	c.sessionInvalidations.Inc()
}

// WriteTextfile writes the registry in text exposition format to path.
func (c *Client) WriteTextfile(path string) error {
	if c == nil || path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, c.registry)
}
