package metric

import "github.com/prometheus/client_golang/prometheus"

// SessionCollector reports whether the process currently holds a session.
// The value is read at scrape time, never cached.
type SessionCollector struct {
	authenticated func() bool
	desc          *prometheus.Desc
}

// NewSessionCollector creates a collector backed by authenticated.
func NewSessionCollector(authenticated func() bool) *SessionCollector {
	return &SessionCollector{
		authenticated: authenticated,
		desc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, subsystem, "session_authenticated"),
			"1 if a bearer token is currently held, 0 otherwise",
			nil, nil,
		),
	}
}

// Describe implements prometheus.Collector.
func (c *SessionCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.desc
}

// Collect implements prometheus.Collector.
func (c *SessionCollector) Collect(ch chan<- prometheus.Metric) {
	v := 0.0
	if c.authenticated() {
		v = 1
	}
	ch <- prometheus.MustNewConstMetric(c.desc, prometheus.GaugeValue, v)
}
