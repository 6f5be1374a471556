package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"whatsup-go/internal/whatsup"
)

const namespace = "whatsup"

// Collector implements whatsup.Metrics with prometheus collectors.
type Collector struct {
	cycles        *prometheus.CounterVec
	selected      prometheus.Counter
	dispatched    prometheus.Counter
	skipped       prometheus.Counter
	fetchesActive prometheus.Gauge
	fetchDuration *prometheus.HistogramVec
	checks        *prometheus.CounterVec
	notifications *prometheus.CounterVec
}

var _ whatsup.Metrics = (*Collector)(nil)

// NewCollector creates the collectors and registers them with reg.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	c := &Collector{
		cycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cycles_total",
			Help:      "Check cycles run, by result.",
		}, []string{"result"}),
		selected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "watches_selected_total",
			Help:      "Watches found due for a check.",
		}),
		dispatched: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "watches_dispatched_total",
			Help:      "Watches handed to the fetcher.",
		}),
		skipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "watches_skipped_total",
			Help:      "Due watches skipped because a check was already in flight.",
		}),
		fetchesActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "fetches_in_flight",
			Help:      "Fetches currently holding a concurrency slot.",
		}),
		fetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fetch_duration_seconds",
			Help:      "Time spent fetching watched addresses.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"result"}),
		checks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checks_total",
			Help:      "Watches checked, by resulting status.",
		}, []string{"status"}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Notifications, by what became of them.",
		}, []string{"result"}),
	}

	for _, col := range []prometheus.Collector{
		c.cycles, c.selected, c.dispatched, c.skipped,
		c.fetchesActive, c.fetchDuration, c.checks, c.notifications,
	} {
		if err := reg.Register(col); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (c *Collector) CycleCompleted(selected, dispatched, skipped int, err error) {
	if err != nil {
		c.cycles.WithLabelValues("error").Inc()
		return
	}
	c.cycles.WithLabelValues("ok").Inc()
	c.selected.Add(float64(selected))
	c.dispatched.Add(float64(dispatched))
	c.skipped.Add(float64(skipped))
}

func (c *Collector) FetchStarted() {
	c.fetchesActive.Inc()
}

func (c *Collector) FetchFinished(elapsed time.Duration, err error) {
	c.fetchesActive.Dec()
	result := "ok"
	if err != nil {
		result = "error"
	}
	c.fetchDuration.WithLabelValues(result).Observe(elapsed.Seconds())
}

// WatchChecked counts by status code. Codes are bounded by HTTP plus -1.
func (c *Collector) WatchChecked(status int) {
	c.checks.WithLabelValues(strconv.Itoa(status)).Inc()
}

func (c *Collector) NotificationSent()       { c.notifications.WithLabelValues("sent").Inc() }
func (c *Collector) NotificationSuppressed() { c.notifications.WithLabelValues("suppressed").Inc() }
func (c *Collector) NotificationFailed()     { c.notifications.WithLabelValues("failed").Inc() }
