package pcmdev

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics contains Prometheus metrics for endpoint discovery and lifecycle operations.
// A nil *Metrics records nothing.
type Metrics struct {
	hardwareOps       *prometheus.CounterVec
	discoveryAttempts *prometheus.CounterVec
	endpointsFound    prometheus.Gauge
	openRefs          *prometheus.GaugeVec
	notifyFailures    prometheus.Counter
	channelMapReads   *prometheus.CounterVec
}

// NewMetrics creates the metrics and registers them with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		hardwareOps: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pcmdev_hardware_ops_total",
				Help: "Total number of backend calls made at lifecycle edges",
			},
			[]string{"op", "result"}, // op: open, prepare, stop, close; result: ok, error
		),
		discoveryAttempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pcmdev_discovery_attempts_total",
				Help: "Total number of endpoint discovery passes",
			},
			[]string{"result"}, // ok, retry, failed
		),
		endpointsFound: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "pcmdev_endpoints_discovered",
			Help: "Number of endpoints in the registry",
		}),
		openRefs: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "pcmdev_endpoint_open_refs",
				Help: "Current open reference count per endpoint",
			},
			[]string{"card", "device", "endpoint"},
		),
		notifyFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pcmdev_notify_failures_total",
			Help: "Total number of failed hardware state notifications",
		}),
		channelMapReads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pcmdev_channel_map_reads_total",
				Help: "Total number of channel map queries",
			},
			[]string{"result"}, // ok, not_found, error
		),
	}

	if err := reg.Register(m); err != nil {
		return nil, err
	}

	return m, nil
}

// Describe implements prometheus.Collector.
func (m *Metrics) Describe(ch chan<- *prometheus.Desc) {
	m.hardwareOps.Describe(ch)
	m.discoveryAttempts.Describe(ch)
	m.endpointsFound.Describe(ch)
	m.openRefs.Describe(ch)
	m.notifyFailures.Describe(ch)
	m.channelMapReads.Describe(ch)
}

// Collect implements prometheus.Collector.
func (m *Metrics) Collect(ch chan<- prometheus.Metric) {
	m.hardwareOps.Collect(ch)
	m.discoveryAttempts.Collect(ch)
	m.endpointsFound.Collect(ch)
	m.openRefs.Collect(ch)
	m.notifyFailures.Collect(ch)
	m.channelMapReads.Collect(ch)
}

func (m *Metrics) hardwareOp(op string, err error) {
	if m == nil {
		return
	}

	result := "ok"
	if err != nil {
		result = "error"
	}

	m.hardwareOps.WithLabelValues(op, result).Inc()
}

func (m *Metrics) discoveryAttempt(result string) {
	if m == nil {
		return
	}

	m.discoveryAttempts.WithLabelValues(result).Inc()
}

func (m *Metrics) setDiscovered(n int) {
	if m == nil {
		return
	}

	m.endpointsFound.Set(float64(n))
}

func (m *Metrics) setOpenRefs(e *Endpoint, refs int) {
	if m == nil {
		return
	}

	card := strconv.FormatUint(uint64(e.card), 10)
	device := strconv.FormatUint(uint64(e.id), 10)
	m.openRefs.WithLabelValues(card, device, e.name).Set(float64(refs))
}

func (m *Metrics) notifyFailure() {
	if m == nil {
		return
	}

	m.notifyFailures.Inc()
}

func (m *Metrics) channelMapRead(result string) {
	if m == nil {
		return
	}

	m.channelMapReads.WithLabelValues(result).Inc()
}
