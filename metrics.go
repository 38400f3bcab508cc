package pakbus

import "github.com/prometheus/client_golang/prometheus"

// Metrics instruments a Transport the way the teacher's scanner.go Monitor
// tallies per-module success/failure over a channel, generalized here to
// real Prometheus counters/histograms a CLI can expose via promhttp.
type Metrics struct {
	transactions       *prometheus.CounterVec
	retries            prometheus.Counter
	signatureFailures  prometheus.Counter
	strayPackets       prometheus.Counter
	bytesRead          prometheus.Counter
	bytesWritten       prometheus.Counter
	transactionLatency prometheus.Histogram
}

// NewMetrics builds and registers a fresh Metrics set against registry. Pass
// prometheus.NewRegistry() for an isolated registry in tests, or
// prometheus.DefaultRegisterer in a long-running CLI process.
func NewMetrics(registry prometheus.Registerer) *Metrics {
	m := &Metrics{
		transactions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pakbus_transactions_total",
			Help: "PakBus transactions completed, labeled by outcome.",
		}, []string{"outcome"}),
		retries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pakbus_retries_total",
			Help: "Hello handshake retries spent connecting to a datalogger.",
		}),
		signatureFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pakbus_signature_failures_total",
			Help: "Frames dropped because their running signature was non-zero.",
		}),
		strayPackets: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pakbus_stray_packets_total",
			Help: "Unsolicited or mismatched-transaction packets seen while waiting for a reply.",
		}),
		bytesRead: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pakbus_bytes_read_total",
			Help: "Bytes read from the link, post-designification.",
		}),
		bytesWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pakbus_bytes_written_total",
			Help: "Packet bytes passed to Transport.Write, before framing (nullifier, quoting, delimiters).",
		}),
		transactionLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "pakbus_transaction_duration_seconds",
			Help:    "Round-trip time of a send-wait transaction.",
			Buckets: prometheus.DefBuckets,
		}),
	}
	if registry != nil {
		registry.MustRegister(
			m.transactions, m.retries, m.signatureFailures, m.strayPackets,
			m.bytesRead, m.bytesWritten, m.transactionLatency,
		)
	}
	return m
}

func (m *Metrics) observeTransaction(ok bool, seconds float64) {
	if m == nil {
		return
	}
	outcome := "success"
	if !ok {
		outcome = "failure"
	}
	m.transactions.WithLabelValues(outcome).Inc()
	m.transactionLatency.Observe(seconds)
}
