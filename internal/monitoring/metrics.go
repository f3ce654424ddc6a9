package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/dealmungchi/saleharvester/internal/crawler"
)

// Metrics holds all Prometheus metrics for the harvester.
type Metrics struct {
	CategoriesTotal  *prometheus.CounterVec
	CategoryDuration *prometheus.HistogramVec
	RecordsTotal     prometheus.Counter
	RejectedTotal    *prometheus.CounterVec
	RunsTotal        prometheus.Counter
	SinkErrorsTotal  *prometheus.CounterVec
}

// NewMetrics registers the metrics with reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		CategoriesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "harvester_categories_total",
			Help: "Category runs by final status",
		}, []string{"status"}),
		CategoryDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "harvester_category_duration_seconds",
			Help:    "Time spent on one category",
			Buckets: []float64{5, 15, 30, 60, 120, 300, 600},
		}, []string{"status"}),
		RecordsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "harvester_records_total",
			Help: "Records that passed extraction",
		}),
		RejectedTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "harvester_fragments_rejected_total",
			Help: "Fragments that did not produce a record",
		}, []string{"reason"}), // e.g. 'no_price', 'below_min_price'
		RunsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "harvester_runs_total",
			Help: "Completed runs over all categories",
		}),
		SinkErrorsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "harvester_sink_errors_total",
			Help: "Failed hand-offs to an output sink",
		}, []string{"sink"}),
	}
}

func (m *Metrics) ObserveCategory(status crawler.CategoryStatus, duration time.Duration) {
	m.CategoriesTotal.WithLabelValues(string(status)).Inc()
	m.CategoryDuration.WithLabelValues(string(status)).Observe(duration.Seconds())
}

func (m *Metrics) AddRecords(n int) {
	m.RecordsTotal.Add(float64(n))
}

func (m *Metrics) IncRejected(reason crawler.RejectReason) {
	m.RejectedTotal.WithLabelValues(string(reason)).Inc()
}

func (m *Metrics) IncRuns() {
	m.RunsTotal.Inc()
}

func (m *Metrics) IncSinkErrors(sink string) {
	m.SinkErrorsTotal.WithLabelValues(sink).Inc()
}
