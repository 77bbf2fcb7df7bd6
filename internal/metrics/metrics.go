// Package metrics holds the Prometheus collectors of the ingestion pipeline.
package metrics

import (
	"time"

	"catalog-service/internal/images"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "catalog"

// Ingestion outcome labels
const (
	ResultSuccess        = "success"
	ResultInputError     = "input_error"
	ResultNormalizeError = "normalization_error"
	ResultPersistError   = "persistence_error"
)

// IngestionMetrics records ingestion and image resolution outcomes
type IngestionMetrics struct {
	ingestions       *prometheus.CounterVec
	productsIngested prometheus.Counter
	skusIngested     prometheus.Counter
	duration         prometheus.Histogram
	imageOutcomes    *prometheus.CounterVec
}

// NewIngestionMetrics registers the collectors with reg. A nil reg uses the
// default registerer served on /metrics.
func NewIngestionMetrics(reg prometheus.Registerer) *IngestionMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &IngestionMetrics{
		ingestions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "requests_total",
			Help:      "Spreadsheet ingestions by result.",
		}, []string{"result"}),
		productsIngested: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "products_total",
			Help:      "Products committed by ingestion.",
		}),
		skusIngested: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "skus_total",
			Help:      "SKUs committed by ingestion.",
		}),
		duration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "duration_seconds",
			Help:      "Time spent ingesting a spreadsheet, including image resolution.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}),
		imageOutcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "images",
			Name:      "resolutions_total",
			Help:      "Image resolutions by outcome.",
		}, []string{"outcome"}),
	}
}

// ObserveIngestion records one finished ingestion
func (m *IngestionMetrics) ObserveIngestion(result string, started time.Time, products, skus int) {
	m.ingestions.WithLabelValues(result).Inc()
	m.duration.Observe(time.Since(started).Seconds())
	if result == ResultSuccess {
		m.productsIngested.Add(float64(products))
		m.skusIngested.Add(float64(skus))
	}
}

// ObserveImage implements images.Observer
func (m *IngestionMetrics) ObserveImage(outcome images.Outcome) {
	m.imageOutcomes.WithLabelValues(outcome.String()).Inc()
}
