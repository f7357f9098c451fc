package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Rejection reasons
const (
	ReasonMalformed  = "malformed_request"
	ReasonInvalid    = "invalid_input"
	ReasonArithmetic = "arithmetic_anomaly"
	ReasonUnloaded   = "artifacts_unavailable"
)

// Metrics holds the prediction service collectors
type Metrics struct {
	predictions  *prometheus.CounterVec
	rejections   *prometheus.CounterVec
	clamped      prometheus.Counter
	latency      *prometheus.HistogramVec
	artifactInfo *prometheus.GaugeVec
}

// New creates collectors registered on the default registerer
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates collectors registered on registerer. A nil
// registerer leaves them unregistered.
func NewWithRegistry(registerer prometheus.Registerer) *Metrics {
	m := &Metrics{
		predictions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "premium_predictions_total",
			Help: "Successful premium predictions by segment",
		}, []string{"segment"}),
		rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "premium_rejections_total",
			Help: "Rejected prediction requests by reason",
		}, []string{"reason"}),
		clamped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "premium_predictions_clamped_total",
			Help: "Predictions whose raw model output was negative and clamped to zero",
		}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "premium_prediction_duration_seconds",
			Help:    "Prediction latency in seconds",
			Buckets: []float64{.0001, .00025, .0005, .001, .0025, .005, .01, .025, .05},
		}, []string{"segment"}),
		artifactInfo: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "premium_artifact_info",
			Help: "Loaded artifact release (value is always 1)",
		}, []string{"version", "schema_version"}),
	}

	if registerer != nil {
		registerer.MustRegister(m.predictions)
		registerer.MustRegister(m.rejections)
		registerer.MustRegister(m.clamped)
		registerer.MustRegister(m.latency)
		registerer.MustRegister(m.artifactInfo)
	}
	return m
}

// ObservePrediction records a successful prediction
func (m *Metrics) ObservePrediction(segment string, clamped bool, d time.Duration) {
	m.predictions.WithLabelValues(segment).Inc()
	m.latency.WithLabelValues(segment).Observe(d.Seconds())
	if clamped {
		m.clamped.Inc()
	}
}

// ObserveRejection records a rejected request
func (m *Metrics) ObserveRejection(reason string) {
	m.rejections.WithLabelValues(reason).Inc()
}

// SetArtifacts publishes the loaded release
func (m *Metrics) SetArtifacts(version, schemaVersion string) {
	m.artifactInfo.Reset()
	m.artifactInfo.WithLabelValues(version, schemaVersion).Set(1)
}
