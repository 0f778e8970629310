package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Recorder exposes upload measurements to Prometheus. A nil Recorder, or one
// built without a registerer, drops everything.
type Recorder struct {
	uploads   *prometheus.CounterVec
	duration  *prometheus.HistogramVec
	rows      *prometheus.HistogramVec
	coercions *prometheus.CounterVec
}

func NewRecorder(reg prometheus.Registerer) *Recorder {
	if reg == nil {
		return &Recorder{}
	}
	uploads := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "adboard_uploads_total",
		Help: "Processed uploads by profile and outcome.",
	}, []string{"profile", "outcome"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "adboard_upload_duration_seconds",
		Help:    "Time spent decoding and aggregating one upload.",
		Buckets: prometheus.DefBuckets,
	}, []string{"profile"})
	rows := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "adboard_upload_rows",
		Help:    "Rows kept per successful upload.",
		Buckets: prometheus.ExponentialBuckets(1, 4, 8),
	}, []string{"profile"})
	coercions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "adboard_coercion_defaults_total",
		Help: "Non-empty cells that fell back to their default value.",
	}, []string{"profile", "kind"})
	reg.MustRegister(uploads, duration, rows, coercions)
	return &Recorder{
		uploads:   uploads,
		duration:  duration,
		rows:      rows,
		coercions: coercions,
	}
}

func (r *Recorder) ObserveUpload(profile, outcome string, took time.Duration, n int) {
	if r == nil || r.uploads == nil {
		return
	}
	profile = normalizeLabel(profile)
	r.uploads.WithLabelValues(profile, outcome).Inc()
	r.duration.WithLabelValues(profile).Observe(took.Seconds())
	if outcome == "ok" {
		r.rows.WithLabelValues(profile).Observe(float64(n))
	}
}

func (r *Recorder) AddCoercions(profile string, byKind map[string]int) {
	if r == nil || r.coercions == nil {
		return
	}
	for kind, n := range byKind {
		r.coercions.WithLabelValues(normalizeLabel(profile), kind).Add(float64(n))
	}
}

func normalizeLabel(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
