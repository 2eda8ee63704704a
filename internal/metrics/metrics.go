package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/input-output-hk/catalyst-forge-libs/prefixload/errors"
	"github.com/input-output-hk/catalyst-forge-libs/prefixload/internal/transfer/multipart"
	"github.com/input-output-hk/catalyst-forge-libs/prefixload/types"
)

const namespace = "prefixload"

// Recorder updates run metrics from executor outcomes and multipart transitions.
type Recorder struct {
	// CandidatesTotal counts final outcomes by status and failure kind
	CandidatesTotal *prometheus.CounterVec

	// BytesUploadedTotal counts bytes of successfully uploaded files
	BytesUploadedTotal prometheus.Counter

	// UploadDuration tracks per-candidate processing time by action
	UploadDuration *prometheus.HistogramVec

	// MultipartSessionsTotal counts multipart sessions reaching a terminal state
	MultipartSessionsTotal *prometheus.CounterVec

	// LastRunTimestamp is the unix time the last run finished
	LastRunTimestamp prometheus.Gauge
}

// NewRecorder creates a Recorder whose collectors are registered on reg.
// A nil reg creates unregistered collectors.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		CandidatesTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "candidates_total",
				Help:      "Total number of processed candidates",
			},
			[]string{"status", "kind"},
		),
		BytesUploadedTotal: f.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "bytes_uploaded_total",
				Help:      "Total bytes uploaded",
			},
		),
		UploadDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "upload_duration_seconds",
				Help:      "Duration of candidate processing",
				Buckets:   prometheus.ExponentialBuckets(0.05, 2, 14), // 50ms to ~7min
			},
			[]string{"action"},
		),
		MultipartSessionsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "multipart",
				Name:      "sessions_total",
				Help:      "Total number of multipart sessions by terminal state",
			},
			[]string{"state"},
		),
		LastRunTimestamp: f.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "last_run_timestamp_seconds",
				Help:      "Unix time the last run finished",
			},
		),
	}
}

// ObserveOutcome records one final candidate outcome.
func (r *Recorder) ObserveOutcome(o types.Outcome) {
	kind := ""
	if o.Status == types.StatusFailed {
		kind = errors.Classify(o.Err).String()
	}
	r.CandidatesTotal.WithLabelValues(string(o.Status), kind).Inc()

	if o.Status == types.StatusUploaded {
		r.BytesUploadedTotal.Add(float64(o.Bytes))
		r.UploadDuration.WithLabelValues(o.Action.String()).Observe(o.Duration.Seconds())
	}
}

// ObserveTransition counts multipart sessions that reached a terminal state.
func (r *Recorder) ObserveTransition(_ string, _, to multipart.State) {
	if to.Terminal() {
		r.MultipartSessionsTotal.WithLabelValues(to.String()).Inc()
	}
}

// ObserveReport marks the end of a run.
func (r *Recorder) ObserveReport(report *types.Report) {
	r.LastRunTimestamp.Set(float64(report.Started.Add(report.Duration).Unix()))
}

// WriteTextfile writes every metric gathered by g to path in the textfile
// collector format.
func WriteTextfile(path string, g prometheus.Gatherer) error {
	if err := prometheus.WriteToTextfile(path, g); err != nil {
		return errors.NewLocalError("writeMetrics", path, err)
	}
	return nil
}
