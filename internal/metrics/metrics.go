package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gif_maker_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gif_maker_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "gif_maker_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)
)

// Conversion metrics
var (
	ConversionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gif_maker_conversions_total",
			Help: "Total number of finished conversion jobs",
		},
		[]string{"source", "status"},
	)

	ConversionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gif_maker_conversion_duration_seconds",
			Help:    "Conversion job duration in seconds",
			Buckets: []float64{0.25, 0.5, 1, 2.5, 5, 10, 20, 40, 60, 90, 120},
		},
		[]string{"source"},
	)

	ConversionsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "gif_maker_conversions_in_flight",
			Help: "Number of conversion jobs currently running",
		},
	)

	TranscoderProcessesActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "gif_maker_transcoder_processes_active",
			Help: "Number of ffmpeg processes currently running",
		},
	)
)

// Upload and artifact metrics
var (
	UploadsRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gif_maker_uploads_rejected_total",
			Help: "Total number of rejected uploads by reason",
		},
		[]string{"reason"},
	)

	ArtifactBytes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "gif_maker_artifact_bytes",
			Help:    "Size of produced GIF artifacts in bytes",
			Buckets: prometheus.ExponentialBuckets(16*1024, 2, 12), // 16KB .. 32MB
		},
	)

	ArtifactsStored = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "gif_maker_artifacts_stored",
			Help: "Number of GIF artifacts in the output directory",
		},
	)

	ArtifactsStoredBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "gif_maker_artifacts_stored_bytes",
			Help: "Total size of GIF artifacts in the output directory",
		},
	)
)

// Capture metrics
var (
	CaptureFramesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gif_maker_capture_frames_total",
			Help: "Total number of frames accepted into a capture buffer",
		},
	)

	CaptureSessionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gif_maker_capture_sessions_total",
			Help: "Total number of recording sessions by how they ended",
		},
		[]string{"end"},
	)
)

// Application info metric
var (
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "gif_maker_app_info",
			Help: "Application information",
		},
		[]string{"version", "commit", "go_version"},
	)
)

// Label values shared by the packages that record conversion metrics.
const (
	SourceUpload = "upload"
	SourceFrames = "frames"

	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
	StatusTimedOut  = "timed_out"

	RejectExtension = "extension"
	RejectSize      = "size"

	SessionStopped = "stopped"
	SessionCapped  = "capped"
)

// SetAppInfo sets the application info metric
func SetAppInfo(version, commit, goVersion string) {
	AppInfo.WithLabelValues(version, commit, goVersion).Set(1)
}
