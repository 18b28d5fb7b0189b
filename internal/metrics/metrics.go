package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "videolab_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "videolab_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "videolab_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)
)

// Upload metrics
var (
	UploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "videolab_uploads_total",
			Help: "Total number of file uploads received",
		},
		[]string{"endpoint", "status"},
	)

	UploadBytesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "videolab_upload_bytes_total",
			Help: "Total bytes of uploaded media written to scratch storage",
		},
	)
)

// Transcoder metrics
var (
	TranscoderJobsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "videolab_transcoder_jobs_total",
			Help: "Total number of FFmpeg invocations",
		},
		[]string{"status"}, // success, error, spawn_error, canceled
	)

	TranscoderJobDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "videolab_transcoder_job_duration_seconds",
			Help:    "FFmpeg invocation duration in seconds",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600},
		},
	)

	TranscoderJobsInProgress = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "videolab_transcoder_jobs_in_progress",
			Help: "Number of FFmpeg processes currently running",
		},
	)
)

// Download metrics
var (
	DownloadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "videolab_downloads_total",
			Help: "Total number of result downloads by outcome",
		},
		[]string{"endpoint", "status"}, // status: complete, aborted, error
	)

	DownloadBytesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "videolab_download_bytes_total",
			Help: "Total bytes of conversion output streamed to clients",
		},
	)
)

// Scratch directory metrics
var (
	ScratchFiles = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "videolab_scratch_files",
			Help: "Number of files currently in the scratch directory",
		},
	)
)

// Application info metric
var (
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "videolab_app_info",
			Help: "Application information",
		},
		[]string{"version", "commit", "go_version"},
	)
)

// SetAppInfo sets the application info metric
func SetAppInfo(version, commit, goVersion string) {
	AppInfo.WithLabelValues(version, commit, goVersion).Set(1)
}

// InitializeMetrics pre-populates expected label combinations so that every
// metric is exported from the first Prometheus scrape.
func InitializeMetrics() {
	for _, status := range []string{"success", "error", "spawn_error", "canceled"} {
		TranscoderJobsTotal.WithLabelValues(status)
	}

	for _, endpoint := range []string{"convert", "clip", "probe", "subtitles"} {
		UploadsTotal.WithLabelValues(endpoint, "accepted")
		UploadsTotal.WithLabelValues(endpoint, "rejected")
	}

	for _, endpoint := range []string{"convert", "clip", "subtitles"} {
		for _, status := range []string{"complete", "aborted", "error"} {
			DownloadsTotal.WithLabelValues(endpoint, status)
		}
	}
}
