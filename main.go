package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"videolab/internal/handlers"
	"videolab/internal/logging"
	"videolab/internal/metrics"
	"videolab/internal/middleware"
	"videolab/internal/scratch"
	"videolab/internal/startup"
	"videolab/internal/transcoder"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	startTime := time.Now()

	// Load configuration
	config, err := startup.LoadConfig(os.Args[1:], scratch.DefaultPath())
	if err != nil {
		startup.LogFatal("Configuration error: %v", err)
	}

	// Initialize scratch directory (purges leftovers from a previous run)
	dir := scratch.New(config.ScratchDir)
	if err := dir.Init(); err != nil {
		startup.LogFatal("Failed to initialize scratch directory: %v", err)
	}
	startup.LogScratchInit(dir.Path())

	// Initialize transcoder
	trans := transcoder.New()
	startup.LogTranscoderInit(trans.Available(), trans.ProbeAvailable())

	// Initialize metrics
	metrics.SetAppInfo(startup.Version, startup.Commit, startup.GoVersion)
	metrics.InitializeMetrics()
	collector := metrics.NewCollector(dir, 15*time.Second)
	collector.Start()

	// Initialize handlers
	h := handlers.New(trans, dir)

	// Setup router
	router := setupRouter(h, config.StaticDir)

	// Apply logging middleware
	loggingConfig := middleware.DefaultLoggingConfig()
	loggingConfig.LogStaticFiles = config.LogStaticFiles
	loggingConfig.LogHealthChecks = config.LogHealthChecks
	loggedHandler := middleware.Logger(loggingConfig)(router)

	// Apply metrics middleware
	handler := middleware.Metrics(middleware.DefaultMetricsConfig())(loggedHandler)

	// Create server. WriteTimeout stays zero: transcoded downloads can take
	// longer than any sane fixed deadline, and the streaming writer enforces
	// its own per-chunk timeouts.
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", config.Port),
		Handler:      handler,
		ReadTimeout:  0,
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}

	// Optional separate metrics listener
	var metricsSrv *http.Server
	if config.MetricsEnabled {
		metricsMux := http.NewServeMux()
		metricsMux.Handle("/metrics", promhttp.Handler())
		metricsSrv = &http.Server{
			Addr:    ":" + config.MetricsPort,
			Handler: metricsMux,
		}
		go func() {
			if err := metricsSrv.ListenAndServe(); err != http.ErrServerClosed {
				logging.Error("Metrics server error: %v", err)
			}
		}()
	}

	// Start graceful shutdown handler
	go handleShutdown(srv, metricsSrv, trans, collector, dir)

	// Start server
	startup.LogServerStarted(startup.ServerConfig{
		Port:            config.Port,
		MetricsPort:     config.MetricsPort,
		MetricsEnabled:  config.MetricsEnabled,
		StartupDuration: time.Since(startTime),
	})
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		startup.LogFatal("Server error: %v", err)
	}
}

func setupRouter(h *handlers.Handlers, staticDir string) *mux.Router {
	r := mux.NewRouter()

	// Health check and version routes
	r.HandleFunc("/health", h.HealthCheck).Methods("GET")
	r.HandleFunc("/healthz", h.HealthCheck).Methods("GET")
	r.HandleFunc("/livez", h.LivenessCheck).Methods("GET", "HEAD")
	r.HandleFunc("/version", h.GetVersion).Methods("GET")

	// API routes
	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/ffmpeg-status", h.FFmpegStatus).Methods("GET")
	api.HandleFunc("/formats", h.ListFormats).Methods("GET")
	api.HandleFunc("/convert", h.Convert).Methods("POST")
	api.HandleFunc("/clip", h.Clip).Methods("POST")
	api.HandleFunc("/probe", h.Probe).Methods("POST")
	api.HandleFunc("/subtitles", h.ConvertSubtitles).Methods("POST")

	// Static files (the upload page)
	r.PathPrefix("/").Handler(http.FileServer(http.Dir(staticDir)))

	return r
}

func handleShutdown(srv, metricsSrv *http.Server, trans *transcoder.Transcoder, collector *metrics.Collector, dir *scratch.Dir) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan

	startup.LogShutdownInitiated(sig.String())

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	startup.LogShutdownStep("Stopping metrics collector")
	collector.Stop()
	startup.LogShutdownStepComplete("Metrics collector stopped")

	startup.LogShutdownStep("Cleaning up transcoder")
	trans.Cleanup()
	startup.LogShutdownStepComplete("Transcoder cleanup complete")

	startup.LogShutdownStep("Shutting down HTTP server")
	if err := srv.Shutdown(ctx); err != nil {
		logging.Warn("Server shutdown error: %v", err)
	} else {
		startup.LogShutdownStepComplete("HTTP server stopped")
	}

	if metricsSrv != nil {
		if err := metricsSrv.Shutdown(ctx); err != nil {
			logging.Warn("Metrics server shutdown error: %v", err)
		}
	}

	startup.LogShutdownStep("Purging scratch directory")
	if _, err := dir.Purge(); err != nil {
		logging.Warn("Scratch purge error: %v", err)
	} else {
		startup.LogShutdownStepComplete("Scratch directory purged")
	}

	startup.LogShutdownComplete()
}
