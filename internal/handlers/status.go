package handlers

import (
	"net/http"
	"runtime"
	"time"

	"videolab/internal/format"
	"videolab/internal/startup"
)

// FFmpegStatus handles GET /api/ffmpeg-status, reporting the availability
// flag cached at startup. No side effects, no validation.
func (h *Handlers) FFmpegStatus(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string]bool{"available": h.trans.Available()})
}

// ListFormats handles GET /api/formats.
func (h *Handlers) ListFormats(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, format.IDs())
}

// HealthResponse contains the health check response
type HealthResponse struct {
	Status          string `json:"status"`
	Version         string `json:"version"`
	Uptime          string `json:"uptime"`
	FFmpegAvailable bool   `json:"ffmpegAvailable"`
	ScratchFiles    int    `json:"scratchFiles"`
	GoVersion       string `json:"goVersion"`
	NumGoroutine    int    `json:"numGoroutine"`
}

// HealthCheck returns the health status of the service. The server is
// degraded, not down, when FFmpeg is missing: status and format queries
// still work.
func (h *Handlers) HealthCheck(w http.ResponseWriter, _ *http.Request) {
	response := HealthResponse{
		Status:          "healthy",
		Version:         startup.Version,
		Uptime:          time.Since(h.startTime).Round(time.Second).String(),
		FFmpegAvailable: h.trans.Available(),
		ScratchFiles:    h.scratch.Count(),
		GoVersion:       runtime.Version(),
		NumGoroutine:    runtime.NumGoroutine(),
	}

	if !h.trans.Available() {
		response.Status = "degraded"
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, response)
}

// LivenessCheck is a simple liveness probe (always returns 200 if the
// server is running)
func (h *Handlers) LivenessCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	// For HEAD requests, only send headers (no body)
	if r.Method != http.MethodHead {
		writeJSON(w, map[string]string{"status": "alive"})
	}
}

// GetVersion returns build information
func (h *Handlers) GetVersion(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, startup.GetBuildInfo())
}
