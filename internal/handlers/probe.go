package handlers

import (
	"errors"
	"net/http"

	"videolab/internal/logging"
	"videolab/internal/metrics"
	"videolab/internal/scratch"
	"videolab/internal/transcoder"
)

// Probe handles POST /api/probe: upload a media file and get its stream
// metadata back as JSON. The upload is scratch-backed like the transcode
// endpoints and removed before the response is written.
func (h *Handlers) Probe(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, scratch.MaxUploadSize)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		metrics.UploadsTotal.WithLabelValues("probe", "rejected").Inc()
		writeJSONError(w, "File too large or invalid form", "", http.StatusBadRequest)
		return
	}
	defer cleanupForm(r)

	if !h.trans.ProbeAvailable() {
		metrics.UploadsTotal.WithLabelValues("probe", "rejected").Inc()
		writeJSONError(w, msgFFprobeMissing, "", http.StatusInternalServerError)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		metrics.UploadsTotal.WithLabelValues("probe", "rejected").Inc()
		writeJSONError(w, msgNoFile, "", http.StatusBadRequest)
		return
	}
	defer file.Close()

	inputPath, err := h.scratch.SaveUpload(file, header.Filename)
	if err != nil {
		metrics.UploadsTotal.WithLabelValues("probe", "rejected").Inc()
		logging.Error("failed to store upload: %v", err)
		writeJSONError(w, "Failed to store upload", "", http.StatusInternalServerError)
		return
	}
	metrics.UploadsTotal.WithLabelValues("probe", "accepted").Inc()
	metrics.UploadBytesTotal.Add(float64(header.Size))

	info, err := h.trans.Probe(r.Context(), inputPath)
	h.scratch.Remove(inputPath)

	if err != nil {
		if errors.Is(err, transcoder.ErrProbeNotInstalled) {
			writeJSONError(w, msgFFprobeMissing, "", http.StatusInternalServerError)
			return
		}
		var perr *transcoder.ProcessError
		if errors.As(err, &perr) {
			writeJSONError(w, "Probe failed", perr.Diagnostics, http.StatusInternalServerError)
			return
		}
		logging.Error("probe failed: %v", err)
		writeJSONError(w, "Probe failed", "", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, info)
}
