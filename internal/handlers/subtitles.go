package handlers

import (
	"bytes"
	"io"
	"net/http"

	"videolab/internal/logging"
	"videolab/internal/metrics"
	"videolab/internal/scratch"
	"videolab/internal/subtitles"
)

// maxSubtitleSize bounds subtitle uploads. Subtitle files are text; anything
// past this is not a subtitle file.
const maxSubtitleSize = 32 << 20

// ConvertSubtitles handles POST /api/subtitles: SRT or ASS in, WebVTT out.
// Subtitle files are small enough to convert entirely in memory, so this
// endpoint never touches the scratch directory.
func (h *Handlers) ConvertSubtitles(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxSubtitleSize)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		metrics.UploadsTotal.WithLabelValues("subtitles", "rejected").Inc()
		writeJSONError(w, "File too large or invalid form", "", http.StatusBadRequest)
		return
	}
	defer cleanupForm(r)

	file, header, err := r.FormFile("file")
	if err != nil {
		metrics.UploadsTotal.WithLabelValues("subtitles", "rejected").Inc()
		writeJSONError(w, msgNoFile, "", http.StatusBadRequest)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		metrics.UploadsTotal.WithLabelValues("subtitles", "rejected").Inc()
		logging.Error("failed to read subtitle upload: %v", err)
		writeJSONError(w, "Failed to read upload", "", http.StatusInternalServerError)
		return
	}

	cues, err := subtitles.Parse(header.Filename, data)
	if err != nil {
		metrics.UploadsTotal.WithLabelValues("subtitles", "rejected").Inc()
		writeJSONError(w, "Invalid subtitle file", err.Error(), http.StatusBadRequest)
		return
	}
	metrics.UploadsTotal.WithLabelValues("subtitles", "accepted").Inc()
	metrics.UploadBytesTotal.Add(float64(header.Size))

	var buf bytes.Buffer
	if err := subtitles.WriteVTT(&buf, cues); err != nil {
		metrics.DownloadsTotal.WithLabelValues("subtitles", "error").Inc()
		logging.Error("failed to render WebVTT: %v", err)
		writeJSONError(w, "Failed to render WebVTT", "", http.StatusInternalServerError)
		return
	}

	downloadName := scratch.Stem(header.Filename) + ".vtt"
	setDownloadHeaders(w, downloadName, "text/vtt", int64(buf.Len()))
	if _, err := w.Write(buf.Bytes()); err != nil {
		metrics.DownloadsTotal.WithLabelValues("subtitles", "aborted").Inc()
		logging.Debug("subtitle download aborted: %v", err)
		return
	}
	metrics.DownloadsTotal.WithLabelValues("subtitles", "complete").Inc()
	metrics.DownloadBytesTotal.Add(float64(buf.Len()))
}
