package handlers

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"os"
	"strconv"

	"videolab/internal/format"
	"videolab/internal/logging"
	"videolab/internal/metrics"
	"videolab/internal/scratch"
	"videolab/internal/streaming"
	"videolab/internal/transcoder"
)

// clipRange is a validated start/end offset pair in seconds.
type clipRange struct {
	start float64
	end   float64
}

// Convert handles POST /api/convert: full-file conversion into the
// requested format.
func (h *Handlers) Convert(w http.ResponseWriter, r *http.Request) {
	file, header, ok := h.acceptUpload(w, r, "convert")
	if !ok {
		return
	}
	defer cleanupForm(r)
	defer file.Close()

	spec, found := format.Lookup(r.FormValue("format"))
	if !found {
		metrics.UploadsTotal.WithLabelValues("convert", "rejected").Inc()
		writeJSONError(w, msgInvalidFormat, "", http.StatusBadRequest)
		return
	}

	stem := scratch.Stem(header.Filename)
	downloadName := fmt.Sprintf("videoLab_%s.%s", stem, spec.Ext)

	h.transcode(w, r, file, header, spec, nil, "convert", downloadName)
}

// Clip handles POST /api/clip: subsegment extraction. The format defaults
// to the first container format; startTime defaults to 0; endTime is
// required and must be strictly greater than startTime.
func (h *Handlers) Clip(w http.ResponseWriter, r *http.Request) {
	file, header, ok := h.acceptUpload(w, r, "clip")
	if !ok {
		return
	}
	defer cleanupForm(r)
	defer file.Close()

	spec := format.Default()
	if id := r.FormValue("format"); id != "" {
		var found bool
		if spec, found = format.Lookup(id); !found {
			metrics.UploadsTotal.WithLabelValues("clip", "rejected").Inc()
			writeJSONError(w, msgInvalidFormat, "", http.StatusBadRequest)
			return
		}
	}

	rng, err := parseClipRange(r.FormValue("startTime"), r.FormValue("endTime"))
	if err != nil {
		metrics.UploadsTotal.WithLabelValues("clip", "rejected").Inc()
		writeJSONError(w, msgInvalidRange, "", http.StatusBadRequest)
		return
	}

	stem := scratch.Stem(header.Filename)
	downloadName := fmt.Sprintf("clip_%s_%ss-%ss.%s",
		stem, format.Seconds(rng.start), format.Seconds(rng.end), spec.Ext)

	h.transcode(w, r, file, header, spec, rng, "clip", downloadName)
}

// acceptUpload performs the validation steps shared by all upload
// endpoints, in the contract's order: tool availability, then file
// presence. It returns ok=false after writing the error response; the
// multipart form (and with it any buffered upload) is cleaned up on every
// rejection path.
func (h *Handlers) acceptUpload(w http.ResponseWriter, r *http.Request, endpoint string) (multipart.File, *multipart.FileHeader, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, scratch.MaxUploadSize)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		metrics.UploadsTotal.WithLabelValues(endpoint, "rejected").Inc()
		writeJSONError(w, "File too large or invalid form", "", http.StatusBadRequest)
		return nil, nil, false
	}

	if !h.trans.Available() {
		metrics.UploadsTotal.WithLabelValues(endpoint, "rejected").Inc()
		cleanupForm(r)
		writeJSONError(w, msgFFmpegMissing, "", http.StatusInternalServerError)
		return nil, nil, false
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		metrics.UploadsTotal.WithLabelValues(endpoint, "rejected").Inc()
		cleanupForm(r)
		writeJSONError(w, msgNoFile, "", http.StatusBadRequest)
		return nil, nil, false
	}

	return file, header, true
}

// parseClipRange validates the clip boundaries. endTime must parse as a
// number and be strictly greater than startTime; startTime defaults to 0
// and must be non-negative.
func parseClipRange(startRaw, endRaw string) (*clipRange, error) {
	start := 0.0
	if startRaw != "" {
		var err error
		if start, err = strconv.ParseFloat(startRaw, 64); err != nil {
			return nil, fmt.Errorf("invalid startTime %q", startRaw)
		}
	}

	end, err := strconv.ParseFloat(endRaw, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid endTime %q", endRaw)
	}

	if start < 0 || end <= start {
		return nil, fmt.Errorf("inverted or negative range %v-%v", start, end)
	}

	return &clipRange{start: start, end: end}, nil
}

// transcode runs the validated request through the invoker and streams the
// result. Scratch-file lifecycle: the input is removed as soon as the
// invocation finishes; the output is removed once streaming ends, however
// it ends.
func (h *Handlers) transcode(w http.ResponseWriter, r *http.Request, file multipart.File, header *multipart.FileHeader, spec format.Spec, rng *clipRange, endpoint, downloadName string) {
	inputPath, err := h.scratch.SaveUpload(file, header.Filename)
	if err != nil {
		metrics.UploadsTotal.WithLabelValues(endpoint, "rejected").Inc()
		logging.Error("failed to store upload: %v", err)
		writeJSONError(w, "Failed to store upload", "", http.StatusInternalServerError)
		return
	}

	metrics.UploadsTotal.WithLabelValues(endpoint, "accepted").Inc()
	metrics.UploadBytesTotal.Add(float64(header.Size))

	outputPath := h.scratch.OutputPath(scratch.Stem(header.Filename), spec.Ext)

	if rng != nil {
		err = h.trans.Clip(r.Context(), inputPath, outputPath, spec, rng.start, rng.end)
	} else {
		err = h.trans.Convert(r.Context(), inputPath, outputPath, spec)
	}

	// The input is never needed again, whatever the outcome.
	h.scratch.Remove(inputPath)

	if err != nil {
		h.writeInvokeError(w, r, endpoint, err)
		return
	}
	defer h.scratch.Remove(outputPath)

	h.deliver(w, r, endpoint, outputPath, downloadName, spec.MIME)
}

// writeInvokeError maps an invoker failure to a response. A canceled
// request context means the client is gone and nothing can be written.
func (h *Handlers) writeInvokeError(w http.ResponseWriter, r *http.Request, endpoint string, err error) {
	if r.Context().Err() != nil {
		logging.Debug("%s canceled by client: %v", endpoint, err)
		return
	}

	if errors.Is(err, transcoder.ErrNotInstalled) {
		writeJSONError(w, msgFFmpegMissing, "", http.StatusInternalServerError)
		return
	}

	var procErr *transcoder.ProcessError
	if errors.As(err, &procErr) {
		logging.Error("%s failed: %v", endpoint, err)
		writeJSONError(w, "Conversion failed", procErr.Diagnostics, http.StatusInternalServerError)
		return
	}

	logging.Error("%s failed: %v", endpoint, err)
	writeJSONError(w, "Conversion failed", "", http.StatusInternalServerError)
}

// deliver streams the finished output file as a download. Opening the file
// happens before any header is written so that an open failure is still
// reportable; once streaming has started, errors can only be logged.
func (h *Handlers) deliver(w http.ResponseWriter, r *http.Request, endpoint, outputPath, downloadName, mimeType string) {
	file, err := os.Open(outputPath)
	if err != nil {
		metrics.DownloadsTotal.WithLabelValues(endpoint, "error").Inc()
		logging.Error("%s output missing before delivery: %v", endpoint, err)
		writeJSONError(w, "Failed to send output", "", http.StatusInternalServerError)
		return
	}
	defer file.Close()

	var size int64
	if info, statErr := file.Stat(); statErr == nil {
		size = info.Size()
	}

	setDownloadHeaders(w, downloadName, mimeType, size)

	err = streaming.Stream(r.Context(), w, file, h.streamCfg)
	switch {
	case err == nil:
		metrics.DownloadsTotal.WithLabelValues(endpoint, "complete").Inc()
		metrics.DownloadBytesTotal.Add(float64(size))
	case errors.Is(err, streaming.ErrClientGone), errors.Is(err, streaming.ErrWriteTimeout):
		// Client left mid-download; headers are out, only cleanup remains.
		metrics.DownloadsTotal.WithLabelValues(endpoint, "aborted").Inc()
		logging.Debug("%s download aborted: %v", endpoint, err)
	default:
		metrics.DownloadsTotal.WithLabelValues(endpoint, "error").Inc()
		logging.Error("%s delivery failed after response started: %v", endpoint, err)
	}
}
