package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"videolab/internal/logging"
)

// errorResponse is the JSON body for every failed request.
type errorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// writeJSON encodes v as JSON and writes it to the response writer. Encoding
// or write errors are logged since they cannot be reported to the client at
// this point.
func writeJSON(w http.ResponseWriter, v interface{}) {
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Error("failed to encode JSON response: %v", err)
	}
}

// writeJSONError writes an error response with the given status code.
// details carries a bounded diagnostic excerpt and may be empty.
func writeJSONError(w http.ResponseWriter, message, details string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	writeJSON(w, errorResponse{Error: message, Details: details})
}

// cleanupForm removes the disk-backed temp files the multipart parser may
// have created for the request.
func cleanupForm(r *http.Request) {
	if r.MultipartForm == nil {
		return
	}
	if err := r.MultipartForm.RemoveAll(); err != nil {
		logging.Warn("failed to remove multipart temp files: %v", err)
	}
}

// setDownloadHeaders marks the response as a named binary download.
func setDownloadHeaders(w http.ResponseWriter, filename, mimeType string, size int64) {
	filename = strings.ReplaceAll(filename, `"`, "")
	w.Header().Set("Content-Type", mimeType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	if size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(size, 10))
	}
}
