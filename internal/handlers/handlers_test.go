package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"videolab/internal/scratch"
	"videolab/internal/transcoder"
)

// fakeFFmpegBody answers -version and copies the -i argument to the last
// argument, standing in for a real encoder.
const fakeFFmpegBody = `#!/bin/sh
if [ "$1" = "-version" ]; then exit 0; fi
in=""
prev=""
out=""
for a in "$@"; do
  if [ "$prev" = "-i" ]; then in="$a"; fi
  prev="$a"
  out="$a"
done
cp "$in" "$out"
`

const failingFFmpegBody = `#!/bin/sh
if [ "$1" = "-version" ]; then exit 0; fi
echo "moov atom not found" >&2
exit 1
`

const fakeFFprobeBody = `#!/bin/sh
if [ "$1" = "-version" ]; then exit 0; fi
echo '{"streams":[{"codec_type":"video","codec_name":"h264","width":1280,"height":720}],"format":{"duration":"42.5"}}'
`

// testEnv wires a Handlers instance against fake tool binaries and an
// isolated scratch directory.
type testEnv struct {
	handlers *Handlers
	scratch  *scratch.Dir
}

func newTestEnv(t *testing.T, ffmpegBody, ffprobeBody string) *testEnv {
	t.Helper()
	binDir := t.TempDir()

	if ffmpegBody != "" {
		t.Setenv("FFMPEG_PATH", writeScript(t, binDir, "ffmpeg", ffmpegBody))
	} else {
		t.Setenv("FFMPEG_PATH", filepath.Join(binDir, "no-ffmpeg"))
	}
	if ffprobeBody != "" {
		t.Setenv("FFPROBE_PATH", writeScript(t, binDir, "ffprobe", ffprobeBody))
	} else {
		t.Setenv("FFPROBE_PATH", filepath.Join(binDir, "no-ffprobe"))
	}

	dir := scratch.New(filepath.Join(t.TempDir(), "scratch"))
	require.NoError(t, dir.Init())

	return &testEnv{
		handlers: New(transcoder.New(), dir),
		scratch:  dir,
	}
}

func writeScript(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o755))
	return path
}

// multipartRequest builds a POST request with an optional file part and any
// number of plain form fields.
func multipartRequest(t *testing.T, target, filename, content string, fields map[string]string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	if filename != "" {
		part, err := mw.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = io.WriteString(part, content)
		require.NoError(t, err)
	}
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, target, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func decodeError(t *testing.T, body *bytes.Buffer) errorResponse {
	t.Helper()
	var resp errorResponse
	require.NoError(t, json.Unmarshal(body.Bytes(), &resp))
	return resp
}

func TestConvertSuccess(t *testing.T) {
	env := newTestEnv(t, fakeFFmpegBody, "")

	req := multipartRequest(t, "/api/convert", "holiday video.webm", "fake media bytes",
		map[string]string{"format": "mp4"})
	rec := httptest.NewRecorder()
	env.handlers.Convert(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, "body: %s", rec.Body.String())
	assert.Equal(t, "video/mp4", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="videoLab_holiday video.mp4"`,
		rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "fake media bytes", rec.Body.String())
	assert.Equal(t, 0, env.scratch.Count(), "scratch directory must be empty after delivery")
}

func TestConvertInvalidFormat(t *testing.T) {
	env := newTestEnv(t, fakeFFmpegBody, "")

	for _, id := range []string{"flac", "avi", "", "MP4"} {
		req := multipartRequest(t, "/api/convert", "in.mp4", "x", map[string]string{"format": id})
		rec := httptest.NewRecorder()
		env.handlers.Convert(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code, "format %q", id)
		assert.Equal(t, "Invalid format", decodeError(t, rec.Body).Error, "format %q", id)
	}
	assert.Equal(t, 0, env.scratch.Count())
}

func TestConvertNoFile(t *testing.T) {
	env := newTestEnv(t, fakeFFmpegBody, "")

	req := multipartRequest(t, "/api/convert", "", "", map[string]string{"format": "mp4"})
	rec := httptest.NewRecorder()
	env.handlers.Convert(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "No file uploaded", decodeError(t, rec.Body).Error)
}

func TestConvertFFmpegUnavailable(t *testing.T) {
	env := newTestEnv(t, "", "")

	// Availability is checked before file presence, so even a request
	// missing its file reports the tool error.
	req := multipartRequest(t, "/api/convert", "", "", map[string]string{"format": "mp4"})
	rec := httptest.NewRecorder()
	env.handlers.Convert(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "FFmpeg is not installed on the server", decodeError(t, rec.Body).Error)
}

func TestConvertProcessFailure(t *testing.T) {
	env := newTestEnv(t, failingFFmpegBody, "")

	req := multipartRequest(t, "/api/convert", "broken.mp4", "x", map[string]string{"format": "webm"})
	rec := httptest.NewRecorder()
	env.handlers.Convert(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	resp := decodeError(t, rec.Body)
	assert.Equal(t, "Conversion failed", resp.Error)
	assert.Contains(t, resp.Details, "moov atom not found")
	assert.Equal(t, 0, env.scratch.Count(), "scratch directory must be empty after failure")
}

func TestClipSuccess(t *testing.T) {
	env := newTestEnv(t, fakeFFmpegBody, "")

	req := multipartRequest(t, "/api/clip", "movie.mkv", "clip payload",
		map[string]string{"startTime": "2", "endTime": "8", "format": "mp4"})
	rec := httptest.NewRecorder()
	env.handlers.Clip(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, "body: %s", rec.Body.String())
	assert.Equal(t, `attachment; filename="clip_movie_2s-8s.mp4"`,
		rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "clip payload", rec.Body.String())
	assert.Equal(t, 0, env.scratch.Count())
}

func TestClipDefaultsFormatAndStart(t *testing.T) {
	env := newTestEnv(t, fakeFFmpegBody, "")

	req := multipartRequest(t, "/api/clip", "movie.avi", "x",
		map[string]string{"endTime": "4.5"})
	rec := httptest.NewRecorder()
	env.handlers.Clip(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, "body: %s", rec.Body.String())
	assert.Equal(t, `attachment; filename="clip_movie_0s-4.5s.mp4"`,
		rec.Header().Get("Content-Disposition"))
}

func TestClipInvalidRange(t *testing.T) {
	env := newTestEnv(t, fakeFFmpegBody, "")

	tests := []struct {
		name   string
		fields map[string]string
	}{
		{"end before start", map[string]string{"startTime": "5", "endTime": "2"}},
		{"end equals start", map[string]string{"startTime": "3", "endTime": "3"}},
		{"negative start", map[string]string{"startTime": "-1", "endTime": "5"}},
		{"missing end", map[string]string{"startTime": "0"}},
		{"non-numeric end", map[string]string{"endTime": "eight"}},
		{"non-numeric start", map[string]string{"startTime": "two", "endTime": "8"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := multipartRequest(t, "/api/clip", "in.mp4", "x", tt.fields)
			rec := httptest.NewRecorder()
			env.handlers.Clip(rec, req)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, "Invalid time range", decodeError(t, rec.Body).Error)
		})
	}
	assert.Equal(t, 0, env.scratch.Count())
}

func TestClipInvalidFormat(t *testing.T) {
	env := newTestEnv(t, fakeFFmpegBody, "")

	req := multipartRequest(t, "/api/clip", "in.mp4", "x",
		map[string]string{"format": "gif", "startTime": "0", "endTime": "3"})
	rec := httptest.NewRecorder()
	env.handlers.Clip(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid format", decodeError(t, rec.Body).Error)
}

func TestFFmpegStatus(t *testing.T) {
	t.Run("available", func(t *testing.T) {
		env := newTestEnv(t, fakeFFmpegBody, "")
		rec := httptest.NewRecorder()
		env.handlers.FFmpegStatus(rec, httptest.NewRequest(http.MethodGet, "/api/ffmpeg-status", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"available": true}`, rec.Body.String())
	})

	t.Run("unavailable", func(t *testing.T) {
		env := newTestEnv(t, "", "")
		rec := httptest.NewRecorder()
		env.handlers.FFmpegStatus(rec, httptest.NewRequest(http.MethodGet, "/api/ffmpeg-status", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"available": false}`, rec.Body.String())
	})
}

func TestListFormats(t *testing.T) {
	env := newTestEnv(t, "", "")
	rec := httptest.NewRecorder()
	env.handlers.ListFormats(rec, httptest.NewRequest(http.MethodGet, "/api/formats", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	var ids []string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ids))
	assert.Equal(t, []string{"mp4", "webm", "mkv", "mov", "mp3", "wav"}, ids)
}

func TestHealthCheck(t *testing.T) {
	env := newTestEnv(t, fakeFFmpegBody, "")
	rec := httptest.NewRecorder()
	env.handlers.HealthCheck(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp.Status)
	assert.True(t, resp.FFmpegAvailable)
	assert.Equal(t, 0, resp.ScratchFiles)
}

func TestHealthCheckDegraded(t *testing.T) {
	env := newTestEnv(t, "", "")
	rec := httptest.NewRecorder()
	env.handlers.HealthCheck(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "degraded", resp.Status)
	assert.False(t, resp.FFmpegAvailable)
}

func TestGetVersion(t *testing.T) {
	env := newTestEnv(t, "", "")
	rec := httptest.NewRecorder()
	env.handlers.GetVersion(rec, httptest.NewRequest(http.MethodGet, "/version", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	var info map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &info))
	assert.Contains(t, info, "version")
}

func TestProbeHandler(t *testing.T) {
	env := newTestEnv(t, "", fakeFFprobeBody)

	req := multipartRequest(t, "/api/probe", "movie.mp4", "media", nil)
	rec := httptest.NewRecorder()
	env.handlers.Probe(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, "body: %s", rec.Body.String())
	var info transcoder.MediaInfo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &info))
	assert.Equal(t, "h264", info.Codec)
	assert.Equal(t, 1280, info.Width)
	assert.Equal(t, 42.5, info.Duration)
	assert.True(t, info.PlayableInBrowser)
	assert.Equal(t, 0, env.scratch.Count())
}

func TestProbeHandlerProcessFailure(t *testing.T) {
	failingFFprobe := `#!/bin/sh
if [ "$1" = "-version" ]; then exit 0; fi
echo "moov atom not found" >&2
exit 1
`
	env := newTestEnv(t, "", failingFFprobe)

	req := multipartRequest(t, "/api/probe", "broken.mp4", "x", nil)
	rec := httptest.NewRecorder()
	env.handlers.Probe(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	resp := decodeError(t, rec.Body)
	assert.Equal(t, "Probe failed", resp.Error)
	assert.Contains(t, resp.Details, "moov atom not found")
	assert.Equal(t, 0, env.scratch.Count())
}

func TestProbeUnavailable(t *testing.T) {
	env := newTestEnv(t, "", "")

	req := multipartRequest(t, "/api/probe", "movie.mp4", "media", nil)
	rec := httptest.NewRecorder()
	env.handlers.Probe(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "FFprobe is not installed on the server", decodeError(t, rec.Body).Error)
}

const sampleSRT = `1
00:00:01,000 --> 00:00:03,500
Hello there.

2
00:00:04,000 --> 00:00:06,000
Second line.
`

func TestConvertSubtitles(t *testing.T) {
	env := newTestEnv(t, "", "")

	req := multipartRequest(t, "/api/subtitles", "episode.srt", sampleSRT, nil)
	rec := httptest.NewRecorder()
	env.handlers.ConvertSubtitles(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, "body: %s", rec.Body.String())
	assert.Equal(t, "text/vtt", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="episode.vtt"`, rec.Header().Get("Content-Disposition"))

	body := rec.Body.String()
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("WEBVTT\n")), "body: %q", body)
	assert.Contains(t, body, "00:00:01.000 --> 00:00:03.500")
	assert.Contains(t, body, "Hello there.")
}

func TestConvertSubtitlesInvalid(t *testing.T) {
	env := newTestEnv(t, "", "")

	req := multipartRequest(t, "/api/subtitles", "garbage.srt", "not a subtitle file at all", nil)
	rec := httptest.NewRecorder()
	env.handlers.ConvertSubtitles(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeError(t, rec.Body)
	assert.Equal(t, "Invalid subtitle file", resp.Error)
	assert.NotEmpty(t, resp.Details)
}

func TestConvertSubtitlesNoFile(t *testing.T) {
	env := newTestEnv(t, "", "")

	req := multipartRequest(t, "/api/subtitles", "", "", nil)
	rec := httptest.NewRecorder()
	env.handlers.ConvertSubtitles(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "No file uploaded", decodeError(t, rec.Body).Error)
}
