package transcoder

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"videolab/internal/format"
)

// writeScript creates an executable shell script in dir and returns its path.
func writeScript(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755); err != nil {
		t.Fatalf("failed to write script: %v", err)
	}
	return path
}

// fakeFFmpeg answers -version and otherwise copies the -i argument to the
// last argument.
const fakeFFmpegBody = `
if [ "$1" = "-version" ]; then
  echo "ffmpeg version 0.0-test"
  exit 0
fi
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

const failingFFmpegBody = `
if [ "$1" = "-version" ]; then
  exit 0
fi
echo "Invalid data found when processing input" >&2
exit 1
`

func newTestTranscoder(t *testing.T, ffmpegBody string) *Transcoder {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("FFMPEG_PATH", writeScript(t, dir, "ffmpeg", ffmpegBody))
	t.Setenv("FFPROBE_PATH", filepath.Join(dir, "no-ffprobe"))
	return New()
}

func TestNewUnavailable(t *testing.T) {
	t.Setenv("FFMPEG_PATH", "/nonexistent/ffmpeg")
	t.Setenv("FFPROBE_PATH", "/nonexistent/ffprobe")

	trans := New()
	if trans.Available() {
		t.Error("expected Available() to be false for a nonexistent binary")
	}
	if trans.ProbeAvailable() {
		t.Error("expected ProbeAvailable() to be false for a nonexistent binary")
	}

	err := trans.Convert(context.Background(), "in.mp4", "out.mp4", format.Default())
	if !errors.Is(err, ErrNotInstalled) {
		t.Errorf("Convert() error = %v, want ErrNotInstalled", err)
	}

	if _, err := trans.Probe(context.Background(), "in.mp4"); !errors.Is(err, ErrProbeNotInstalled) {
		t.Errorf("Probe() error = %v, want ErrProbeNotInstalled", err)
	}
}

func TestConvertArgs(t *testing.T) {
	spec, _ := format.Lookup("mp3")
	got := convertArgs("/tmp/in.mkv", "/tmp/out.mp3", spec)
	want := []string{"-i", "/tmp/in.mkv", "-y", "-vn", "-c:a", "libmp3lame", "-q:a", "2", "/tmp/out.mp3"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("convertArgs() = %v, want %v", got, want)
	}
}

func TestClipArgs(t *testing.T) {
	tests := []struct {
		name       string
		start, end float64
		wantSS     string
		wantT      string
	}{
		{"whole seconds", 5, 20, "5", "15"},
		{"fractional", 1.5, 3.25, "1.5", "1.75"},
		{"from zero", 0, 10, "0", "10"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := clipArgs("in.mp4", "out.mp4", format.Default(), tt.start, tt.end)

			if args[0] != "-ss" || args[1] != tt.wantSS {
				t.Errorf("seek args = %v %v, want -ss %v", args[0], args[1], tt.wantSS)
			}
			if args[2] != "-i" || args[3] != "in.mp4" {
				t.Errorf("input args = %v %v, want -i in.mp4", args[2], args[3])
			}
			if args[4] != "-t" || args[5] != tt.wantT {
				t.Errorf("duration args = %v %v, want -t %v", args[4], args[5], tt.wantT)
			}
			if args[len(args)-1] != "out.mp4" {
				t.Errorf("last arg = %v, want out.mp4", args[len(args)-1])
			}

			joined := strings.Join(args, " ")
			if !strings.Contains(joined, "-avoid_negative_ts make_zero") {
				t.Errorf("args missing -avoid_negative_ts make_zero: %v", joined)
			}
			if strings.Index(joined, "-ss") > strings.Index(joined, "-i") {
				t.Error("seek flag must precede the input for fast seeking")
			}
		})
	}
}

func TestConvertSuccess(t *testing.T) {
	trans := newTestTranscoder(t, fakeFFmpegBody)
	if !trans.Available() {
		t.Fatal("fake ffmpeg failed the availability probe")
	}

	dir := t.TempDir()
	inputPath := filepath.Join(dir, "input.webm")
	if err := os.WriteFile(inputPath, []byte("fake media payload"), 0o644); err != nil {
		t.Fatal(err)
	}
	outputPath := filepath.Join(dir, "output.mp4")

	if err := trans.Convert(context.Background(), inputPath, outputPath, format.Default()); err != nil {
		t.Fatalf("Convert() error = %v", err)
	}

	data, err := os.ReadFile(outputPath)
	if err != nil {
		t.Fatalf("output file missing: %v", err)
	}
	if string(data) != "fake media payload" {
		t.Errorf("output content = %q, want input payload", data)
	}
}

func TestClipSuccess(t *testing.T) {
	trans := newTestTranscoder(t, fakeFFmpegBody)

	dir := t.TempDir()
	inputPath := filepath.Join(dir, "input.mp4")
	if err := os.WriteFile(inputPath, []byte("clip me"), 0o644); err != nil {
		t.Fatal(err)
	}
	outputPath := filepath.Join(dir, "clip.mp4")

	if err := trans.Clip(context.Background(), inputPath, outputPath, format.Default(), 2, 8); err != nil {
		t.Fatalf("Clip() error = %v", err)
	}
	if _, err := os.Stat(outputPath); err != nil {
		t.Errorf("output file missing: %v", err)
	}
}

func TestConvertFailureSurfacesStderr(t *testing.T) {
	trans := newTestTranscoder(t, failingFFmpegBody)

	dir := t.TempDir()
	inputPath := filepath.Join(dir, "input.mp4")
	if err := os.WriteFile(inputPath, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	outputPath := filepath.Join(dir, "out.mp4")

	err := trans.Convert(context.Background(), inputPath, outputPath, format.Default())
	if err == nil {
		t.Fatal("Convert() succeeded, want failure")
	}

	var perr *ProcessError
	if !errors.As(err, &perr) {
		t.Fatalf("Convert() error = %T, want *ProcessError", err)
	}
	if perr.Stage != "exit" {
		t.Errorf("Stage = %q, want exit", perr.Stage)
	}
	if !strings.Contains(perr.Diagnostics, "Invalid data found") {
		t.Errorf("Diagnostics = %q, want captured stderr", perr.Diagnostics)
	}
	if _, statErr := os.Stat(outputPath); !os.IsNotExist(statErr) {
		t.Errorf("partial output should not exist after failure, stat err = %v", statErr)
	}
}

func TestConvertRemovesPartialOutput(t *testing.T) {
	// This ffmpeg writes a partial output file before failing.
	body := `
if [ "$1" = "-version" ]; then exit 0; fi
out=""
for a in "$@"; do out="$a"; done
echo "partial" > "$out"
echo "encoder crashed" >&2
exit 1
`
	trans := newTestTranscoder(t, body)

	dir := t.TempDir()
	inputPath := filepath.Join(dir, "input.mp4")
	if err := os.WriteFile(inputPath, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	outputPath := filepath.Join(dir, "out.webm")

	if err := trans.Convert(context.Background(), inputPath, outputPath, format.Default()); err == nil {
		t.Fatal("Convert() succeeded, want failure")
	}
	if _, err := os.Stat(outputPath); !os.IsNotExist(err) {
		t.Error("partial output file survived a failed invocation")
	}
}

func TestConvertNoOutputProduced(t *testing.T) {
	// Exit 0 without creating the output file.
	body := `
if [ "$1" = "-version" ]; then exit 0; fi
exit 0
`
	trans := newTestTranscoder(t, body)

	dir := t.TempDir()
	inputPath := filepath.Join(dir, "input.mp4")
	if err := os.WriteFile(inputPath, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	err := trans.Convert(context.Background(), inputPath, filepath.Join(dir, "out.mp4"), format.Default())
	var perr *ProcessError
	if !errors.As(err, &perr) {
		t.Fatalf("Convert() error = %v, want *ProcessError", err)
	}
	if !strings.Contains(perr.Err.Error(), "produced no output") {
		t.Errorf("error = %v, want produced-no-output", perr.Err)
	}
}

func TestConvertCanceledContext(t *testing.T) {
	trans := newTestTranscoder(t, fakeFFmpegBody)

	dir := t.TempDir()
	inputPath := filepath.Join(dir, "input.mp4")
	if err := os.WriteFile(inputPath, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := trans.Convert(ctx, inputPath, filepath.Join(dir, "out.mp4"), format.Default())
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Convert() error = %v, want context.Canceled", err)
	}
}

func TestProbe(t *testing.T) {
	dir := t.TempDir()
	probeBody := `
if [ "$1" = "-version" ]; then exit 0; fi
cat <<'EOF'
{
  "streams": [
    {"codec_type": "audio", "codec_name": "aac"},
    {"codec_type": "video", "codec_name": "h264", "width": 1920, "height": 1080}
  ],
  "format": {"duration": "12.480000"}
}
EOF
`
	t.Setenv("FFMPEG_PATH", filepath.Join(dir, "no-ffmpeg"))
	t.Setenv("FFPROBE_PATH", writeScript(t, dir, "ffprobe", probeBody))

	trans := New()
	if !trans.ProbeAvailable() {
		t.Fatal("fake ffprobe failed the availability probe")
	}

	info, err := trans.Probe(context.Background(), "/tmp/movie.mp4")
	if err != nil {
		t.Fatalf("Probe() error = %v", err)
	}

	if info.Codec != "h264" {
		t.Errorf("Codec = %q, want h264", info.Codec)
	}
	if info.Width != 1920 || info.Height != 1080 {
		t.Errorf("dimensions = %dx%d, want 1920x1080", info.Width, info.Height)
	}
	if info.Duration != 12.48 {
		t.Errorf("Duration = %v, want 12.48", info.Duration)
	}
	if info.Container != "mp4" {
		t.Errorf("Container = %q, want mp4", info.Container)
	}
	if !info.PlayableInBrowser {
		t.Error("h264 in mp4 should be browser playable")
	}
}

func TestProbeFailureSurfacesStderr(t *testing.T) {
	dir := t.TempDir()
	probeBody := `
if [ "$1" = "-version" ]; then exit 0; fi
echo "corrupt.mp4: Invalid data found when processing input" >&2
exit 1
`
	t.Setenv("FFMPEG_PATH", filepath.Join(dir, "no-ffmpeg"))
	t.Setenv("FFPROBE_PATH", writeScript(t, dir, "ffprobe", probeBody))

	trans := New()
	_, err := trans.Probe(context.Background(), "/tmp/corrupt.mp4")
	if err == nil {
		t.Fatal("Probe() succeeded, want failure")
	}

	var perr *ProcessError
	if !errors.As(err, &perr) {
		t.Fatalf("Probe() error = %T, want *ProcessError", err)
	}
	if perr.Tool != "ffprobe" {
		t.Errorf("Tool = %q, want ffprobe", perr.Tool)
	}
	if !strings.Contains(perr.Diagnostics, "Invalid data found") {
		t.Errorf("Diagnostics = %q, want captured stderr", perr.Diagnostics)
	}
}

func TestProbeAudioOnly(t *testing.T) {
	dir := t.TempDir()
	probeBody := `
if [ "$1" = "-version" ]; then exit 0; fi
echo '{"streams":[{"codec_type":"audio","codec_name":"mp3"}],"format":{"duration":"180.5"}}'
`
	t.Setenv("FFMPEG_PATH", filepath.Join(dir, "no-ffmpeg"))
	t.Setenv("FFPROBE_PATH", writeScript(t, dir, "ffprobe", probeBody))

	trans := New()
	info, err := trans.Probe(context.Background(), "/tmp/song.mp3")
	if err != nil {
		t.Fatalf("Probe() error = %v", err)
	}
	if info.Codec != "mp3" {
		t.Errorf("Codec = %q, want mp3", info.Codec)
	}
	if info.PlayableInBrowser {
		t.Error("mp3 codec is not in the browser codec set")
	}
}

func TestTailBuffer(t *testing.T) {
	tb := newTailBuffer(10)

	tb.Write([]byte("hello"))
	if got := tb.String(); got != "hello" {
		t.Errorf("String() = %q, want hello", got)
	}

	tb.Write([]byte(" world!!"))
	if got := tb.String(); got != "lo world!!" {
		t.Errorf("String() = %q, want last 10 bytes", got)
	}
	if len(tb.String()) != 10 {
		t.Errorf("retained %d bytes, want 10", len(tb.String()))
	}

	if got := tb.Tail(3); got != "d!!" {
		t.Errorf("Tail(3) = %q, want d!!", got)
	}
	if got := tb.Tail(100); got != tb.String() {
		t.Errorf("Tail(100) = %q, want full buffer", got)
	}
}

func TestTailBufferLargeWrite(t *testing.T) {
	tb := newTailBuffer(5)
	tb.Write([]byte("abcdefghij"))
	if got := tb.String(); got != "fghij" {
		t.Errorf("String() = %q, want fghij", got)
	}
}
