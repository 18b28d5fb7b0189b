package transcoder

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"time"

	"videolab/internal/format"
	"videolab/internal/logging"
	"videolab/internal/metrics"
)

// ErrNotInstalled is returned by every invocation when the startup probe
// found no usable FFmpeg binary.
var ErrNotInstalled = errors.New("FFmpeg is not installed on the server")

const (
	// stderrTailSize bounds how much FFmpeg stderr is retained per invocation.
	stderrTailSize = 500
	// diagnosticSize bounds how much of the retained stderr is surfaced to
	// the caller on failure.
	diagnosticSize = 300

	probeTimeout = 5 * time.Second
)

// ProcessError describes a failed external tool invocation.
type ProcessError struct {
	// Tool is the binary that failed: "ffmpeg" or "ffprobe".
	Tool string
	// Stage is "spawn" when the process never started, "exit" otherwise.
	Stage string
	// Err is the underlying exec error.
	Err error
	// Diagnostics holds the trailing portion of captured stderr.
	Diagnostics string
}

func (e *ProcessError) Error() string {
	if e.Diagnostics != "" {
		return fmt.Sprintf("%s %s failure: %v: %s", e.Tool, e.Stage, e.Err, e.Diagnostics)
	}
	return fmt.Sprintf("%s %s failure: %v", e.Tool, e.Stage, e.Err)
}

func (e *ProcessError) Unwrap() error { return e.Err }

// Transcoder runs one external FFmpeg process per request.
type Transcoder struct {
	ffmpegPath  string
	ffprobePath string

	// Probed once at construction, read-only afterwards.
	ffmpegOK  bool
	ffprobeOK bool

	processes map[*exec.Cmd]struct{}
	processMu sync.Mutex
}

// New creates a Transcoder and probes tool availability once. Binary
// locations may be overridden with the FFMPEG_PATH and FFPROBE_PATH
// environment variables.
func New() *Transcoder {
	t := &Transcoder{
		ffmpegPath:  envOr("FFMPEG_PATH", "ffmpeg"),
		ffprobePath: envOr("FFPROBE_PATH", "ffprobe"),
		processes:   make(map[*exec.Cmd]struct{}),
	}

	t.ffmpegOK = probeTool(t.ffmpegPath)
	t.ffprobeOK = probeTool(t.ffprobePath)

	return t
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// probeTool checks that the binary exists and answers a version query.
func probeTool(path string) bool {
	resolved, err := exec.LookPath(path)
	if err != nil {
		return false
	}

	ctx, cancel := context.WithTimeout(context.Background(), probeTimeout)
	defer cancel()

	if err := exec.CommandContext(ctx, resolved, "-version").Run(); err != nil {
		logging.Warn("%s -version failed: %v", resolved, err)
		return false
	}
	return true
}

// Available reports whether FFmpeg responded to the startup version probe.
func (t *Transcoder) Available() bool {
	return t.ffmpegOK
}

// ProbeAvailable reports whether FFprobe responded to the startup probe.
func (t *Transcoder) ProbeAvailable() bool {
	return t.ffprobeOK
}

// Convert transcodes input into the requested format at outputPath.
func (t *Transcoder) Convert(ctx context.Context, inputPath, outputPath string, spec format.Spec) error {
	return t.run(ctx, convertArgs(inputPath, outputPath, spec), outputPath)
}

// Clip extracts the [start, end) subsegment of input into the requested
// format at outputPath. The seek flag precedes the input, selecting fast
// keyframe-nearest seeking over exact-frame precision.
func (t *Transcoder) Clip(ctx context.Context, inputPath, outputPath string, spec format.Spec, start, end float64) error {
	return t.run(ctx, clipArgs(inputPath, outputPath, spec, start, end), outputPath)
}

func convertArgs(inputPath, outputPath string, spec format.Spec) []string {
	args := []string{"-i", inputPath, "-y"}
	args = append(args, spec.Args...)
	return append(args, outputPath)
}

func clipArgs(inputPath, outputPath string, spec format.Spec, start, end float64) []string {
	args := []string{
		"-ss", format.Seconds(start),
		"-i", inputPath,
		"-t", format.Seconds(end - start),
		"-y",
	}
	args = append(args, spec.Args...)
	args = append(args, "-avoid_negative_ts", "make_zero")
	return append(args, outputPath)
}

// run executes one FFmpeg invocation and interprets its outcome. Any
// partial output file is removed on failure; on success the output file
// must exist.
func (t *Transcoder) run(ctx context.Context, args []string, outputPath string) error {
	if !t.ffmpegOK {
		return ErrNotInstalled
	}

	tail := newTailBuffer(stderrTailSize)
	cmd := exec.CommandContext(ctx, t.ffmpegPath, args...)
	cmd.Stderr = tail

	logging.Debug("Invoking %s %v", t.ffmpegPath, args)

	metrics.TranscoderJobsInProgress.Inc()
	defer metrics.TranscoderJobsInProgress.Dec()
	start := time.Now()

	if err := cmd.Start(); err != nil {
		metrics.TranscoderJobsTotal.WithLabelValues("spawn_error").Inc()
		return &ProcessError{Tool: "ffmpeg", Stage: "spawn", Err: err}
	}

	t.track(cmd)
	err := cmd.Wait()
	t.untrack(cmd)

	metrics.TranscoderJobDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		// The partial output, if FFmpeg got far enough to create one, must
		// not outlive the request.
		removePartial(outputPath)

		if ctx.Err() != nil {
			metrics.TranscoderJobsTotal.WithLabelValues("canceled").Inc()
			return ctx.Err()
		}

		metrics.TranscoderJobsTotal.WithLabelValues("error").Inc()
		return &ProcessError{Tool: "ffmpeg", Stage: "exit", Err: err, Diagnostics: tail.Tail(diagnosticSize)}
	}

	if _, statErr := os.Stat(outputPath); statErr != nil {
		metrics.TranscoderJobsTotal.WithLabelValues("error").Inc()
		return &ProcessError{
			Tool:        "ffmpeg",
			Stage:       "exit",
			Err:         fmt.Errorf("ffmpeg exited successfully but produced no output"),
			Diagnostics: tail.Tail(diagnosticSize),
		}
	}

	metrics.TranscoderJobsTotal.WithLabelValues("success").Inc()
	return nil
}

func removePartial(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		logging.Warn("failed to remove partial output %s: %v", path, err)
	}
}

func (t *Transcoder) track(cmd *exec.Cmd) {
	t.processMu.Lock()
	t.processes[cmd] = struct{}{}
	t.processMu.Unlock()
}

func (t *Transcoder) untrack(cmd *exec.Cmd) {
	t.processMu.Lock()
	delete(t.processes, cmd)
	t.processMu.Unlock()
}

// Cleanup kills any FFmpeg processes still running at shutdown.
func (t *Transcoder) Cleanup() {
	t.processMu.Lock()
	defer t.processMu.Unlock()

	for cmd := range t.processes {
		if cmd.Process != nil {
			logging.Info("Killing transcoding process %d", cmd.Process.Pid)
			if err := cmd.Process.Kill(); err != nil {
				logging.Warn("failed to kill transcoding process: %v", err)
			}
		}
	}
}
