package handlers

import (
	"time"

	"videolab/internal/scratch"
	"videolab/internal/streaming"
	"videolab/internal/transcoder"
)

// Fixed client-facing error messages.
const (
	msgFFmpegMissing  = "FFmpeg is not installed on the server"
	msgFFprobeMissing = "FFprobe is not installed on the server"
	msgNoFile         = "No file uploaded"
	msgInvalidFormat  = "Invalid format"
	msgInvalidRange   = "Invalid time range"
)

// multipartMemory is the in-memory threshold for multipart parsing; larger
// parts spill to disk-backed temp files owned by the form.
const multipartMemory = 32 << 20

type Handlers struct {
	trans     *transcoder.Transcoder
	scratch   *scratch.Dir
	streamCfg streaming.Config
	startTime time.Time
}

func New(trans *transcoder.Transcoder, dir *scratch.Dir) *Handlers {
	return &Handlers{
		trans:     trans,
		scratch:   dir,
		streamCfg: streaming.DefaultConfig(),
		startTime: time.Now(),
	}
}
