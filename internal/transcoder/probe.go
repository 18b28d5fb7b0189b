package transcoder

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

// ErrProbeNotInstalled is returned by Probe when FFprobe failed the startup
// availability check.
var ErrProbeNotInstalled = errors.New("FFprobe is not installed on the server")

// MediaInfo describes an inspected media file.
type MediaInfo struct {
	Duration          float64 `json:"duration"`
	Width             int     `json:"width"`
	Height            int     `json:"height"`
	Codec             string  `json:"codec"`
	Container         string  `json:"container"`
	PlayableInBrowser bool    `json:"playableInBrowser"`
}

// Codecs and containers browsers decode natively. Anything else needs a
// server-side conversion before playback.
var browserCodecs = map[string]bool{
	"h264": true,
	"vp8":  true,
	"vp9":  true,
	"av1":  true,
}

var browserContainers = map[string]bool{
	"mp4":  true,
	"webm": true,
	"ogg":  true,
}

// ffprobe -print_format json output, reduced to the fields we read.
type probeOutput struct {
	Streams []struct {
		CodecType string `json:"codec_type"`
		CodecName string `json:"codec_name"`
		Width     int    `json:"width"`
		Height    int    `json:"height"`
	} `json:"streams"`
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

// Probe inspects a media file with FFprobe and reports whether a browser
// can play it natively.
func (t *Transcoder) Probe(ctx context.Context, path string) (*MediaInfo, error) {
	if !t.ffprobeOK {
		return nil, ErrProbeNotInstalled
	}

	cmd := exec.CommandContext(ctx, t.ffprobePath,
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	)

	var stdout bytes.Buffer
	tail := newTailBuffer(stderrTailSize)
	cmd.Stdout = &stdout
	cmd.Stderr = tail

	if err := cmd.Run(); err != nil {
		return nil, &ProcessError{
			Tool:        "ffprobe",
			Stage:       "exit",
			Err:         err,
			Diagnostics: tail.Tail(diagnosticSize),
		}
	}

	var out probeOutput
	if err := json.Unmarshal(stdout.Bytes(), &out); err != nil {
		return nil, fmt.Errorf("failed to decode ffprobe output: %w", err)
	}

	info := &MediaInfo{
		Container: strings.ToLower(strings.TrimPrefix(filepath.Ext(path), ".")),
	}

	if out.Format.Duration != "" {
		info.Duration, _ = strconv.ParseFloat(out.Format.Duration, 64)
	}

	for _, s := range out.Streams {
		if s.CodecType == "video" {
			info.Codec = s.CodecName
			info.Width = s.Width
			info.Height = s.Height
			break
		}
	}
	// Audio-only files report their audio codec instead.
	if info.Codec == "" {
		for _, s := range out.Streams {
			if s.CodecType == "audio" {
				info.Codec = s.CodecName
				break
			}
		}
	}

	info.PlayableInBrowser = browserCodecs[info.Codec] && browserContainers[info.Container]

	return info, nil
}
