package subtitles

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Cue is one subtitle entry.
type Cue struct {
	Start time.Duration
	End   time.Duration
	Text  string
}

// ErrNoCues is returned when a file parses but contains no usable cues.
var ErrNoCues = errors.New("no subtitle cues found")

// ErrUnknownFormat is returned when the input is neither SRT nor ASS.
var ErrUnknownFormat = errors.New("unrecognized subtitle format")

// Parse converts subtitle file content into cues. The filename extension is
// the primary format hint; content sniffing is the fallback so misnamed
// files still convert.
func Parse(name string, data []byte) ([]Cue, error) {
	text := normalizeNewlines(string(data))

	var cues []Cue
	var err error

	switch strings.ToLower(filepath.Ext(name)) {
	case ".srt":
		cues, err = parseSRT(text)
	case ".ass", ".ssa":
		cues, err = parseASS(text)
	default:
		if looksLikeASS(text) {
			cues, err = parseASS(text)
		} else if looksLikeSRT(text) {
			cues, err = parseSRT(text)
		} else {
			return nil, ErrUnknownFormat
		}
	}
	if err != nil {
		return nil, err
	}

	cues = dropInvalid(cues)
	if len(cues) == 0 {
		return nil, ErrNoCues
	}

	sort.SliceStable(cues, func(i, j int) bool { return cues[i].Start < cues[j].Start })
	return cues, nil
}

// WriteVTT emits cues as a WebVTT document.
func WriteVTT(w io.Writer, cues []Cue) error {
	if _, err := io.WriteString(w, "WEBVTT\n\n"); err != nil {
		return err
	}

	for _, cue := range cues {
		_, err := fmt.Fprintf(w, "%s --> %s\n%s\n\n",
			vttTimestamp(cue.Start), vttTimestamp(cue.End), cue.Text)
		if err != nil {
			return err
		}
	}
	return nil
}

func normalizeNewlines(s string) string {
	s = strings.TrimPrefix(s, "\ufeff")
	return strings.ReplaceAll(s, "\r\n", "\n")
}

func dropInvalid(cues []Cue) []Cue {
	valid := cues[:0]
	for _, c := range cues {
		if c.End > c.Start && strings.TrimSpace(c.Text) != "" {
			valid = append(valid, c)
		}
	}
	return valid
}

// vttTimestamp formats a duration as HH:MM:SS.mmm.
func vttTimestamp(d time.Duration) string {
	ms := d.Milliseconds()
	h := ms / 3600000
	ms -= h * 3600000
	m := ms / 60000
	ms -= m * 60000
	s := ms / 1000
	ms -= s * 1000
	return fmt.Sprintf("%02d:%02d:%02d.%03d", h, m, s, ms)
}
