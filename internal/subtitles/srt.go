package subtitles

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// srtTimeRange matches "00:01:02,345 --> 00:01:04,000", tolerating a dot as
// the millisecond separator and trailing cue settings.
var srtTimeRange = regexp.MustCompile(
	`^(\d{1,2}:\d{2}:\d{2}[,.]\d{1,3})\s*-->\s*(\d{1,2}:\d{2}:\d{2}[,.]\d{1,3})`)

func looksLikeSRT(text string) bool {
	return srtTimeRange.MatchString(firstTimestampLine(text))
}

func firstTimestampLine(text string) string {
	for _, line := range strings.Split(text, "\n") {
		if strings.Contains(line, "-->") {
			return strings.TrimSpace(line)
		}
	}
	return ""
}

// parseSRT parses SubRip content. Blocks are separated by blank lines; the
// numeric index line is optional.
func parseSRT(text string) ([]Cue, error) {
	var cues []Cue

	for _, block := range strings.Split(text, "\n\n") {
		lines := nonEmptyLines(block)
		if len(lines) == 0 {
			continue
		}

		// Skip the optional index line.
		if _, err := strconv.Atoi(strings.TrimSpace(lines[0])); err == nil {
			lines = lines[1:]
			if len(lines) == 0 {
				continue
			}
		}

		m := srtTimeRange.FindStringSubmatch(strings.TrimSpace(lines[0]))
		if m == nil {
			continue
		}

		start, err := parseSRTTimestamp(m[1])
		if err != nil {
			continue
		}
		end, err := parseSRTTimestamp(m[2])
		if err != nil {
			continue
		}

		cues = append(cues, Cue{
			Start: start,
			End:   end,
			Text:  strings.Join(lines[1:], "\n"),
		})
	}

	return cues, nil
}

func nonEmptyLines(block string) []string {
	var lines []string
	for _, line := range strings.Split(block, "\n") {
		if strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

// parseSRTTimestamp parses "HH:MM:SS,mmm" (or with a dot).
func parseSRTTimestamp(s string) (time.Duration, error) {
	s = strings.ReplaceAll(s, ",", ".")
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return 0, fmt.Errorf("malformed timestamp %q", s)
	}

	h, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("malformed timestamp %q", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("malformed timestamp %q", s)
	}
	sec, err := strconv.ParseFloat(parts[2], 64)
	if err != nil {
		return 0, fmt.Errorf("malformed timestamp %q", s)
	}

	return time.Duration(h)*time.Hour +
		time.Duration(m)*time.Minute +
		time.Duration(sec*float64(time.Second)), nil
}
