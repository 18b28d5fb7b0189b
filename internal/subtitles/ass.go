package subtitles

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var assOverrideTags = regexp.MustCompile(`\{[^}]*\}`)

func looksLikeASS(text string) bool {
	return strings.Contains(text, "[Events]") ||
		strings.Contains(text, "[Script Info]") ||
		strings.Contains(text, "Dialogue:")
}

// parseASS parses SubStation Alpha content. Only the [Events] section is
// read; the Format line determines field positions for Dialogue lines.
func parseASS(text string) ([]Cue, error) {
	var cues []Cue

	inEvents := false
	startIdx, endIdx, textIdx := 1, 2, 9 // standard ASS field order fallback
	fieldCount := 10

	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)

		if strings.HasPrefix(trimmed, "[") {
			inEvents = strings.EqualFold(trimmed, "[Events]")
			continue
		}
		if !inEvents {
			continue
		}

		if rest, ok := strings.CutPrefix(trimmed, "Format:"); ok {
			fields := splitASSFields(rest, -1)
			fieldCount = len(fields)
			for i, f := range fields {
				switch {
				case strings.EqualFold(f, "Start"):
					startIdx = i
				case strings.EqualFold(f, "End"):
					endIdx = i
				case strings.EqualFold(f, "Text"):
					textIdx = i
				}
			}
			continue
		}

		rest, ok := strings.CutPrefix(trimmed, "Dialogue:")
		if !ok {
			continue
		}

		// Text is the final field and may itself contain commas, so the
		// split is bounded by the declared field count.
		fields := splitASSFields(rest, fieldCount)
		if len(fields) <= textIdx || len(fields) <= startIdx || len(fields) <= endIdx {
			continue
		}

		start, err := parseASSTimestamp(fields[startIdx])
		if err != nil {
			continue
		}
		end, err := parseASSTimestamp(fields[endIdx])
		if err != nil {
			continue
		}

		cues = append(cues, Cue{
			Start: start,
			End:   end,
			Text:  cleanASSText(fields[textIdx]),
		})
	}

	return cues, nil
}

// splitASSFields splits a comma-separated field list, trimming whitespace.
// n bounds the number of fields (the last field keeps embedded commas);
// n < 0 means unbounded.
func splitASSFields(s string, n int) []string {
	fields := strings.SplitN(s, ",", n)
	for i, f := range fields {
		fields[i] = strings.TrimSpace(f)
	}
	return fields
}

// parseASSTimestamp parses "H:MM:SS.cc" (centiseconds).
func parseASSTimestamp(s string) (time.Duration, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
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

// cleanASSText strips override tags and converts ASS escape sequences to
// plain text.
func cleanASSText(s string) string {
	s = assOverrideTags.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, `\N`, "\n")
	s = strings.ReplaceAll(s, `\n`, "\n")
	s = strings.ReplaceAll(s, `\h`, " ")
	return strings.TrimSpace(s)
}
