package format

import "strconv"

// Spec describes one supported output format.
type Spec struct {
	// ID is the identifier callers pass in the "format" form field.
	ID string
	// Ext is the output file extension, without the leading dot.
	Ext string
	// MIME is the content type used when the result is streamed back.
	MIME string
	// Args are the FFmpeg codec/container arguments for this format.
	Args []string
	// AudioOnly indicates the format drops the video stream.
	AudioOnly bool
}

// Registry order is the order reported by /api/formats. The first entry is
// the default target for clip requests that omit a format.
var registry = []Spec{
	{
		ID:   "mp4",
		Ext:  "mp4",
		MIME: "video/mp4",
		Args: []string{"-c:v", "libx264", "-preset", "fast", "-c:a", "aac"},
	},
	{
		ID:   "webm",
		Ext:  "webm",
		MIME: "video/webm",
		Args: []string{"-c:v", "libvpx-vp9", "-crf", "30", "-b:v", "0", "-c:a", "libopus"},
	},
	{
		ID:   "mkv",
		Ext:  "mkv",
		MIME: "video/x-matroska",
		Args: []string{"-c:v", "libx264", "-preset", "fast", "-c:a", "aac"},
	},
	{
		ID:   "mov",
		Ext:  "mov",
		MIME: "video/quicktime",
		Args: []string{"-c:v", "libx264", "-preset", "fast", "-c:a", "aac"},
	},
	{
		ID:        "mp3",
		Ext:       "mp3",
		MIME:      "audio/mpeg",
		Args:      []string{"-vn", "-c:a", "libmp3lame", "-q:a", "2"},
		AudioOnly: true,
	},
	{
		ID:        "wav",
		Ext:       "wav",
		MIME:      "audio/wav",
		Args:      []string{"-vn", "-c:a", "pcm_s16le"},
		AudioOnly: true,
	},
}

var byID = func() map[string]Spec {
	m := make(map[string]Spec, len(registry))
	for _, s := range registry {
		m[s.ID] = s
	}
	return m
}()

// Lookup returns the Spec for the given identifier. The second return value
// is false for unknown identifiers.
func Lookup(id string) (Spec, bool) {
	s, ok := byID[id]
	return s, ok
}

// Default returns the format used when a clip request omits the format field.
func Default() Spec {
	return registry[0]
}

// Seconds renders a second offset the way FFmpeg and download filenames
// expect it: whole numbers without a decimal point, fractions as given.
func Seconds(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// IDs returns the supported format identifiers in registry order.
func IDs() []string {
	ids := make([]string, len(registry))
	for i, s := range registry {
		ids[i] = s.ID
	}
	return ids
}
