// Package subtitles converts SRT and SubStation Alpha (ASS/SSA) subtitle
// files into WebVTT, the cue format browser track elements understand.
//
// Parsing is tolerant: CRLF line endings, missing SRT indices, and unknown
// ASS sections are accepted; cues with inverted or zero-length ranges are
// dropped rather than failing the whole file.
package subtitles
