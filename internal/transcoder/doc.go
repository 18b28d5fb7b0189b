// Package transcoder invokes the external FFmpeg binary for format
// conversion and clip extraction, and FFprobe for media inspection.
//
// Tool availability is probed once at construction and cached for the
// process lifetime; when FFmpeg is missing every invocation fails
// immediately without spawning a process. Arguments are always passed as a
// discrete list, never through a shell. Standard error is captured into a
// bounded tail buffer so that failures can surface a diagnostic excerpt
// without retaining unbounded output.
package transcoder
