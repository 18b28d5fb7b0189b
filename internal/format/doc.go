// Package format defines the registry of output formats supported by the
// conversion and clipping endpoints.
//
// Each entry maps a caller-supplied format identifier (for example "mp4")
// to a file extension, the MIME type used for download responses, and the
// FFmpeg codec arguments that produce that format. The registry is fixed at
// compile time; lookups for unknown identifiers fail closed.
package format
