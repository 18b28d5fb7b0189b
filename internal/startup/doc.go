// Package startup handles configuration loading, port resolution, and the
// startup/shutdown logging sequence for the VideoLab server.
//
// The listen port is resolved from, in precedence order: a bare numeric
// argument, --port=N, --port N / -p N, the VIDEOLAB_PORT environment
// variable, the PORT environment variable, and finally the default 3000.
// Ports outside 1–65535 are rejected and the process exits non-zero.
// Remaining settings come from environment variables, optionally seeded
// from a .env file.
package startup
