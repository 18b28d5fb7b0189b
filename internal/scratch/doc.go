// Package scratch owns the lifecycle of transient upload and output files.
//
// All files live in a single process-wide directory under the platform temp
// root. The directory is purged at startup; individual files are uniquely
// named per request and deleted (best-effort) before the owning request
// completes. Nothing in the scratch directory survives a restart.
package scratch
