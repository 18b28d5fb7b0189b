// Package handlers implements the HTTP endpoint layer: upload validation,
// conversion/clip orchestration, result streaming, and the status/format
// listing endpoints.
//
// Every request is stateless and independently retriable. Scratch files
// created while handling a request are deleted before the handler returns,
// on success, validation failure, process failure, and client abort alike.
package handlers
