// Package middleware provides HTTP middleware for the VideoLab server:
// W3C Extended Log Format request logging with log-injection hardening,
// and Prometheus request metrics.
package middleware
