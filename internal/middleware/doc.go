// Package middleware provides HTTP middleware for the GIF Maker server.
//
// It includes:
//   - Request logging in W3C Extended Log Format
//   - gzip compression for JSON and text responses
//   - Prometheus request metrics keyed by route template
//   - CORS headers for browser clients on other origins
package middleware
