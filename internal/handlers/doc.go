// Package handlers implements the HTTP endpoints of the GIF Maker server.
//
// # Conversion
//
//   - POST /convert: multipart upload (file, fps, width) converted to a GIF
//   - GET /download/{filename}: stream a produced GIF (Range capable)
//
// # Operations
//
//   - GET /health, /healthz: service health
//   - GET /livez: liveness probe
//   - GET /version: build information
//   - POST /api/artifacts/clear: remove every produced GIF
//
// Errors are returned as {"detail": "..."} with status 400 for bad input,
// 404 for a missing artifact and 500 for conversion failures.
package handlers
