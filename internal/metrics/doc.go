// Package metrics provides Prometheus instrumentation for GIF Maker Live.
//
// All metrics are prefixed with "gif_maker_" and registered on the default
// registry through promauto, so importing the package is enough to expose
// them on the /metrics endpoint served from METRICS_PORT.
//
// # Metric Categories
//
// ## HTTP Metrics
//
//   - HTTPRequestsTotal: requests by method, path and status
//   - HTTPRequestDuration: request duration by method and path
//   - HTTPRequestsInFlight: requests currently being processed
//
// ## Conversion Metrics
//
//   - ConversionsTotal: finished jobs by source ("upload", "frames") and
//     status ("succeeded", "failed", "timed_out")
//   - ConversionDuration: wall time of a job by source
//   - ConversionsInFlight: jobs currently holding a worker slot
//   - TranscoderProcessesActive: ffmpeg processes currently running
//
// ## Upload and Artifact Metrics
//
//   - UploadsRejected: uploads refused by reason ("extension", "size")
//   - ArtifactBytes: size distribution of produced GIFs
//   - ArtifactsStored, ArtifactsStoredBytes: contents of the output
//     directory, refreshed by Collector
//
// ## Capture Metrics
//
//   - CaptureFramesTotal: frames accepted into a capture buffer
//   - CaptureSessionsTotal: recordings by how they ended ("stopped", "capped")
//
// Call InitializeMetrics once at startup so every label combination is
// exported from the first scrape.
package metrics
