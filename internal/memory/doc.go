// Package memory configures the Go soft memory limit from the container
// limit.
//
// A recording keeps up to 300 decoded frames in memory and every
// conversion runs ffmpeg next to the Go process, so the Go heap should only
// take part of the container's memory. Call ConfigureFromEnv early in main.
//
// Environment variables:
//   - GOMEMLIMIT: standard Go variable, takes precedence when set
//   - MEMORY_LIMIT: container memory limit in bytes (Kubernetes Downward API)
//   - MEMORY_RATIO: share of MEMORY_LIMIT given to the Go heap (default 0.85)
package memory
