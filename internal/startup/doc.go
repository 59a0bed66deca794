// Package startup handles configuration loading, build information and
// startup/shutdown logging for the GIF Maker server.
//
// # Configuration
//
// All configuration is loaded from environment variables via [LoadConfig]:
//
//   - PORT: HTTP server port (default: 8000)
//   - METRICS_PORT: Prometheus metrics server port (default: 9090)
//   - METRICS_ENABLED: Enable or disable the metrics server (default: true)
//   - UPLOAD_DIR: Where uploads are stored during a request (default: ./uploads)
//   - OUTPUT_DIR: Where produced GIFs are kept (default: ./output)
//   - MAX_UPLOAD_BYTES: Upload size limit in bytes (default: 104857600)
//   - CONVERSION_TIMEOUT: Limit for one ffmpeg run as Go duration (default: 2m)
//   - FFMPEG_PATH: ffmpeg executable (default: ffmpeg)
//   - CONVERSION_WORKERS: Concurrent conversions (default: GOMAXPROCS, at most 4)
//   - PROBE_ARTIFACTS: Read GIF dimensions back with ffprobe (default: true)
//   - CORS_ALLOWED_ORIGINS: Comma-separated origins, or * (default: *)
//   - LOG_HEALTH_CHECKS: Log health check requests (default: false)
//   - LOG_LEVEL: debug, info, warn or error (default: info)
//
// # Build Information
//
// Version, Commit and BuildTime are injected via ldflags and exposed via
// [GetBuildInfo].
//
// # Example Usage
//
//	config, err := startup.LoadConfig()
//	if err != nil {
//	    startup.LogFatal("Configuration error: %v", err)
//	}
//	startup.LogTranscoderInit(config.FFmpegPath)
//
//	startup.LogServerStarted(startup.ServerConfig{
//	    Port:            config.Port,
//	    MetricsPort:     config.MetricsPort,
//	    MetricsEnabled:  config.MetricsEnabled,
//	    StartupDuration: time.Since(startTime),
//	})
package startup
