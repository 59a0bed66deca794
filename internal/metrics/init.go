package metrics

// InitializeMetrics pre-populates all expected label combinations so that
// every metric is exported from the first Prometheus scrape.
// Call this once at startup after metric registration.
func InitializeMetrics() {
	for _, source := range []string{SourceUpload, SourceFrames} {
		for _, status := range []string{StatusSucceeded, StatusFailed, StatusTimedOut} {
			ConversionsTotal.WithLabelValues(source, status)
		}
		ConversionDuration.WithLabelValues(source)
	}

	for _, reason := range []string{RejectExtension, RejectSize} {
		UploadsRejected.WithLabelValues(reason)
	}

	for _, end := range []string{SessionStopped, SessionCapped} {
		CaptureSessionsTotal.WithLabelValues(end)
	}
}
