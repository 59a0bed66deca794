package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"gif-maker-live/internal/artifacts"
	"gif-maker-live/internal/conversion"
	"gif-maker-live/internal/handlers"
	"gif-maker-live/internal/intake"
	"gif-maker-live/internal/logging"
	"gif-maker-live/internal/memory"
	"gif-maker-live/internal/metrics"
	"gif-maker-live/internal/middleware"
	"gif-maker-live/internal/startup"
	"gif-maker-live/internal/transcoder"
)

const (
	// statsInterval is how often artifact gauges are refreshed.
	statsInterval = time.Minute

	shutdownTimeout = 30 * time.Second
)

func main() {
	startTime := time.Now()

	memory.ConfigureFromEnv()

	config, err := startup.LoadConfig()
	if err != nil {
		startup.LogFatal("Configuration error: %v", err)
	}

	metrics.SetAppInfo(startup.Version, startup.Commit, runtime.Version())
	metrics.InitializeMetrics()

	startup.LogTranscoderInit(config.FFmpegPath)
	trans := transcoder.New(transcoder.Config{
		FFmpegPath: config.FFmpegPath,
		Timeout:    config.ConversionTimeout,
	})

	store, err := artifacts.NewStore(config.OutputDir)
	if err != nil {
		startup.LogFatal("Failed to initialize artifact store: %v", err)
	}
	uploads, err := intake.New(config.UploadDir, config.MaxUploadBytes)
	if err != nil {
		startup.LogFatal("Failed to initialize upload intake: %v", err)
	}

	converter := conversion.New(trans, conversion.Options{
		TempDir: config.UploadDir,
		Workers: config.ConversionWorkers,
		Probe:   config.ProbeArtifacts,
	})

	collector := metrics.NewCollector(store, statsInterval)
	collector.Start()

	h := handlers.New(converter, store, uploads)
	router := setupRouter(h)

	startup.LogHTTPRoutes(router, config.LogHealthChecks)

	loggingConfig := middleware.DefaultLoggingConfig()
	loggingConfig.LogHealthChecks = config.LogHealthChecks
	var handler http.Handler = middleware.Logger(loggingConfig)(router)
	handler = middleware.CORS(config.CORSAllowedOrigins)(handler)
	handler = middleware.Compression(middleware.DefaultCompressionConfig())(handler)

	srv := &http.Server{
		Addr:              ":" + config.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		// Uploads and conversions are bounded by MAX_UPLOAD_BYTES and
		// CONVERSION_TIMEOUT rather than by server timeouts.
		ReadTimeout:  0,
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}

	var metricsSrv *http.Server
	if config.MetricsEnabled {
		metricsSrv = newMetricsServer(config.MetricsPort)
		go func() {
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logging.Error("Metrics server error: %v", err)
			}
		}()
	}

	go handleShutdown(srv, metricsSrv, collector, trans)

	startup.LogServerStarted(startup.ServerConfig{
		Port:            config.Port,
		MetricsPort:     config.MetricsPort,
		MetricsEnabled:  config.MetricsEnabled,
		StartupDuration: time.Since(startTime),
	})
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		startup.LogFatal("Server error: %v", err)
	}
}

func setupRouter(h *handlers.Handlers) *mux.Router {
	r := mux.NewRouter()
	r.Use(middleware.Metrics(middleware.DefaultMetricsConfig()))

	// Health check and version routes
	r.HandleFunc("/health", h.HealthCheck).Methods(http.MethodGet, http.MethodHead)
	r.HandleFunc("/healthz", h.HealthCheck).Methods(http.MethodGet, http.MethodHead)
	r.HandleFunc("/livez", h.LivenessCheck).Methods(http.MethodGet, http.MethodHead)
	r.HandleFunc("/version", h.GetVersion).Methods(http.MethodGet)

	// Conversion
	r.HandleFunc("/convert", h.Convert).Methods(http.MethodPost)
	r.HandleFunc("/download/{filename}", h.Download).Methods(http.MethodGet, http.MethodHead)

	// Maintenance
	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/artifacts/clear", h.ClearArtifacts).Methods(http.MethodPost)

	return r
}

func newMetricsServer(port string) *http.Server {
	m := http.NewServeMux()
	m.Handle("/metrics", promhttp.Handler())

	return &http.Server{
		Addr:              ":" + port,
		Handler:           m,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}

func handleShutdown(srv, metricsSrv *http.Server, collector *metrics.Collector, trans *transcoder.Transcoder) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan

	startup.LogShutdownInitiated(sig.String())

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	startup.LogShutdownStep("Stopping metrics collector")
	collector.Stop()
	startup.LogShutdownStepComplete("Metrics collector stopped")

	startup.LogShutdownStep("Stopping ffmpeg processes")
	trans.Cleanup()
	startup.LogShutdownStepComplete("Transcoder cleanup complete")

	if metricsSrv != nil {
		startup.LogShutdownStep("Shutting down metrics server")
		if err := metricsSrv.Shutdown(ctx); err != nil {
			logging.Warn("Metrics server shutdown error: %v", err)
		} else {
			startup.LogShutdownStepComplete("Metrics server stopped")
		}
	}

	startup.LogShutdownStep("Shutting down HTTP server")
	if err := srv.Shutdown(ctx); err != nil {
		logging.Warn("Server shutdown error: %v", err)
	} else {
		startup.LogShutdownStepComplete("HTTP server stopped")
	}

	startup.LogShutdownComplete()
}
