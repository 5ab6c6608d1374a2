package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"media-pipeline/internal/config"
	"media-pipeline/internal/logging"
	"media-pipeline/internal/memory"
	"media-pipeline/internal/pipeline"
	"media-pipeline/internal/probe"
	"media-pipeline/internal/queue"
	"media-pipeline/internal/thumbnail"
	"media-pipeline/internal/transcode"
	"media-pipeline/internal/workers"
)

// Set via -ldflags at build time.
var (
	version   = "dev"
	buildTime = "unknown"
)

func main() {
	startTime := time.Now()

	// Configure the Go soft memory limit before anything allocates
	memory.ConfigureFromEnv()

	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		logging.Fatal("Configuration error: %v", err)
	}
	if err := cfg.EnsureDirs(); err != nil {
		logging.Fatal("Failed to create pipeline directories: %v", err)
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer client.Close()

	pingCtx, pingCancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := client.Ping(pingCtx).Err(); err != nil {
		pingCancel()
		logging.Fatal("Redis unreachable at %s: %v", cfg.RedisAddr, err)
	}
	pingCancel()
	logging.Info("Connected to redis at %s", cfg.RedisAddr)

	q := queue.New(client, queue.DefaultKeys(cfg.QueuePrefix))

	// Jobs stranded on the processing list belong to a previous
	// instance of this worker; requeue them before consuming.
	if recovered, err := q.RecoverStale(context.Background()); err != nil {
		logging.Error("Stale job recovery failed: %v", err)
	} else if recovered > 0 {
		logging.Info("Requeued %d stale jobs from previous run", recovered)
	}

	var strategy transcode.Strategy
	switch cfg.Strategy {
	case config.StrategyWrapped:
		strategy = transcode.NewWrapped(cfg.FFmpegPath, cfg.TempDir, cfg.JobTimeout.Std())
	default:
		strategy = transcode.NewDirect(cfg.FFmpegPath, cfg.TempDir, cfg.JobTimeout.Std())
	}
	logging.Info("Using %s transcode strategy", cfg.Strategy)

	prober := probe.New(cfg.FFprobePath, cfg.ProbeTimeout.Std())
	thumbs := thumbnail.New(cfg.FFmpegPath, cfg.TempDir,
		cfg.ThumbnailTimestamp, cfg.ThumbnailWidth, cfg.ThumbnailHeight, cfg.ThumbnailTimeout.Std())

	consumer := pipeline.New(q, prober, strategy, thumbs, pipeline.Options{
		ProcessedDir:          cfg.ProcessedDir,
		ThumbnailDir:          cfg.ThumbnailDir,
		MaxWidth:              cfg.MaxWidth,
		MaxHeight:             cfg.MaxHeight,
		VideoCodecs:           cfg.VideoCodecs,
		AudioCodecs:           cfg.AudioCodecs,
		CRF:                   cfg.CRF,
		Preset:                cfg.Preset,
		AudioBitrate:          cfg.AudioBitrate,
		MaxAttempts:           cfg.MaxAttempts,
		DeleteOriginal:        cfg.DeleteOriginalAfterProcessing,
		ThumbnailFailureFatal: cfg.ThumbnailFailureFatal,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	srv := &http.Server{
		Addr:         ":" + cfg.MetricsPort,
		Handler:      setupRouter(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		logging.Info("Metrics endpoint listening on :%s", cfg.MetricsPort)
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			logging.Error("Metrics server error: %v", err)
		}
	}()

	go sweepTempLoop(ctx, cfg)

	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		s := <-sig
		logging.Info("Received %v, draining in-flight jobs", s)
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logging.Warn("Metrics server shutdown: %v", err)
		}
	}()

	poolSize := cfg.Workers
	if poolSize <= 0 {
		poolSize = workers.ForTranscode(0)
	}

	logging.Info("Pipeline %s ready in %v", version, time.Since(startTime).Round(time.Millisecond))

	// Blocks until shutdown drains the pool
	consumer.Run(ctx, poolSize)
	logging.Info("Pipeline stopped")
}

func setupRouter() *mux.Router {
	r := mux.NewRouter()
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")
	r.HandleFunc("/healthz", healthCheck).Methods("GET")
	r.HandleFunc("/livez", healthCheck).Methods("GET")
	return r
}

func healthCheck(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"status":    "ok",
		"version":   version,
		"buildTime": buildTime,
	})
}

// sweepTempLoop periodically removes scratch files abandoned by
// crashed workers.
func sweepTempLoop(ctx context.Context, cfg *config.Config) {
	interval := cfg.TempSweepInterval.Std()
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := pipeline.SweepTemp(cfg.TempDir, cfg.TempMaxAge.Std()); err != nil {
				logging.Warn("Temp sweep failed: %v", err)
			}
		}
	}
}
