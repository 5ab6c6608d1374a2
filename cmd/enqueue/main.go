// Command enqueue publishes a transcoding job for a media file. It is
// the manual stand-in for the upload service that normally produces
// jobs, useful for local testing and for reprocessing a file by hand.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"media-pipeline/internal/config"
	"media-pipeline/internal/queue"
)

func main() {
	var (
		configPath     = flag.String("config", os.Getenv("CONFIG_PATH"), "path to YAML config file")
		inputPath      = flag.String("input", "", "path to the media file to transcode (required)")
		correlationKey = flag.String("correlation-key", "", "opaque key echoed back on the completion signal")
		mediaKind      = flag.String("kind", "video", "media kind hint")
		wait           = flag.Duration("wait", 0, "block up to this long for the completion signal (0 to return immediately)")
	)
	flag.Parse()

	if *inputPath == "" {
		flag.Usage()
		os.Exit(2)
	}

	absInput, err := filepath.Abs(*inputPath)
	if err != nil {
		fatalf("Bad input path: %v", err)
	}
	if _, err := os.Stat(absInput); err != nil {
		fatalf("Input not readable: %v", err)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fatalf("Configuration error: %v", err)
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer client.Close()

	ctx := context.Background()
	q := queue.New(client, queue.DefaultKeys(cfg.QueuePrefix))

	msg := queue.Message{
		JobID:          uuid.NewString(),
		CorrelationKey: *correlationKey,
		InputPath:      absInput,
		MediaKind:      *mediaKind,
		EnqueuedAt:     time.Now().UTC(),
	}
	if err := q.Enqueue(ctx, msg); err != nil {
		fatalf("Enqueue failed: %v", err)
	}
	fmt.Printf("Enqueued job %s for %s\n", msg.JobID, absInput)

	if *wait > 0 {
		waitForCompletion(ctx, client, cfg, msg.JobID, *wait)
	}
}

// waitForCompletion polls the job hash until it reaches a terminal
// status. The completions list is left alone: it belongs to the
// producing service, and popping from it here would steal signals for
// other jobs.
func waitForCompletion(ctx context.Context, client *redis.Client, cfg *config.Config, jobID string, timeout time.Duration) {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		status, err := client.HGet(ctx, "job:"+jobID, "status").Result()
		if err == nil && (status == "Completed" || status == "Failed") {
			out, _ := client.HGet(ctx, "job:"+jobID, "output_path").Result()
			reason, _ := client.HGet(ctx, "job:"+jobID, "failure_reason").Result()
			if status == "Completed" {
				fmt.Printf("Job %s completed: %s\n", jobID, out)
				return
			}
			fmt.Printf("Job %s failed: %s\n", jobID, reason)
			os.Exit(1)
		}
		time.Sleep(time.Second)
	}
	fmt.Printf("Job %s still in progress after %v\n", jobID, timeout)
	os.Exit(1)
}

func fatalf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
