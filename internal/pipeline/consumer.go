package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"media-pipeline/internal/geometry"
	"media-pipeline/internal/logging"
	"media-pipeline/internal/metrics"
	"media-pipeline/internal/probe"
	"media-pipeline/internal/queue"
	"media-pipeline/internal/transcode"
)

// Prober inspects an input file and returns its media descriptor.
type Prober interface {
	Probe(ctx context.Context, path string) (*probe.Descriptor, error)
}

// Thumbnailer extracts a preview image from an input file.
type Thumbnailer interface {
	Extract(ctx context.Context, inputPath string, duration float64, outputPath string) error
}

// Options configures the consumer.
type Options struct {
	ProcessedDir string
	ThumbnailDir string

	MaxWidth  int
	MaxHeight int

	VideoCodecs  []string // ordered fallback list
	AudioCodecs  []string // ordered fallback list
	CRF          int
	Preset       string
	AudioBitrate string

	MaxAttempts           int
	DeleteOriginal        bool
	ThumbnailFailureFatal bool
	DequeueTimeout        time.Duration
}

// Consumer drives queued jobs through probe, geometry resolution,
// transcode, and thumbnail extraction, then acknowledges or reroutes
// the message based on outcome.
type Consumer struct {
	queue    *queue.Queue
	prober   Prober
	strategy transcode.Strategy
	thumbs   Thumbnailer
	opts     Options
}

// New creates a Consumer.
func New(q *queue.Queue, prober Prober, strategy transcode.Strategy, thumbs Thumbnailer, opts Options) *Consumer {
	if opts.DequeueTimeout <= 0 {
		opts.DequeueTimeout = 5 * time.Second
	}
	return &Consumer{
		queue:    q,
		prober:   prober,
		strategy: strategy,
		thumbs:   thumbs,
		opts:     opts,
	}
}

// Run starts the worker pool and blocks until ctx is cancelled and all
// in-flight jobs have drained. Cancellation stops intake only; a job
// already dequeued runs to completion so its message can be settled
// rather than left for redelivery.
func (c *Consumer) Run(ctx context.Context, workers int) {
	logging.Info("Starting %d pipeline workers", workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			c.runWorker(ctx, id)
		}(i)
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		c.watchQueueDepth(ctx)
	}()

	wg.Wait()
	logging.Info("All pipeline workers stopped")
}

func (c *Consumer) runWorker(ctx context.Context, id int) {
	logging.Debug("Worker %d started", id)

	for {
		select {
		case <-ctx.Done():
			logging.Debug("Worker %d stopping", id)
			return
		default:
		}

		d, err := c.queue.Dequeue(ctx, c.opts.DequeueTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logging.Error("Worker %d dequeue failed: %v", id, err)
			time.Sleep(time.Second)
			continue
		}
		if d == nil {
			continue
		}

		// Jobs run on a fresh context: shutdown stops intake but lets
		// the current job settle its message.
		c.handle(context.Background(), d)
	}
}

func (c *Consumer) watchQueueDepth(ctx context.Context) {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if depth, err := c.queue.PendingDepth(ctx); err == nil {
				metrics.QueueDepth.Set(float64(depth))
			}
		}
	}
}

// handle settles one delivered message: process it, then ack, retry,
// or dead-letter based on the outcome.
func (c *Consumer) handle(ctx context.Context, d *queue.Delivery) {
	msg := d.Message
	start := time.Now()

	metrics.JobsInFlight.Inc()
	defer metrics.JobsInFlight.Dec()

	attempt, err := c.queue.IncrAttempts(ctx, msg.JobID)
	if err != nil {
		// Broker trouble; leave the message on the processing list
		// for recovery rather than guessing at state.
		logging.Error("Job %s: attempt tracking failed: %v", msg.JobID, err)
		return
	}

	logging.Info("Job %s: processing (attempt %d/%d, input %s)", msg.JobID, attempt, c.opts.MaxAttempts, msg.InputPath)
	if err := c.queue.SetStatus(ctx, msg.JobID, string(StatusProcessing), nil); err != nil {
		logging.Warn("Job %s: status update failed: %v", msg.JobID, err)
	}

	result, failure := c.process(ctx, msg)
	if failure == nil {
		c.finalize(ctx, d, result, time.Since(start))
		return
	}

	c.fail(ctx, d, failure, attempt)
}

type jobResult struct {
	OutputPath    string
	ThumbnailPath string
	Width         int
	Height        int
}

type jobFailure struct {
	Reason FailureReason
	Err    error
}

// process runs the probe -> resolve -> transcode -> thumbnail sequence
// and classifies any failure.
func (c *Consumer) process(ctx context.Context, msg queue.Message) (*jobResult, *jobFailure) {
	probeStart := time.Now()
	desc, err := c.prober.Probe(ctx, msg.InputPath)
	metrics.StageDuration.WithLabelValues("probe").Observe(time.Since(probeStart).Seconds())
	if err != nil {
		return nil, &jobFailure{Reason: ReasonProbeFailed, Err: err}
	}

	plan := geometry.Resolve(desc.Width, desc.Height, desc.Rotation, c.opts.MaxWidth, c.opts.MaxHeight)
	logging.Debug("Job %s: storage %dx%d rotation %d -> display %dx%d target %dx%d",
		msg.JobID, desc.Width, desc.Height, desc.Rotation,
		plan.DisplayWidth, plan.DisplayHeight, plan.TargetWidth, plan.TargetHeight)

	outputPath := filepath.Join(c.opts.ProcessedDir, msg.JobID+".mp4")

	transcodeStart := time.Now()
	failure := c.transcodeWithFallback(ctx, msg, plan, outputPath)
	metrics.StageDuration.WithLabelValues("transcode").Observe(time.Since(transcodeStart).Seconds())
	if failure != nil {
		return nil, failure
	}

	thumbPath := filepath.Join(c.opts.ThumbnailDir, msg.JobID+".jpg")
	thumbStart := time.Now()
	err = c.thumbs.Extract(ctx, msg.InputPath, desc.Duration, thumbPath)
	metrics.StageDuration.WithLabelValues("thumbnail").Observe(time.Since(thumbStart).Seconds())
	if err != nil {
		if c.opts.ThumbnailFailureFatal {
			return nil, &jobFailure{Reason: ReasonIoError, Err: fmt.Errorf("thumbnail: %w", err)}
		}
		logging.Warn("Job %s: thumbnail extraction failed (non-fatal): %v", msg.JobID, err)
		metrics.ThumbnailFailuresTotal.Inc()
		thumbPath = ""
	}

	return &jobResult{
		OutputPath:    outputPath,
		ThumbnailPath: thumbPath,
		Width:         plan.TargetWidth,
		Height:        plan.TargetHeight,
	}, nil
}

// transcodeWithFallback walks the ordered codec lists. An unavailable
// encoder advances to the next fallback; a timeout aborts immediately
// as transient; anything else counts as a tool failure for that codec.
func (c *Consumer) transcodeWithFallback(ctx context.Context, msg queue.Message, plan geometry.Plan, outputPath string) *jobFailure {
	var lastErr error
	allUnknown := true

	for _, videoCodec := range c.opts.VideoCodecs {
		audioIdx := 0
		for {
			audioCodec := c.opts.AudioCodecs[audioIdx]
			settings := transcode.Settings{
				VideoCodec:   videoCodec,
				AudioCodec:   audioCodec,
				CRF:          c.opts.CRF,
				Preset:       c.opts.Preset,
				AudioBitrate: c.opts.AudioBitrate,
			}

			err := c.strategy.Transcode(ctx, msg.InputPath, plan, settings, outputPath)
			if err == nil {
				return nil
			}
			lastErr = err

			if errors.Is(err, transcode.ErrTimeout) {
				return &jobFailure{Reason: ReasonTranscodeTimeout, Err: err}
			}

			if transcode.IsUnknownEncoder(err) {
				// ffmpeg quotes the rejected encoder ("Unknown encoder
				// 'aac'"); match the quoted name so 'libfdk_aac' never
				// passes for 'aac'.
				if audioIdx < len(c.opts.AudioCodecs)-1 && strings.Contains(transcode.Diagnostics(err), "'"+audioCodec+"'") {
					logging.Warn("Job %s: audio encoder %s unavailable, trying fallback", msg.JobID, audioCodec)
					audioIdx++
					continue
				}
				logging.Warn("Job %s: encoder %s unavailable, trying fallback", msg.JobID, videoCodec)
				break
			}

			allUnknown = false
			logging.Warn("Job %s: transcode with %s failed: %v", msg.JobID, videoCodec, err)
			break
		}
	}

	if allUnknown {
		return &jobFailure{Reason: ReasonUnsupportedCodec, Err: fmt.Errorf("no configured codec available: %w", lastErr)}
	}
	return &jobFailure{Reason: ReasonTranscodeFailed, Err: fmt.Errorf("codec fallback list exhausted: %w", lastErr)}
}

func (c *Consumer) finalize(ctx context.Context, d *queue.Delivery, result *jobResult, elapsed time.Duration) {
	msg := d.Message

	if c.opts.DeleteOriginal {
		if err := os.Remove(msg.InputPath); err != nil {
			logging.Warn("Job %s: failed to delete original %s: %v", msg.JobID, msg.InputPath, err)
		}
	}

	if err := c.queue.SetStatus(ctx, msg.JobID, string(StatusCompleted), map[string]interface{}{
		"output_path":    result.OutputPath,
		"thumbnail_path": result.ThumbnailPath,
		"width":          result.Width,
		"height":         result.Height,
	}); err != nil {
		logging.Warn("Job %s: status update failed: %v", msg.JobID, err)
	}

	if err := c.queue.PublishCompletion(ctx, queue.Completion{
		JobID:          msg.JobID,
		CorrelationKey: msg.CorrelationKey,
		Status:         string(StatusCompleted),
		OutputPath:     result.OutputPath,
		ThumbnailPath:  result.ThumbnailPath,
		Width:          result.Width,
		Height:         result.Height,
	}); err != nil {
		logging.Error("Job %s: completion publish failed: %v", msg.JobID, err)
	}

	if err := c.queue.Ack(ctx, d); err != nil {
		logging.Error("Job %s: ack failed: %v", msg.JobID, err)
	}

	metrics.JobsTotal.WithLabelValues("completed").Inc()
	metrics.JobDuration.Observe(elapsed.Seconds())
	logging.Info("Job %s: completed in %v (%dx%d)", msg.JobID, elapsed.Round(time.Millisecond), result.Width, result.Height)
}

func (c *Consumer) fail(ctx context.Context, d *queue.Delivery, failure *jobFailure, attempt int64) {
	msg := d.Message
	metrics.JobFailuresTotal.WithLabelValues(string(failure.Reason)).Inc()

	if failure.Reason.Transient() && attempt < int64(c.opts.MaxAttempts) {
		logging.Warn("Job %s: %s (attempt %d/%d), redelivering: %v",
			msg.JobID, failure.Reason, attempt, c.opts.MaxAttempts, failure.Err)
		if err := c.queue.SetStatus(ctx, msg.JobID, string(StatusPending), map[string]interface{}{
			"last_error": failure.Err.Error(),
		}); err != nil {
			logging.Warn("Job %s: status update failed: %v", msg.JobID, err)
		}
		if err := c.queue.Retry(ctx, d); err != nil {
			logging.Error("Job %s: retry failed: %v", msg.JobID, err)
			return
		}
		metrics.JobRetriesTotal.Inc()
		return
	}

	if failure.Reason.Transient() {
		logging.Error("Job %s: %s with retry budget exhausted (%d attempts), dead-lettering: %v",
			msg.JobID, failure.Reason, attempt, failure.Err)
		diagnostics := transcode.Diagnostics(failure.Err)
		if err := c.queue.DeadLetter(ctx, d, string(failure.Reason), diagnostics); err != nil {
			logging.Error("Job %s: dead letter failed: %v", msg.JobID, err)
			return
		}
		metrics.JobsDeadLetteredTotal.Inc()
	} else {
		logging.Error("Job %s: %s (permanent): %v", msg.JobID, failure.Reason, failure.Err)
		if err := c.queue.Ack(ctx, d); err != nil {
			logging.Error("Job %s: ack failed: %v", msg.JobID, err)
			return
		}
	}

	if err := c.queue.SetStatus(ctx, msg.JobID, string(StatusFailed), map[string]interface{}{
		"failure_reason": string(failure.Reason),
		"last_error":     failure.Err.Error(),
	}); err != nil {
		logging.Warn("Job %s: status update failed: %v", msg.JobID, err)
	}

	if err := c.queue.PublishCompletion(ctx, queue.Completion{
		JobID:          msg.JobID,
		CorrelationKey: msg.CorrelationKey,
		Status:         string(StatusFailed),
		FailureReason:  string(failure.Reason),
	}); err != nil {
		logging.Error("Job %s: completion publish failed: %v", msg.JobID, err)
	}

	metrics.JobsTotal.WithLabelValues("failed").Inc()
}
