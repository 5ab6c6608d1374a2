package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"media-pipeline/internal/logging"
)

// Message is the work item published by the upload API. CorrelationKey
// is opaque to the pipeline and is echoed back on the completion
// signal unchanged.
type Message struct {
	JobID          string    `json:"jobId"`
	CorrelationKey string    `json:"correlationKey"`
	InputPath      string    `json:"inputPath"`
	MediaKind      string    `json:"mediaKind"`
	EnqueuedAt     time.Time `json:"enqueuedAt"`
}

// Completion is the signal emitted once a job reaches a terminal state.
type Completion struct {
	JobID          string `json:"jobId"`
	CorrelationKey string `json:"correlationKey"`
	Status         string `json:"status"`
	OutputPath     string `json:"outputPath,omitempty"`
	ThumbnailPath  string `json:"thumbnailPath,omitempty"`
	Width          int    `json:"width,omitempty"`
	Height         int    `json:"height,omitempty"`
	FailureReason  string `json:"failureReason,omitempty"`
}

// Delivery pairs a decoded message with the raw payload needed to ack
// or reroute it.
type Delivery struct {
	Message Message
	raw     string
}

// Keys names the redis lists backing the queue.
type Keys struct {
	Pending     string
	Processing  string
	DeadLetter  string
	Completions string
}

// DefaultKeys returns the standard key layout under the given prefix.
func DefaultKeys(prefix string) Keys {
	if prefix == "" {
		prefix = "media"
	}
	return Keys{
		Pending:     prefix + ":jobs:pending",
		Processing:  prefix + ":jobs:processing",
		DeadLetter:  prefix + ":jobs:dead",
		Completions: prefix + ":jobs:completed",
	}
}

// Queue is a redis-backed reliable work queue. A dequeue atomically
// moves the payload from the pending list onto a processing list, so a
// message is delivered to at most one worker at a time while
// unacknowledged; entries stranded on the processing list by a crashed
// worker are requeued by RecoverStale.
type Queue struct {
	client *redis.Client
	keys   Keys
}

// New creates a Queue over an established redis client.
func New(client *redis.Client, keys Keys) *Queue {
	return &Queue{client: client, keys: keys}
}

func jobKey(jobID string) string {
	return "job:" + jobID
}

// Enqueue publishes a message onto the pending list and records the
// job's initial state.
func (q *Queue) Enqueue(ctx context.Context, msg Message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	if err := q.client.HSet(ctx, jobKey(msg.JobID),
		"status", "Pending",
		"enqueued_at", msg.EnqueuedAt.UTC().Format(time.RFC3339Nano),
	).Err(); err != nil {
		return fmt.Errorf("record job state: %w", err)
	}

	if err := q.client.RPush(ctx, q.keys.Pending, payload).Err(); err != nil {
		return fmt.Errorf("enqueue job: %w", err)
	}

	return nil
}

// Dequeue blocks up to timeout for the next message, moving it onto
// the processing list. Returns (nil, nil) when the wait times out with
// nothing available.
func (q *Queue) Dequeue(ctx context.Context, timeout time.Duration) (*Delivery, error) {
	raw, err := q.client.BLMove(ctx, q.keys.Pending, q.keys.Processing, "LEFT", "RIGHT", timeout).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("dequeue: %w", err)
	}

	var msg Message
	if err := json.Unmarshal([]byte(raw), &msg); err != nil {
		// Undecodable payloads can never be processed; park them for
		// operator inspection instead of looping forever.
		logging.Error("Dropping undecodable queue payload to dead letter: %v", err)
		if _, perr := q.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.LRem(ctx, q.keys.Processing, 1, raw)
			pipe.RPush(ctx, q.keys.DeadLetter, raw)
			return nil
		}); perr != nil {
			logging.Error("Failed to park undecodable payload: %v", perr)
		}
		return nil, nil
	}

	return &Delivery{Message: msg, raw: raw}, nil
}

// Ack removes a delivered message from the processing list, completing
// its queue lifecycle.
func (q *Queue) Ack(ctx context.Context, d *Delivery) error {
	if err := q.client.LRem(ctx, q.keys.Processing, 1, d.raw).Err(); err != nil {
		return fmt.Errorf("ack: %w", err)
	}
	return nil
}

// Retry returns a delivered message to the pending list for
// redelivery. The remove and the repush run in one MULTI/EXEC so a
// broker hiccup between them cannot lose the message.
func (q *Queue) Retry(ctx context.Context, d *Delivery) error {
	_, err := q.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LRem(ctx, q.keys.Processing, 1, d.raw)
		pipe.RPush(ctx, q.keys.Pending, d.raw)
		return nil
	})
	if err != nil {
		return fmt.Errorf("requeue: %w", err)
	}
	return nil
}

// DeadLetter parks a delivered message on the dead-letter list and
// attaches diagnostic context to the job hash for operator triage. The
// whole move runs in one MULTI/EXEC.
func (q *Queue) DeadLetter(ctx context.Context, d *Delivery, reason, diagnostics string) error {
	fields := map[string]interface{}{
		"dead_lettered_at": time.Now().UTC().Format(time.RFC3339Nano),
		"failure_reason":   reason,
	}
	if diagnostics != "" {
		if len(diagnostics) > 4096 {
			diagnostics = diagnostics[len(diagnostics)-4096:]
		}
		fields["diagnostics"] = diagnostics
	}

	_, err := q.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LRem(ctx, q.keys.Processing, 1, d.raw)
		pipe.RPush(ctx, q.keys.DeadLetter, d.raw)
		pipe.HSet(ctx, jobKey(d.Message.JobID), fields)
		return nil
	})
	if err != nil {
		return fmt.Errorf("dead letter: %w", err)
	}
	return nil
}

// IncrAttempts bumps and returns the processing-attempt count for a
// job. The count lives on the job hash keyed by job id, not on the
// delivery, so it survives worker restarts and redeliveries.
func (q *Queue) IncrAttempts(ctx context.Context, jobID string) (int64, error) {
	n, err := q.client.HIncrBy(ctx, jobKey(jobID), "attempts", 1).Result()
	if err != nil {
		return 0, fmt.Errorf("increment attempts: %w", err)
	}
	return n, nil
}

// SetStatus updates the job hash with the given status and any extra
// fields.
func (q *Queue) SetStatus(ctx context.Context, jobID, status string, extra map[string]interface{}) error {
	fields := map[string]interface{}{
		"status":     status,
		"updated_at": time.Now().UTC().Format(time.RFC3339Nano),
	}
	for k, v := range extra {
		fields[k] = v
	}
	if err := q.client.HSet(ctx, jobKey(jobID), fields).Err(); err != nil {
		return fmt.Errorf("set status: %w", err)
	}
	return nil
}

// PublishCompletion emits the terminal signal consumed by the
// producer's domain.
func (q *Queue) PublishCompletion(ctx context.Context, c Completion) error {
	payload, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal completion: %w", err)
	}
	if err := q.client.RPush(ctx, q.keys.Completions, payload).Err(); err != nil {
		return fmt.Errorf("publish completion: %w", err)
	}
	return nil
}

// RecoverStale moves every entry on the processing list back to the
// pending list. Entries there belong to workers that died mid-job, so
// this must only run while no other worker instance is consuming, i.e.
// during deployment startup.
func (q *Queue) RecoverStale(ctx context.Context) (int, error) {
	recovered := 0
	for {
		_, err := q.client.LMove(ctx, q.keys.Processing, q.keys.Pending, "LEFT", "RIGHT").Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return recovered, nil
			}
			return recovered, fmt.Errorf("recover stale: %w", err)
		}
		recovered++
	}
}

// PendingDepth reports the number of messages waiting on the pending
// list.
func (q *Queue) PendingDepth(ctx context.Context) (int64, error) {
	n, err := q.client.LLen(ctx, q.keys.Pending).Result()
	if err != nil {
		return 0, fmt.Errorf("pending depth: %w", err)
	}
	return n, nil
}
