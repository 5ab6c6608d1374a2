// Package pipeline contains the job consumer: a pool of workers that
// pull transcoding jobs off the durable queue and drive each one
// through probe, geometry resolution, transcode, and thumbnail
// extraction before settling the queue message.
//
// Each worker is single-threaded through that sequence; parallelism
// comes from running multiple workers against the shared queue.
// Failures are classified as permanent (surfaced immediately, never
// retried) or transient (redelivered up to the attempt budget, then
// dead-lettered with diagnostics).
package pipeline
