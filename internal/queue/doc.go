// Package queue implements the durable work queue on redis lists.
//
// The layout follows the reliable-queue pattern: BLMOVE shifts a
// payload from the pending list to a processing list while a worker
// holds it, LREM acknowledges it, and exhausted or undecodable
// messages land on a dead-letter list. Per-job bookkeeping (status,
// attempt count, diagnostics) lives on a job:<id> hash so it survives
// redelivery and worker restarts.
package queue
