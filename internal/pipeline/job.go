package pipeline

// Status is the lifecycle state of a job. Completed and Failed are
// terminal; a job identifier never transitions out of them.
type Status string

const (
	// StatusPending means the job is waiting on the queue.
	StatusPending Status = "Pending"
	// StatusProcessing means a worker currently holds the job.
	StatusProcessing Status = "Processing"
	// StatusCompleted means transcoded output and thumbnail were produced.
	StatusCompleted Status = "Completed"
	// StatusFailed means the job ended with an unrecoverable error.
	StatusFailed Status = "Failed"
)

// FailureReason classifies why a job failed.
type FailureReason string

const (
	// ReasonProbeFailed covers malformed or unsupported input that
	// could not be inspected.
	ReasonProbeFailed FailureReason = "ProbeFailed"
	// ReasonUnsupportedCodec means no codec on the fallback list was
	// available on the host.
	ReasonUnsupportedCodec FailureReason = "UnsupportedCodec"
	// ReasonTranscodeTimeout means the external tool exceeded its
	// wall-clock budget and was killed.
	ReasonTranscodeTimeout FailureReason = "TranscodeTimeout"
	// ReasonTranscodeFailed means the tool reported failure for every
	// codec on the fallback list.
	ReasonTranscodeFailed FailureReason = "TranscodeFailed"
	// ReasonIoError covers filesystem and broker connectivity
	// failures.
	ReasonIoError FailureReason = "IoError"
)

// Transient reports whether the failure may succeed on redelivery.
// Transient failures are retried up to the configured attempt budget;
// permanent ones are surfaced immediately and never retried.
func (r FailureReason) Transient() bool {
	switch r {
	case ReasonTranscodeTimeout, ReasonIoError:
		return true
	}
	return false
}
