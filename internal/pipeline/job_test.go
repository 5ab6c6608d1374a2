package pipeline

import "testing"

func TestFailureReasonTransient(t *testing.T) {
	tests := []struct {
		reason    FailureReason
		transient bool
	}{
		{ReasonProbeFailed, false},
		{ReasonUnsupportedCodec, false},
		{ReasonTranscodeTimeout, true},
		{ReasonTranscodeFailed, false},
		{ReasonIoError, true},
		{FailureReason("SomethingNew"), false},
	}

	for _, tt := range tests {
		if got := tt.reason.Transient(); got != tt.transient {
			t.Errorf("%s.Transient() = %v, want %v", tt.reason, got, tt.transient)
		}
	}
}
