package analyzer

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Phase is the lifecycle position of the latest submission.
type Phase string

const (
	PhaseIdle      Phase = "idle"
	PhasePending   Phase = "pending"
	PhaseSucceeded Phase = "succeeded"
	PhaseFailed    Phase = "failed"
)

// FailureReason classifies a Failed state.
type FailureReason string

const (
	ReasonTransport FailureReason = "transport_error"
	ReasonMalformed FailureReason = "malformed_response"
)

// State is a snapshot of a controller. Result is set only when Phase is
// PhaseSucceeded; Reason and Err only when Phase is PhaseFailed.
type State struct {
	Phase        Phase
	Seq          uint64
	SubmissionID uuid.UUID
	ImageURL     string
	Result       *Result
	Reason       FailureReason
	Err          error
	SubmittedAt  time.Time
	SettledAt    time.Time
}

// Settled reports whether the submission has reached a terminal phase.
func (s State) Settled() bool {
	return s.Phase == PhaseSucceeded || s.Phase == PhaseFailed
}

func reasonFor(err error) FailureReason {
	if errors.Is(err, ErrMalformedResponse) {
		return ReasonMalformed
	}
	return ReasonTransport
}
