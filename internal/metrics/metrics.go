// Package metrics records ledger operation outcomes.
package metrics

import "time"

// Outcome labels used by the ledger
const (
	OutcomeSuccess  = "success"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
)

// Recorder receives ledger instrumentation
type Recorder interface {
	// ObserveOperation records one finished operation and how long it took
	ObserveOperation(operation, outcome string, duration time.Duration)
	// IncRetry counts a retried storage attempt
	IncRetry(operation string)
	// IncJournalFailure counts a ledger event that could not be published
	IncJournalFailure(sink string)
}

// NoOpRecorder discards everything
type NoOpRecorder struct{}

func (NoOpRecorder) ObserveOperation(string, string, time.Duration) {}
func (NoOpRecorder) IncRetry(string)                                {}
func (NoOpRecorder) IncJournalFailure(string)                       {}
