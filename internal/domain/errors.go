package domain

import (
	"context"
	"errors"
)

var (
	// ErrNotFound signals a missing resource (job, module result).
	ErrNotFound = errors.New("not found")
	// ErrInvalidHypothesis signals an empty or unusable hypothesis.
	ErrInvalidHypothesis = errors.New("invalid hypothesis")
	// ErrClassifierError signals a text-classification provider failure.
	ErrClassifierError = errors.New("classifier error")
	// ErrSourceUnavailable signals an irrecoverable item-source failure.
	ErrSourceUnavailable = errors.New("item source unavailable")
	// ErrSampleTooSmall signals a coverage sample under the prediction floor.
	ErrSampleTooSmall = errors.New("sample too small")
	// ErrRunFailed signals a pipeline run already in the failed state.
	ErrRunFailed = errors.New("research run failed")
)

// JobStatus is the closed set of persisted job states.
type JobStatus string

// Job statuses.
const (
	JobPending    JobStatus = "pending"
	JobProcessing JobStatus = "processing"
	JobCompleted  JobStatus = "completed"
	JobFailed     JobStatus = "failed"
)

// ErrorSource is the machine-readable tag recorded on a terminal failure so
// an external compensation process can classify it.
type ErrorSource string

// Error source tags.
const (
	SourceNone           ErrorSource = ""
	SourceDatabase       ErrorSource = "database"
	SourceTimeout        ErrorSource = "timeout"
	SourceClassification ErrorSource = "classification"
	SourceFetch          ErrorSource = "fetch"
	SourceUnknown        ErrorSource = "unknown"
)

// ClassifyErrorSource maps a pipeline error onto its source tag.
func ClassifyErrorSource(err error) ErrorSource {
	switch {
	case err == nil:
		return SourceNone
	case errors.Is(err, context.DeadlineExceeded):
		return SourceTimeout
	case errors.Is(err, ErrClassifierError):
		return SourceClassification
	case errors.Is(err, ErrSourceUnavailable):
		return SourceFetch
	default:
		return SourceUnknown
	}
}
