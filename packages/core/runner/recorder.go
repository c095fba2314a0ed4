package runner

import (
	"time"

	"github.com/abdul-hamid-achik/hitchain/packages/assertions"
	"github.com/abdul-hamid-achik/hitchain/packages/core/suite"
)

// AttemptRecord describes one HTTP exchange of a request step.
type AttemptRecord struct {
	Step       int
	Attempt    int
	Method     string
	URL        string
	StatusCode int
	Duration   time.Duration
	Err        error
}

// StepRecord describes the final outcome of a step.
type StepRecord struct {
	Index      int
	Kind       suite.StepKind
	Method     string
	URL        string
	Attempts   int
	Duration   time.Duration
	Passed     bool
	Assertions []*assertions.Result
	Err        error
}

// Recorder observes a run. Implementations shared between concurrent runs
// must be safe for concurrent use.
type Recorder interface {
	RecordAttempt(AttemptRecord)
	RecordStep(StepRecord)
}

// Recorders fans records out to several recorders.
type Recorders []Recorder

func (rs Recorders) RecordAttempt(rec AttemptRecord) {
	for _, r := range rs {
		r.RecordAttempt(rec)
	}
}

func (rs Recorders) RecordStep(rec StepRecord) {
	for _, r := range rs {
		r.RecordStep(rec)
	}
}

// StepLog collects step records in order. It is meant for a single run.
type StepLog struct {
	Steps []StepRecord
}

func (l *StepLog) RecordAttempt(AttemptRecord) {}

func (l *StepLog) RecordStep(rec StepRecord) {
	l.Steps = append(l.Steps, rec)
}
