package runner

import (
	"fmt"

	"github.com/abdul-hamid-achik/hitchain/packages/core/suite"
)

// StepError aborts a run. Err is the cause: an *http.TransportError, an
// *assertions.Failure, an *assertions.BadStatusError, an
// *assertions.BodyError, a *template.Error or a context error.
type StepError struct {
	Index     int
	Kind      suite.StepKind
	URL       string
	Attempts  int
	RequestID string
	Err       error
}

func (e *StepError) Error() string {
	msg := fmt.Sprintf("step %d (%s) failed: %v", e.Index, e.Kind, e.Err)
	if e.Attempts > 1 {
		msg = fmt.Sprintf("step %d (%s) failed after %d attempts: %v", e.Index, e.Kind, e.Attempts, e.Err)
	}
	return decorate(e.RequestID, msg)
}

func (e *StepError) Unwrap() error {
	return e.Err
}
