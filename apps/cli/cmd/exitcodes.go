package cmd

import (
	"errors"
	"fmt"

	"github.com/abdul-hamid-achik/hitchain/packages/http"
)

// Exit codes for hitchain CLI
const (
	// ExitSuccess indicates all suites passed
	ExitSuccess = 0

	// ExitTestFailure indicates one or more suites failed
	ExitTestFailure = 1

	// ExitParseError indicates a suite could not be read, parsed or validated
	ExitParseError = 2

	// ExitConfigError indicates a configuration error
	ExitConfigError = 3

	// ExitNetworkError indicates a suite aborted on a transport error
	ExitNetworkError = 4

	// ExitUsageError indicates invalid CLI usage
	ExitUsageError = 64
)

// ExitError carries the process exit code out of a command. Reported is set
// when the error was already printed by a formatter.
type ExitError struct {
	Code     int
	Err      error
	Reported bool
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("exit status %d", e.Code)
	}
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// runExitCode classifies the error of a finished suite run.
func runExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var terr *http.TransportError
	if errors.As(err, &terr) {
		return ExitNetworkError
	}
	return ExitTestFailure
}

// worseExit merges two exit codes: config errors outrank parse errors, then
// network errors, then test failures.
func worseExit(a, b int) int {
	rank := func(code int) int {
		switch code {
		case ExitConfigError:
			return 4
		case ExitParseError:
			return 3
		case ExitNetworkError:
			return 2
		case ExitTestFailure:
			return 1
		}
		return 0
	}
	if rank(b) > rank(a) {
		return b
	}
	return a
}
