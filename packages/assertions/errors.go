package assertions

import "fmt"

// BadStatusError is returned when the response has no status code or a
// status code of 400 or above.
type BadStatusError struct {
	Code int
}

func (e *BadStatusError) Error() string {
	return fmt.Sprintf("response status code: %d", e.Code)
}

// BodyError is returned when a text body cannot be parsed as JSON.
type BodyError struct {
	Err error
}

func (e *BodyError) Error() string {
	return fmt.Sprintf("response body is not valid JSON: %v", e.Err)
}

func (e *BodyError) Unwrap() error {
	return e.Err
}

// Failure is an assertion that did not hold. Err is set when the assertion
// could not be evaluated at all, for example an invalid pattern.
type Failure struct {
	Key     string
	Pattern string
	Actual  string
	Found   bool
	Err     error
}

func (e *Failure) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("test failed: %q for regexp %q: %v", e.Key, e.Pattern, e.Err)
	}
	return fmt.Sprintf("test failed: %q for regexp %q: response returned %q", e.Key, e.Pattern, e.Actual)
}

func (e *Failure) Unwrap() error {
	return e.Err
}
