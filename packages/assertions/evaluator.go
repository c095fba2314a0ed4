package assertions

import (
	"encoding/json"
	"fmt"
	"regexp"

	"github.com/abdul-hamid-achik/hitchain/packages/capture"
	"github.com/abdul-hamid-achik/hitchain/packages/core/suite"
	"github.com/abdul-hamid-achik/hitchain/packages/http"
)

// Result describes one evaluated assertion.
type Result struct {
	Type    string
	Key     string
	Pattern string
	Actual  string
	Found   bool
	Passed  bool
}

type Evaluator struct {
	response *http.Response
	logf     func(format string, args ...any)
	results  []*Result
}

// EvaluatorOption is a functional option for configuring an Evaluator.
type EvaluatorOption func(*Evaluator)

// WithLogFunc receives one line per passed assertion.
func WithLogFunc(fn func(format string, args ...any)) EvaluatorOption {
	return func(e *Evaluator) {
		e.logf = fn
	}
}

func NewEvaluator(resp *http.Response, opts ...EvaluatorOption) *Evaluator {
	e := &Evaluator{response: resp}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Evaluate checks the response against tests and returns the parsed body.
func Evaluate(tests []suite.Assertion, resp *http.Response) (any, error) {
	return NewEvaluator(resp).Evaluate(tests)
}

// Evaluate checks the status code, parses the body and runs tests in order,
// stopping at the first failure. On success it returns the parsed body.
func (e *Evaluator) Evaluate(tests []suite.Assertion) (any, error) {
	e.results = nil

	if e.response == nil || e.response.StatusCode == 0 || e.response.StatusCode >= 400 {
		code := 0
		if e.response != nil {
			code = e.response.StatusCode
		}
		return nil, &BadStatusError{Code: code}
	}

	body, err := parseBody(e.response.Body)
	if err != nil {
		return nil, err
	}

	for _, test := range tests {
		result, err := e.evaluate(test, body)
		e.results = append(e.results, result)
		if err != nil {
			return nil, err
		}
		e.log("Test(%s type) on returned value(%s) passed", test.Type, result.Actual)
	}

	return body, nil
}

// Results returns the assertions evaluated by the last Evaluate call, the
// failing one included.
func (e *Evaluator) Results() []*Result {
	return e.results
}

func (e *Evaluator) evaluate(test suite.Assertion, body any) (*Result, error) {
	result := &Result{
		Type:    test.Type,
		Key:     test.Key,
		Pattern: test.Value,
	}

	if test.Type != suite.AssertionRegexp {
		return result, &Failure{Key: test.Key, Pattern: test.Value, Err: fmt.Errorf("unsupported assertion type %q", test.Type)}
	}

	// An absent value is matched as "", so patterns such as ^$ can assert
	// that a key is missing.
	result.Actual, result.Found = capture.LookupString(body, test.Key)

	re, err := regexp.Compile(test.Value)
	if err != nil {
		return result, &Failure{Key: test.Key, Pattern: test.Value, Actual: result.Actual, Err: err}
	}

	if !re.MatchString(result.Actual) {
		return result, &Failure{Key: test.Key, Pattern: test.Value, Actual: result.Actual, Found: result.Found}
	}

	result.Passed = true
	return result, nil
}

func (e *Evaluator) log(format string, args ...any) {
	if e.logf != nil {
		e.logf(format, args...)
	}
}

// parseBody decodes text bodies as JSON. Bodies the transport already
// decoded are returned unchanged, and an empty text body becomes nil.
func parseBody(body any) (any, error) {
	var raw []byte
	switch b := body.(type) {
	case string:
		raw = []byte(b)
	case []byte:
		raw = b
	default:
		return body, nil
	}

	if len(raw) == 0 {
		return nil, nil
	}

	var parsed any
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, &BodyError{Err: err}
	}
	return parsed, nil
}
