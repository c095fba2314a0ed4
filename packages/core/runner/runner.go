package runner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/abdul-hamid-achik/hitchain/packages/assertions"
	"github.com/abdul-hamid-achik/hitchain/packages/builtin"
	"github.com/abdul-hamid-achik/hitchain/packages/core/suite"
	"github.com/abdul-hamid-achik/hitchain/packages/core/template"
	"github.com/abdul-hamid-achik/hitchain/packages/http"
)

// LogFunc receives progress lines such as "Running request to ...".
type LogFunc func(format string, args ...any)

type Runner struct {
	sender       http.Sender
	interpolator *template.Interpolator
	config       *Config
}

type Config struct {
	Timeout        time.Duration
	NoRedirects    bool
	MaxRedirects   int
	Insecure       bool
	Proxy          string
	DefaultHeaders map[string]string
	// RateLimit caps outgoing requests per second, retries included.
	RateLimit float64

	// Silent suppresses progress lines.
	Silent bool
	// RequestID prefixes progress lines and step errors.
	RequestID string
	Log       LogFunc

	// Sender replaces the HTTP client built from the options above.
	Sender   http.Sender
	Recorder Recorder
	// Functions replaces the builtin template functions.
	Functions *builtin.Registry
}

func NewRunner(cfg *Config) *Runner {
	if cfg == nil {
		cfg = &Config{}
	}

	sender := cfg.Sender
	if sender == nil {
		clientOpts := []http.ClientOption{
			http.WithFollowRedirects(!cfg.NoRedirects),
			http.WithMaxRedirects(cfg.MaxRedirects),
			http.WithValidateSSL(!cfg.Insecure),
			http.WithDefaultHeaders(cfg.DefaultHeaders),
			http.WithRateLimit(cfg.RateLimit),
		}
		if cfg.Timeout > 0 {
			clientOpts = append(clientOpts, http.WithTimeout(cfg.Timeout))
		}
		if cfg.Proxy != "" {
			clientOpts = append(clientOpts, http.WithProxy(cfg.Proxy))
		}
		sender = http.NewClient(clientOpts...)
	}

	interpolator := template.New()
	if cfg.Functions != nil {
		interpolator = template.NewWithRegistry(cfg.Functions)
	}

	return &Runner{
		sender:       sender,
		interpolator: interpolator,
		config:       cfg,
	}
}

// RunSuite runs the steps of s.
func (r *Runner) RunSuite(ctx context.Context, s *suite.Suite) (*Statistics, error) {
	return r.Run(ctx, s.Steps)
}

// Run executes steps one after another. Each call owns its response history
// and statistics, so a Runner may serve several runs at once.
//
// The returned statistics are never nil and always carry EndTime. When a
// step fails for good, the remaining steps are not executed, the error is a
// *StepError, and the statistics cover only the steps that were reached.
func (r *Runner) Run(ctx context.Context, steps []suite.Step) (*Statistics, error) {
	run := &run{
		runner: r,
		stats:  newStatistics(),
	}

	err := run.execute(ctx, steps)
	run.stats.EndTime = time.Now().UnixMilli()
	return run.stats, err
}

// run is the state of a single Run call.
type run struct {
	runner  *Runner
	history template.History
	stats   *Statistics
}

func (rn *run) execute(ctx context.Context, steps []suite.Step) error {
	for i, step := range steps {
		if err := ctx.Err(); err != nil {
			return rn.stepError(i, step, 0, err)
		}

		var err error
		switch s := step.(type) {
		case *suite.RequestStep:
			err = rn.processRequest(ctx, i, s)
		case *suite.DelayStep:
			err = rn.processDelay(ctx, i, s)
		default:
			err = rn.stepError(i, step, 0, fmt.Errorf("unsupported step %T", step))
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (rn *run) processRequest(ctx context.Context, index int, step *suite.RequestStep) error {
	rn.stats.TestsRun++
	start := time.Now()

	req, tests, err := rn.resolve(step)
	if err != nil {
		rn.stats.TestsFail++
		rn.recordStep(StepRecord{Index: index, Kind: suite.KindRequest, Method: step.Options.Method, URL: step.Options.URL, Err: err})
		return rn.stepError(index, step, 0, err)
	}

	// The slot is reserved before the first attempt so that it keeps the
	// position of this step in the history whatever happens to the request.
	slot := rn.history.Len()
	rn.history = append(rn.history, nil)

	rn.log("Running request to %s", req.URL)

	record := StepRecord{Index: index, Kind: suite.KindRequest, Method: req.Method, URL: req.URL}
	for attempt := 1; ; attempt++ {
		body, results, err := rn.attempt(ctx, index, attempt, slot, req, tests)
		record.Attempts = attempt
		record.Assertions = results
		if err == nil {
			rn.history[slot] = body
			rn.stats.TestsSuccess++
			record.Passed = true
			record.Duration = time.Since(start)
			rn.recordStep(record)
			return nil
		}

		if attempt > step.Retries || ctx.Err() != nil {
			rn.stats.TestsFail++
			record.Err = err
			record.Duration = time.Since(start)
			rn.recordStep(record)
			return rn.stepError(index, step, attempt, err)
		}

		rn.log("Retrying request to %s (retry %d)", req.URL, attempt)
	}
}

// attempt performs one HTTP exchange and evaluates tests on its response.
// Every received body is written to the reserved slot, so after a final
// failure the slot holds the body of the last attempt.
func (rn *run) attempt(ctx context.Context, index, attempt, slot int, req *http.Request, tests []suite.Assertion) (any, []*assertions.Result, error) {
	rec := AttemptRecord{Step: index, Attempt: attempt, Method: req.Method, URL: req.URL}

	resp, err := rn.runner.sender.Send(ctx, req)
	if err != nil {
		var terr *http.TransportError
		if !errors.As(err, &terr) {
			err = &http.TransportError{Method: req.Method, URL: req.URL, Err: err}
		}
		rec.Err = err
		rn.recordAttempt(rec)
		return nil, nil, err
	}
	rec.StatusCode = resp.StatusCode
	rec.Duration = resp.Duration

	rn.log("Got response of request to %s", req.URL)
	rn.history[slot] = resp.Body

	rn.log("Running tests on the response...")
	evaluator := assertions.NewEvaluator(resp, assertions.WithLogFunc(rn.log))
	body, err := evaluator.Evaluate(tests)
	rec.Err = err
	rn.recordAttempt(rec)
	return body, evaluator.Results(), err
}

// resolve interpolates the request options and the assertions against the
// current history. The result is reused unchanged by every retry.
func (rn *run) resolve(step *suite.RequestStep) (*http.Request, []suite.Assertion, error) {
	in := rn.runner.interpolator
	opts := step.Options

	method, err := in.String(opts.Method, rn.history)
	if err != nil {
		return nil, nil, err
	}
	url, err := in.String(opts.URL, rn.history)
	if err != nil {
		return nil, nil, err
	}
	headers, err := in.Interpolate(opts.Headers, rn.history)
	if err != nil {
		return nil, nil, err
	}
	body, err := in.Interpolate(opts.Body, rn.history)
	if err != nil {
		return nil, nil, err
	}

	req := &http.Request{
		Method: method,
		URL:    url,
		JSON:   opts.JSON,
		Body:   body,
	}
	if h, ok := headers.(map[string]any); ok {
		req.Headers = http.FormatHeaders(h)
	}

	tests := make([]suite.Assertion, len(step.Tests))
	for i, t := range step.Tests {
		key, err := in.String(t.Key, rn.history)
		if err != nil {
			return nil, nil, err
		}
		value, err := in.String(t.Value, rn.history)
		if err != nil {
			return nil, nil, err
		}
		tests[i] = suite.Assertion{Type: t.Type, Key: key, Value: value}
	}

	return req, tests, nil
}

func (rn *run) processDelay(ctx context.Context, index int, step *suite.DelayStep) error {
	rn.log("Waiting %d ms...", step.Time)
	start := time.Now()

	timer := time.NewTimer(time.Duration(step.Time) * time.Millisecond)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		rn.recordStep(StepRecord{Index: index, Kind: suite.KindDelay, Duration: time.Since(start), Err: ctx.Err()})
		return rn.stepError(index, step, 0, ctx.Err())
	case <-timer.C:
	}

	rn.recordStep(StepRecord{Index: index, Kind: suite.KindDelay, Duration: time.Since(start), Passed: true})
	return nil
}

func (rn *run) log(format string, args ...any) {
	cfg := rn.runner.config
	if cfg.Silent {
		return
	}
	msg := decorate(cfg.RequestID, fmt.Sprintf(format, args...))
	if cfg.Log != nil {
		cfg.Log("%s", msg)
		return
	}
	fmt.Println(msg)
}

func (rn *run) stepError(index int, step suite.Step, attempts int, err error) *StepError {
	serr := &StepError{
		Index:     index,
		Attempts:  attempts,
		RequestID: rn.runner.config.RequestID,
		Err:       err,
	}
	switch s := step.(type) {
	case *suite.RequestStep:
		serr.Kind = suite.KindRequest
		serr.URL = s.Options.URL
	case *suite.DelayStep:
		serr.Kind = suite.KindDelay
	}
	return serr
}

func (rn *run) recordAttempt(rec AttemptRecord) {
	if r := rn.runner.config.Recorder; r != nil {
		r.RecordAttempt(rec)
	}
}

func (rn *run) recordStep(rec StepRecord) {
	if r := rn.runner.config.Recorder; r != nil {
		r.RecordStep(rec)
	}
}

func decorate(requestID, message string) string {
	if requestID == "" {
		return message
	}
	return fmt.Sprintf("[%s] %s", requestID, message)
}
