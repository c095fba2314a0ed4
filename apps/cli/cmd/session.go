package cmd

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/abdul-hamid-achik/hitchain/packages/builtin"
	"github.com/abdul-hamid-achik/hitchain/packages/core/config"
	"github.com/abdul-hamid-achik/hitchain/packages/core/runner"
	"github.com/abdul-hamid-achik/hitchain/packages/core/suite"
	"github.com/abdul-hamid-achik/hitchain/packages/export/metrics"
	"github.com/abdul-hamid-achik/hitchain/packages/notify"
	"github.com/abdul-hamid-achik/hitchain/packages/output"
	"github.com/google/uuid"
)

// session runs suite files with one resolved configuration.
type session struct {
	cfg       *config.Config
	stdout    io.Writer
	progress  *output.ProgressLogger
	collector *metrics.Collector
	funcs     *builtin.Registry
	// requestID overrides the per-suite UUID.
	requestID string
	bail      bool
	verbose   bool
}

// outcome is the result of one pass over the suite files.
type outcome struct {
	requestID string
	results   []*output.SuiteResult
	failed    []notify.FailedSuite
	duration  time.Duration
	code      int
	// loadFailures counts suites that failed before running; they are in
	// failed but not in results.
	loadFailures int
}

func (o *outcome) summary() *notify.RunSummary {
	s := &notify.RunSummary{
		RequestID:    o.requestID,
		TotalSuites:  len(o.results) + o.loadFailures,
		Duration:     o.duration,
		FailedSuites: o.failed,
	}
	for _, r := range o.results {
		s.TestsRun += r.Stats.TestsRun
		s.TestsSuccess += r.Stats.TestsSuccess
		s.TestsFail += r.Stats.TestsFail
	}
	return s
}

func (s *session) newFormatter(w io.Writer) (output.Formatter, error) {
	if s.cfg.Output == "" || s.cfg.Output == "console" {
		return output.NewConsoleFormatter(
			output.WithWriter(w),
			output.WithNoColor(s.cfg.GetNoColor()),
			output.WithVerbose(s.verbose),
		), nil
	}
	return output.NewFormatter(s.cfg.Output, w, s.cfg.GetNoColor())
}

// runFiles loads and runs every file in order and formats the results.
// The returned error is an output problem; suite failures are reported
// through the formatter and the outcome code.
func (s *session) runFiles(ctx context.Context, files []string, outputFile string) (*outcome, error) {
	w, closeOutput, err := openOutput(s.stdout, outputFile)
	if err != nil {
		return nil, err
	}
	defer closeOutput()

	formatter, err := s.newFormatter(w)
	if err != nil {
		return nil, err
	}
	formatter.FormatHeader(version)

	out := &outcome{requestID: s.requestID}
	start := time.Now()

	for _, file := range files {
		if ctx.Err() != nil {
			break
		}

		st, err := suite.Load(file)
		if err != nil {
			formatter.FormatError(fmt.Errorf("%s: %w", file, err))
			out.failed = append(out.failed, notify.FailedSuite{Name: file, File: file, Error: err.Error()})
			out.loadFailures++
			out.code = worseExit(out.code, ExitParseError)
			if s.bail {
				break
			}
			continue
		}

		result := s.runSuite(ctx, st)
		formatter.FormatResult(result)
		out.results = append(out.results, result)

		if result.Err != nil {
			out.failed = append(out.failed, notify.FailedSuite{Name: result.Name, File: file, Error: result.Err.Error()})
			out.code = worseExit(out.code, runExitCode(result.Err))
			if s.bail {
				break
			}
		}
	}

	out.duration = time.Since(start)
	if flushable, ok := formatter.(output.Flushable); ok {
		if err := flushable.Flush(out.duration); err != nil {
			return nil, fmt.Errorf("error writing output: %w", err)
		}
	}
	return out, nil
}

func (s *session) runSuite(ctx context.Context, st *suite.Suite) *output.SuiteResult {
	id := s.requestID
	if id == "" {
		id = uuid.NewString()
	}

	steps := &runner.StepLog{}
	recorders := runner.Recorders{steps}
	if s.collector != nil {
		recorders = append(recorders, s.collector)
	}

	cfg := &runner.Config{
		Timeout:        time.Duration(s.cfg.Timeout) * time.Millisecond,
		NoRedirects:    !s.cfg.GetFollowRedirects(),
		MaxRedirects:   s.cfg.MaxRedirects,
		Insecure:       !s.cfg.GetValidateSSL(),
		Proxy:          s.cfg.Proxy,
		DefaultHeaders: s.cfg.Headers,
		RateLimit:      s.cfg.Rate,
		Silent:         s.cfg.GetSilent(),
		RequestID:      id,
		Recorder:       recorders,
		Functions:      s.funcs,
	}
	if s.progress != nil {
		cfg.Log = s.progress.Logf
	}

	stats, err := runner.NewRunner(cfg).RunSuite(ctx, st)
	return &output.SuiteResult{
		Name:      st.Name,
		File:      st.Path,
		RequestID: id,
		Stats:     stats,
		Steps:     steps.Steps,
		Total:     len(st.Steps),
		Err:       err,
	}
}
