package output

import (
	"fmt"
	"io"
	"time"

	"github.com/abdul-hamid-achik/hitchain/packages/core/runner"
	"github.com/abdul-hamid-achik/hitchain/packages/core/suite"
)

// SuiteResult is the outcome of running one suite file.
type SuiteResult struct {
	Name      string
	File      string
	RequestID string
	Stats     *runner.Statistics
	Steps     []runner.StepRecord
	// Total is the number of declared steps; steps past len(Steps) were
	// not reached.
	Total int
	// Err is the error that aborted the run, if any.
	Err error
}

// Duration is the wall time of the run.
func (r *SuiteResult) Duration() time.Duration {
	if r.Stats == nil {
		return 0
	}
	return r.Stats.Duration()
}

func (r *SuiteResult) Passed() bool {
	return r.Err == nil && (r.Stats == nil || r.Stats.Passed())
}

type Formatter interface {
	FormatResult(result *SuiteResult)
	FormatError(err error)
	FormatHeader(version string)
}

// Flushable is implemented by formatters that write once all suites ran.
type Flushable interface {
	Flush(totalDuration time.Duration) error
}

// Formats lists the names accepted by NewFormatter.
var Formats = []string{"console", "json", "junit", "tap", "html"}

func NewFormatter(name string, w io.Writer, noColor bool) (Formatter, error) {
	switch name {
	case "", "console":
		return NewConsoleFormatter(WithWriter(w), WithNoColor(noColor)), nil
	case "json":
		return NewJSONFormatter(JSONWithWriter(w)), nil
	case "junit":
		return NewJUnitFormatter(JUnitWithWriter(w)), nil
	case "tap":
		return NewTAPFormatter(TAPWithWriter(w)), nil
	case "html":
		return NewHTMLFormatter(HTMLWithWriter(w)), nil
	}
	return nil, fmt.Errorf("unknown output format %q", name)
}

// stepName is the display name of a step record.
func stepName(rec runner.StepRecord) string {
	if rec.Kind == suite.KindDelay {
		return fmt.Sprintf("step %d: delay", rec.Index)
	}
	return fmt.Sprintf("step %d: %s %s", rec.Index, rec.Method, rec.URL)
}

// failedAssertions describes the assertions of rec that did not hold.
func failedAssertions(rec runner.StepRecord) []string {
	var out []string
	for _, a := range rec.Assertions {
		if a.Passed {
			continue
		}
		actual := a.Actual
		if !a.Found {
			actual = "<missing>"
		}
		out = append(out, fmt.Sprintf("%s =~ /%s/: got %s", a.Key, a.Pattern, formatValue(actual, 100)))
	}
	return out
}

// formatValue formats a value for display, truncating or summarizing large values
func formatValue(v any, maxLen int) string {
	switch val := v.(type) {
	case []any:
		return fmt.Sprintf("[array with %d items]", len(val))
	case map[string]any:
		return fmt.Sprintf("{object with %d keys}", len(val))
	}
	str := fmt.Sprintf("%v", v)
	if len(str) > maxLen {
		return str[:maxLen] + "..."
	}
	return str
}
