package output

import (
	"encoding/json"
	"io"
	"os"
	"time"
)

// JSONOutput represents the complete JSON output structure
type JSONOutput struct {
	Summary  JSONSummary `json:"summary"`
	Suites   []JSONSuite `json:"suites"`
	Duration float64     `json:"duration"`
	Time     string      `json:"time"`
}

// JSONSummary totals the statistics of every suite
type JSONSummary struct {
	Suites       int `json:"suites"`
	TestsRun     int `json:"testsRun"`
	TestsSuccess int `json:"testsSuccess"`
	TestsFail    int `json:"testsFail"`
}

type JSONSuite struct {
	Name         string     `json:"name"`
	File         string     `json:"file,omitempty"`
	RequestID    string     `json:"requestId,omitempty"`
	Passed       bool       `json:"passed"`
	StartTime    int64      `json:"startTime"`
	EndTime      int64      `json:"endTime"`
	TestsRun     int        `json:"testsRun"`
	TestsSuccess int        `json:"testsSuccess"`
	TestsFail    int        `json:"testsFail"`
	Error        string     `json:"error,omitempty"`
	Steps        []JSONStep `json:"steps"`
}

// JSONStep represents the outcome of a single step
type JSONStep struct {
	Index      int             `json:"index"`
	Type       string          `json:"type"`
	Method     string          `json:"method,omitempty"`
	URL        string          `json:"url,omitempty"`
	Attempts   int             `json:"attempts,omitempty"`
	Passed     bool            `json:"passed"`
	Duration   float64         `json:"duration"`
	Error      string          `json:"error,omitempty"`
	Assertions []JSONAssertion `json:"assertions,omitempty"`
}

// JSONAssertion represents an assertion result
type JSONAssertion struct {
	Type    string `json:"type"`
	Key     string `json:"key"`
	Pattern string `json:"pattern"`
	Actual  string `json:"actual"`
	Found   bool   `json:"found"`
	Passed  bool   `json:"passed"`
}

// JSONFormatter formats suite results as JSON
type JSONFormatter struct {
	writer io.Writer
	suites []JSONSuite
}

type JSONOption func(*JSONFormatter)

func NewJSONFormatter(opts ...JSONOption) *JSONFormatter {
	f := &JSONFormatter{
		writer: os.Stdout,
		suites: make([]JSONSuite, 0),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func JSONWithWriter(w io.Writer) JSONOption {
	return func(f *JSONFormatter) {
		f.writer = w
	}
}

func (f *JSONFormatter) FormatResult(result *SuiteResult) {
	s := JSONSuite{
		Name:      result.Name,
		File:      result.File,
		RequestID: result.RequestID,
		Passed:    result.Passed(),
		Steps:     make([]JSONStep, 0, len(result.Steps)),
	}
	if st := result.Stats; st != nil {
		s.StartTime = st.StartTime
		s.EndTime = st.EndTime
		s.TestsRun = st.TestsRun
		s.TestsSuccess = st.TestsSuccess
		s.TestsFail = st.TestsFail
	}
	if result.Err != nil {
		s.Error = result.Err.Error()
	}

	for _, r := range result.Steps {
		step := JSONStep{
			Index:    r.Index,
			Type:     string(r.Kind),
			Method:   r.Method,
			URL:      r.URL,
			Attempts: r.Attempts,
			Passed:   r.Passed,
			Duration: float64(r.Duration.Milliseconds()),
		}
		if r.Err != nil {
			step.Error = r.Err.Error()
		}
		for _, a := range r.Assertions {
			step.Assertions = append(step.Assertions, JSONAssertion{
				Type:    a.Type,
				Key:     a.Key,
				Pattern: a.Pattern,
				Actual:  a.Actual,
				Found:   a.Found,
				Passed:  a.Passed,
			})
		}
		s.Steps = append(s.Steps, step)
	}

	f.suites = append(f.suites, s)
}

func (f *JSONFormatter) FormatError(err error) {
	// Errors are included in individual suite results
}

func (f *JSONFormatter) FormatHeader(version string) {
	// No header needed for JSON output
}

// Flush writes the accumulated JSON output
func (f *JSONFormatter) Flush(totalDuration time.Duration) error {
	summary := JSONSummary{Suites: len(f.suites)}
	for _, s := range f.suites {
		summary.TestsRun += s.TestsRun
		summary.TestsSuccess += s.TestsSuccess
		summary.TestsFail += s.TestsFail
	}

	output := JSONOutput{
		Summary:  summary,
		Suites:   f.suites,
		Duration: float64(totalDuration.Milliseconds()),
		Time:     time.Now().Format(time.RFC3339),
	}

	encoder := json.NewEncoder(f.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(output)
}
