package output

import (
	"fmt"
	"html/template"
	"io"
	"os"
	"time"
)

// HTMLOutput is the data rendered into the HTML report
type HTMLOutput struct {
	Version        string
	Summary        HTMLSummary
	Suites         []HTMLSuite
	Errors         []string
	Duration       float64
	Time           string
	PassedPercent  float64
	FailedPercent  float64
	SkippedPercent float64
}

// HTMLSummary counts steps over every suite
type HTMLSummary struct {
	Suites  int
	Total   int
	Passed  int
	Failed  int
	Skipped int
}

type HTMLSuite struct {
	Name      string
	File      string
	RequestID string
	Passed    bool
	Error     string
	Steps     []HTMLStep
}

// HTMLStep is one row of a suite table
type HTMLStep struct {
	Name        string
	StatusClass string
	Attempts    int
	Duration    float64
	Error       string
	Assertions  []HTMLAssertion
}

type HTMLAssertion struct {
	Key     string
	Pattern string
	Actual  string
	Passed  bool
}

// HTMLFormatter renders a standalone HTML report once all suites ran
type HTMLFormatter struct {
	writer  io.Writer
	suites  []HTMLSuite
	errors  []string
	version string
}

type HTMLOption func(*HTMLFormatter)

func NewHTMLFormatter(opts ...HTMLOption) *HTMLFormatter {
	f := &HTMLFormatter{
		writer: os.Stdout,
		suites: make([]HTMLSuite, 0),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func HTMLWithWriter(w io.Writer) HTMLOption {
	return func(f *HTMLFormatter) {
		f.writer = w
	}
}

func (f *HTMLFormatter) FormatResult(result *SuiteResult) {
	s := HTMLSuite{
		Name:      result.Name,
		File:      result.File,
		RequestID: result.RequestID,
		Passed:    result.Passed(),
	}
	if result.Err != nil {
		s.Error = result.Err.Error()
	}

	for _, r := range result.Steps {
		step := HTMLStep{
			Name:        stepName(r),
			StatusClass: "passed",
			Attempts:    r.Attempts,
			Duration:    float64(r.Duration.Milliseconds()),
		}
		if !r.Passed {
			step.StatusClass = "failed"
		}
		if r.Err != nil {
			step.Error = r.Err.Error()
		}
		for _, a := range r.Assertions {
			actual := a.Actual
			if !a.Found {
				actual = "<missing>"
			}
			step.Assertions = append(step.Assertions, HTMLAssertion{
				Key:     a.Key,
				Pattern: a.Pattern,
				Actual:  formatValue(actual, 200),
				Passed:  a.Passed,
			})
		}
		s.Steps = append(s.Steps, step)
	}

	for i := len(result.Steps); i < result.Total; i++ {
		s.Steps = append(s.Steps, HTMLStep{
			Name:        fmt.Sprintf("step %d", i),
			StatusClass: "skipped",
			Error:       "not reached",
		})
	}

	f.suites = append(f.suites, s)
}

// FormatError lists suites that could not be loaded above the suite tables.
func (f *HTMLFormatter) FormatError(err error) {
	f.errors = append(f.errors, err.Error())
}

func (f *HTMLFormatter) FormatHeader(version string) {
	f.version = version
}

func (f *HTMLFormatter) Flush(totalDuration time.Duration) error {
	summary := HTMLSummary{Suites: len(f.suites) + len(f.errors)}
	for _, s := range f.suites {
		for _, st := range s.Steps {
			summary.Total++
			switch st.StatusClass {
			case "passed":
				summary.Passed++
			case "failed":
				summary.Failed++
			default:
				summary.Skipped++
			}
		}
	}

	out := HTMLOutput{
		Version:  f.version,
		Summary:  summary,
		Suites:   f.suites,
		Errors:   f.errors,
		Duration: float64(totalDuration.Milliseconds()),
		Time:     time.Now().Format("2006-01-02 15:04:05"),
	}
	if summary.Total > 0 {
		total := float64(summary.Total)
		out.PassedPercent = float64(summary.Passed) / total * 100
		out.FailedPercent = float64(summary.Failed) / total * 100
		out.SkippedPercent = float64(summary.Skipped) / total * 100
	}

	tmpl, err := template.New("report").Parse(htmlTemplate)
	if err != nil {
		return fmt.Errorf("failed to parse HTML template: %w", err)
	}
	return tmpl.Execute(f.writer, out)
}

const htmlTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>hitchain Report</title>
    <style>
        :root {
            --bg-primary: #1a1a2e;
            --bg-secondary: #16213e;
            --text-primary: #eee;
            --text-secondary: #aaa;
            --success: #00d26a;
            --error: #ff4757;
            --warning: #ffa502;
        }
        body {
            font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif;
            background: var(--bg-primary);
            color: var(--text-primary);
            margin: 0;
            padding: 2rem;
        }
        .container { max-width: 1100px; margin: 0 auto; }
        .meta { color: var(--text-secondary); margin-bottom: 2rem; }
        .summary { display: grid; grid-template-columns: repeat(auto-fit, minmax(120px, 1fr)); gap: 1rem; margin-bottom: 1rem; }
        .card { background: var(--bg-secondary); padding: 1rem; border-radius: 8px; text-align: center; }
        .card .value { font-size: 1.5rem; font-weight: bold; }
        .bar { display: flex; height: 8px; border-radius: 4px; overflow: hidden; margin-bottom: 2rem; }
        .bar .passed { background: var(--success); }
        .bar .failed { background: var(--error); }
        .bar .skipped { background: var(--warning); }
        table { width: 100%; border-collapse: collapse; background: var(--bg-secondary); border-radius: 8px; overflow: hidden; margin-bottom: 2rem; }
        th, td { padding: 0.6rem 1rem; text-align: left; vertical-align: top; }
        th { background: #0f3460; }
        tr:not(:last-child) { border-bottom: 1px solid #2d3748; }
        .passed { color: var(--success); }
        .failed { color: var(--error); }
        .skipped { color: var(--warning); }
        .assertion { font-family: monospace; font-size: 0.85rem; }
        .error { color: var(--error); font-family: monospace; white-space: pre-wrap; }
    </style>
</head>
<body>
    <div class="container">
        <h1>hitchain Report</h1>
        <div class="meta">{{.Time}} · {{printf "%.0f" .Duration}} ms{{if .Version}} · hitchain {{.Version}}{{end}}</div>
        <div class="summary">
            <div class="card"><div class="value">{{.Summary.Suites}}</div><div>Suites</div></div>
            <div class="card"><div class="value">{{.Summary.Total}}</div><div>Steps</div></div>
            <div class="card"><div class="value passed">{{.Summary.Passed}}</div><div>Passed</div></div>
            <div class="card"><div class="value failed">{{.Summary.Failed}}</div><div>Failed</div></div>
            <div class="card"><div class="value skipped">{{.Summary.Skipped}}</div><div>Not reached</div></div>
        </div>
        <div class="bar">
            <div class="passed" style="width: {{printf "%.1f" .PassedPercent}}%"></div>
            <div class="failed" style="width: {{printf "%.1f" .FailedPercent}}%"></div>
            <div class="skipped" style="width: {{printf "%.1f" .SkippedPercent}}%"></div>
        </div>
        {{range .Errors}}<p class="error">{{.}}</p>{{end}}
        {{range .Suites}}
        <h2 class="{{if .Passed}}passed{{else}}failed{{end}}">{{.Name}}</h2>
        <div class="meta">{{.File}}{{if .RequestID}} · request id {{.RequestID}}{{end}}</div>
        <table>
            <thead>
                <tr><th>Step</th><th>Status</th><th>Attempts</th><th>Duration (ms)</th><th>Details</th></tr>
            </thead>
            <tbody>
                {{range .Steps}}
                <tr>
                    <td>{{.Name}}</td>
                    <td class="{{.StatusClass}}">{{.StatusClass}}</td>
                    <td>{{if .Attempts}}{{.Attempts}}{{end}}</td>
                    <td>{{printf "%.0f" .Duration}}</td>
                    <td>
                        {{range .Assertions}}<div class="assertion {{if .Passed}}passed{{else}}failed{{end}}">{{.Key}} =~ /{{.Pattern}}/ got {{.Actual}}</div>{{end}}
                        {{if .Error}}<div class="error">{{.Error}}</div>{{end}}
                    </td>
                </tr>
                {{end}}
            </tbody>
        </table>
        {{if .Error}}<p class="error">{{.Error}}</p>{{end}}
        {{end}}
    </div>
</body>
</html>`
