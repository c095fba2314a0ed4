package output

import (
	"fmt"
	"io"
	"os"

	"github.com/abdul-hamid-achik/hitchain/packages/core/runner"
	"github.com/fatih/color"
)

type ConsoleFormatter struct {
	writer  io.Writer
	verbose bool
	noColor bool
}

type ConsoleOption func(*ConsoleFormatter)

func NewConsoleFormatter(opts ...ConsoleOption) *ConsoleFormatter {
	f := &ConsoleFormatter{
		writer: os.Stdout,
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.noColor {
		color.NoColor = true
	}
	return f
}

func WithWriter(w io.Writer) ConsoleOption {
	return func(f *ConsoleFormatter) {
		f.writer = w
	}
}

// WithVerbose also lists passed assertions and attempt counts.
func WithVerbose(v bool) ConsoleOption {
	return func(f *ConsoleFormatter) {
		f.verbose = v
	}
}

func WithNoColor(nc bool) ConsoleOption {
	return func(f *ConsoleFormatter) {
		f.noColor = nc
	}
}

func (f *ConsoleFormatter) FormatResult(result *SuiteResult) {
	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	cyan := color.New(color.FgCyan).SprintFunc()
	bold := color.New(color.Bold).SprintFunc()

	fmt.Fprintf(f.writer, "\n%s\n\n", bold("Running: "+result.Name))

	for _, r := range result.Steps {
		symbol := green("✓")
		if !r.Passed {
			symbol = red("✗")
		}

		fmt.Fprintf(f.writer, "  %s %s %s", symbol, stepName(r), cyan(fmt.Sprintf("(%dms)", r.Duration.Milliseconds())))
		if r.Attempts > 1 {
			fmt.Fprintf(f.writer, " %s", fmt.Sprintf("[%d attempts]", r.Attempts))
		}
		fmt.Fprintf(f.writer, "\n")

		for _, msg := range failedAssertions(r) {
			fmt.Fprintf(f.writer, "    %s %s\n", red("→"), msg)
		}
		if f.verbose {
			for _, a := range r.Assertions {
				if a.Passed {
					fmt.Fprintf(f.writer, "    %s %s =~ /%s/\n", green("→"), a.Key, a.Pattern)
				}
			}
		}
	}

	if result.Err != nil {
		fmt.Fprintf(f.writer, "\n  %s %v\n", red("Aborted:"), result.Err)
	}

	stats := result.Stats
	if stats == nil {
		stats = &runner.Statistics{}
	}
	summary := fmt.Sprintf("TEST result: name=%s tests_overall=%d tests_failed=%d duration=%d ms",
		result.Name, stats.TestsRun, stats.TestsFail, result.Duration().Milliseconds())
	if result.Passed() {
		summary = green(summary)
	} else {
		summary = red(summary)
	}
	fmt.Fprintf(f.writer, "\n%s\n\n", summary)
}

func (f *ConsoleFormatter) FormatError(err error) {
	red := color.New(color.FgRed).SprintFunc()
	fmt.Fprintf(f.writer, "%s %v\n", red("Error:"), err)
}

func (f *ConsoleFormatter) FormatHeader(version string) {
	bold := color.New(color.Bold).SprintFunc()
	fmt.Fprintf(f.writer, "%s %s\n", bold("hitchain"), version)
}
