package output

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/fatih/color"
)

// ProgressLogger prints runner progress lines. Its Logf method matches
// runner.LogFunc and may be shared by concurrent runs.
type ProgressLogger struct {
	mu      sync.Mutex
	writer  io.Writer
	noColor bool
}

type ProgressOption func(*ProgressLogger)

func NewProgressLogger(opts ...ProgressOption) *ProgressLogger {
	l := &ProgressLogger{writer: os.Stderr}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func ProgressWithWriter(w io.Writer) ProgressOption {
	return func(l *ProgressLogger) {
		l.writer = w
	}
}

func ProgressWithNoColor(nc bool) ProgressOption {
	return func(l *ProgressLogger) {
		l.noColor = nc
	}
}

func (l *ProgressLogger) Logf(format string, args ...any) {
	line := fmt.Sprintf(format, args...)

	var c *color.Color
	switch {
	case strings.Contains(line, "Retrying request"):
		c = color.New(color.FgYellow)
	case strings.HasSuffix(line, ") passed"):
		c = color.New(color.FgGreen)
	case strings.Contains(line, "Waiting "):
		c = color.New(color.FgCyan)
	default:
		c = color.New(color.Faint)
	}
	if l.noColor {
		c.DisableColor()
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintln(l.writer, c.Sprint(line))
}
