package suite

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// StepKind discriminates the step variants.
type StepKind string

const (
	KindRequest StepKind = "request"
	KindDelay   StepKind = "delay"
)

// Step is one unit of a suite. It is implemented only by *RequestStep and
// *DelayStep.
type Step interface {
	Kind() StepKind
	isStep()
}

// Suite is a named, ordered list of steps.
type Suite struct {
	Name  string
	Path  string
	Steps []Step
}

// RequestStep issues one HTTP exchange and runs assertions on its response.
type RequestStep struct {
	Options HTTPOptions `json:"options"`
	Tests   []Assertion `json:"tests"`
	// Retries is the number of additional attempts after the first one.
	Retries int `json:"retries"`
}

func (*RequestStep) Kind() StepKind { return KindRequest }
func (*RequestStep) isStep()        {}

// DelayStep pauses the run for Time milliseconds.
type DelayStep struct {
	Time int `json:"time"`
}

func (*DelayStep) Kind() StepKind { return KindDelay }
func (*DelayStep) isStep()        {}

// HTTPOptions describes a request before template interpolation. Headers and
// Body are kept generic so expressions can appear anywhere inside them.
type HTTPOptions struct {
	Method  string         `json:"method"`
	URL     string         `json:"url"`
	Headers map[string]any `json:"headers,omitempty"`
	JSON    bool           `json:"json"`
	Body    any            `json:"body,omitempty"`
}

// Assertion is a single check against a response body.
type Assertion struct {
	Type  string `json:"type"`
	Key   string `json:"key"`
	Value string `json:"value"`
}

const AssertionRegexp = "regexp"

// Format is the encoding of a suite document.
type Format int

const (
	FormatJSON Format = iota
	FormatYAML
)

// FormatFromPath picks the format from a file extension. Unknown extensions
// are treated as JSON.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// IsSuiteFile reports whether path looks like a suite document.
func IsSuiteFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".yaml", ".yml":
		return true
	}
	return false
}

// Load reads, validates and decodes the suite at path.
func Load(path string) (*Suite, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading suite: %w", err)
	}
	s, err := Parse(data, FormatFromPath(path))
	if err != nil {
		return nil, err
	}
	s.Path = path
	if s.Name == "" {
		s.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return s, nil
}

// Parse validates data against the suite schema and decodes it.
func Parse(data []byte, format Format) (*Suite, error) {
	doc, err := unmarshalDocument(data, format)
	if err != nil {
		return nil, err
	}
	if err := Validate(doc); err != nil {
		return nil, err
	}

	// Round-trip through JSON so YAML and JSON documents share one decoder.
	normalized, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("normalizing suite: %w", err)
	}

	var raw struct {
		Name   string            `json:"name"`
		Config []json.RawMessage `json:"config"`
	}
	if err := json.Unmarshal(normalized, &raw); err != nil {
		return nil, fmt.Errorf("decoding suite: %w", err)
	}

	steps, err := DecodeSteps(raw.Config)
	if err != nil {
		return nil, err
	}
	return &Suite{Name: raw.Name, Steps: steps}, nil
}

// DecodeSteps decodes each raw step by its "type" discriminator.
func DecodeSteps(raw []json.RawMessage) ([]Step, error) {
	steps := make([]Step, 0, len(raw))
	for i, msg := range raw {
		var head struct {
			Type StepKind `json:"type"`
		}
		if err := json.Unmarshal(msg, &head); err != nil {
			return nil, fmt.Errorf("step %d: %w", i, err)
		}

		switch head.Type {
		case KindRequest:
			var step RequestStep
			if err := json.Unmarshal(msg, &step); err != nil {
				return nil, fmt.Errorf("step %d: %w", i, err)
			}
			if step.Options.Method == "" {
				step.Options.Method = "GET"
			}
			steps = append(steps, &step)
		case KindDelay:
			var step DelayStep
			if err := json.Unmarshal(msg, &step); err != nil {
				return nil, fmt.Errorf("step %d: %w", i, err)
			}
			steps = append(steps, &step)
		default:
			return nil, &UnknownStepError{Index: i, Type: string(head.Type)}
		}
	}
	return steps, nil
}

func unmarshalDocument(data []byte, format Format) (any, error) {
	var doc any
	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("parsing YAML suite: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("parsing JSON suite: %w", err)
		}
	}
	return doc, nil
}

// UnknownStepError reports a step whose type is neither request nor delay.
type UnknownStepError struct {
	Index int
	Type  string
}

func (e *UnknownStepError) Error() string {
	return fmt.Sprintf("step %d: unknown step type %q", e.Index, e.Type)
}
