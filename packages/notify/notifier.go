// Package notify posts run summaries to chat webhooks.
package notify

import (
	"errors"
	"fmt"
	"time"
)

// NotifyOn specifies when to send notifications
type NotifyOn string

const (
	// NotifyAlways sends notifications for every run
	NotifyAlways NotifyOn = "always"
	// NotifyFailure sends notifications only when a suite fails
	NotifyFailure NotifyOn = "failure"
	// NotifySuccess sends notifications only when every suite passes
	NotifySuccess NotifyOn = "success"
	// NotifyRecovery sends notifications on failure and on the first
	// passing run after a failure
	NotifyRecovery NotifyOn = "recovery"
)

// ParseNotifyOn validates a policy name. The empty string means failure.
func ParseNotifyOn(s string) (NotifyOn, error) {
	switch NotifyOn(s) {
	case "":
		return NotifyFailure, nil
	case NotifyAlways, NotifyFailure, NotifySuccess, NotifyRecovery:
		return NotifyOn(s), nil
	}
	return "", fmt.Errorf("unknown notification policy %q", s)
}

// RunSummary is the outcome of one invocation, over every suite it ran
type RunSummary struct {
	RequestID    string        `json:"request_id,omitempty"`
	TotalSuites  int           `json:"total_suites"`
	TestsRun     int           `json:"tests_run"`
	TestsSuccess int           `json:"tests_success"`
	TestsFail    int           `json:"tests_fail"`
	Duration     time.Duration `json:"duration"`
	FailedSuites []FailedSuite `json:"failed_suites,omitempty"`
	IsRecovery   bool          `json:"is_recovery,omitempty"`
}

// FailedSuite names a suite whose run aborted
type FailedSuite struct {
	Name  string `json:"name"`
	File  string `json:"file,omitempty"`
	Error string `json:"error,omitempty"`
}

// Failed reports whether any suite failed.
func (s *RunSummary) Failed() bool {
	return s.TestsFail > 0 || len(s.FailedSuites) > 0
}

// Notifier is the interface for notification services
type Notifier interface {
	// Notify sends a notification about a run
	Notify(summary *RunSummary) error

	// Name returns the name of the notifier
	Name() string
}

// Manager manages multiple notifiers
type Manager struct {
	notifiers []Notifier
	notifyOn  NotifyOn
	lastState bool // true if last run was successful
}

// NewManager creates a new notification manager
func NewManager(notifyOn NotifyOn, notifiers ...Notifier) *Manager {
	return &Manager{
		notifiers: notifiers,
		notifyOn:  notifyOn,
		lastState: true,
	}
}

// AddNotifier adds a notifier to the manager
func (m *Manager) AddNotifier(n Notifier) {
	m.notifiers = append(m.notifiers, n)
}

// Notify sends notifications based on the configured policy. Every notifier
// is tried; their errors are joined.
func (m *Manager) Notify(summary *RunSummary) error {
	shouldNotify := false
	currentSuccess := !summary.Failed()

	switch m.notifyOn {
	case NotifyAlways:
		shouldNotify = true
	case NotifyFailure:
		shouldNotify = !currentSuccess
	case NotifySuccess:
		shouldNotify = currentSuccess
	case NotifyRecovery:
		if !m.lastState && currentSuccess {
			shouldNotify = true
			summary.IsRecovery = true
		}
		if !currentSuccess {
			shouldNotify = true
		}
	}

	m.lastState = currentSuccess

	if !shouldNotify {
		return nil
	}

	var errs []error
	for _, n := range m.notifiers {
		if err := n.Notify(summary); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", n.Name(), err))
		}
	}
	return errors.Join(errs...)
}
