// Package runner executes hitchain suites.
//
// A run walks the steps strictly in declaration order. A request step
// interpolates its options and assertions against the bodies captured so
// far, sends the request, evaluates the assertions and retries immediately
// on transport or assertion failure while its retry budget lasts. A delay
// step waits for a fixed time. The first step that fails for good aborts
// the run.
//
// Response history and statistics belong to a single Run call, so one
// Runner can execute several suites concurrently.
package runner
