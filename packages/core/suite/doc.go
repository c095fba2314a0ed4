// Package suite defines the hitchain test suite model and loads suites from
// JSON or YAML files.
//
// A suite is an ordered list of steps. Each step is either a request (an HTTP
// exchange followed by regexp assertions on the response body) or a delay.
// Documents are validated against an embedded JSON Schema before they are
// decoded, so a malformed suite never reaches the runner.
package suite
