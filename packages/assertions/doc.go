// Package assertions checks HTTP responses captured by the hitchain runner.
//
// Every response must carry a status code below 400. The body is then parsed
// as JSON (when the transport returned it as text) and each regexp assertion
// resolves its key inside the body and matches the pattern against the
// string form of the value. The first failing assertion stops the
// evaluation.
package assertions
