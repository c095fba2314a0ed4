// Package http provides the HTTP transport used by the hitchain runner.
//
// It wraps the standard library's http package with additional features:
//   - Configurable timeouts, redirects, proxy and TLS verification
//   - JSON request encoding and JSON response decoding
//   - A client-wide request rate limit
//   - A Sender interface so the runner can be driven by any transport
package http
