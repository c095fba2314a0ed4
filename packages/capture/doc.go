// Package capture resolves dot/bracket paths such as "[0].name" or
// "items[2]['display name']" inside captured response bodies.
//
// Paths are translated to gjson syntax and evaluated against the JSON form of
// the body, so a missing intermediate key yields "absent" rather than an
// error. Captured bodies are later addressed by template expressions and by
// regexp assertions.
package capture
