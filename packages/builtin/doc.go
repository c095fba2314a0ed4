// Package builtin provides the functions callable from ${...} template
// expressions in hitchain suites.
//
// Available functions:
//   - uuid(): Generate a random UUID v4
//   - now(): Current time in RFC 3339
//   - timestamp(), timestampMs(): Current Unix time in seconds or milliseconds
//   - date(layout): Current UTC date formatted with a Go layout
//   - random(min, max): Random integer in range
//   - randomString(length): Random alphanumeric string
//   - base64(value): Base64 encode a string
//   - urlEncode(value): Query-escape a string
//   - env(name): Value of an environment variable
package builtin
