// Package template resolves ${...} expressions in suite fragments against the
// bodies captured from earlier request steps.
//
// An expression either references the response history, as in
// ${response[0].items[1].id}, or calls a builtin function, as in ${uuid()}.
// Interpolate walks maps and slices recursively and rewrites every string
// leaf. A leaf made of a single expression is replaced by the referenced
// value itself, keeping its type; expressions embedded in longer text are
// rendered into the string.
package template
