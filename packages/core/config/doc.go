// Package config loads the optional hitchain project configuration.
//
// The first of .hitchain.json, hitchain.json, .hitchain.yaml and
// hitchain.yaml found in the working directory is read on top of
// DefaultConfig. HITCHAIN_* environment variables and command line flags
// are layered with Merge.
package config
