// Package cmd implements the hitchain CLI commands using Cobra.
//
// Available commands:
//   - run: Execute suites, optionally watching them for changes
//   - validate: Check suites against the schema without executing them
//   - list: Display the steps of suites
//   - init: Create an example suite and config file
//   - version: Show hitchain version information
//   - completion: Generate shell completion scripts
package cmd
