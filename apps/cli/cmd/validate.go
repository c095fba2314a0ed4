package cmd

import (
	"errors"
	"fmt"

	"github.com/abdul-hamid-achik/hitchain/packages/core/suite"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate <file|directory>...",
	Short: "Validate suites against the suite schema",
	Long: `Validate suite files without executing them. Every violation of the
suite schema is listed.

Examples:
  hitchain validate countries.json
  hitchain validate ./suites/`,
	Args: cobra.MinimumNArgs(1),
	RunE: validateCommand,
}

func validateCommand(cmd *cobra.Command, args []string) error {
	files, err := collectFiles(args)
	if err != nil {
		return &ExitError{Code: ExitParseError, Err: err}
	}

	if len(files) == 0 {
		return &ExitError{Code: ExitParseError, Err: fmt.Errorf("no suite files (.json, .yaml, .yml) found")}
	}

	hasErrors := false
	for _, file := range files {
		s, err := suite.Load(file)
		if err != nil {
			hasErrors = true
			var verr *suite.ValidationError
			if errors.As(err, &verr) {
				fmt.Fprintf(cmd.ErrOrStderr(), "Invalid: %s\n", file)
				for _, v := range verr.Violations {
					fmt.Fprintf(cmd.ErrOrStderr(), "  - %s\n", v)
				}
				continue
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Error in %s: %v\n", file, err)
			continue
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Valid: %s (%d steps)\n", file, len(s.Steps))
	}

	if hasErrors {
		return &ExitError{Code: ExitParseError, Err: fmt.Errorf("validation failed"), Reported: true}
	}

	return nil
}
