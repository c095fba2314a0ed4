package cmd

import (
	"fmt"

	"github.com/abdul-hamid-achik/hitchain/packages/core/suite"
	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list <file|directory>...",
	Short: "List the steps of suites",
	Long: `List the steps defined in suite files.

Examples:
  hitchain list countries.json
  hitchain list ./suites/`,
	Args: cobra.MinimumNArgs(1),
	RunE: listCommand,
}

func listCommand(cmd *cobra.Command, args []string) error {
	files, err := collectFiles(args)
	if err != nil {
		return &ExitError{Code: ExitParseError, Err: err}
	}

	if len(files) == 0 {
		return &ExitError{Code: ExitParseError, Err: fmt.Errorf("no suite files (.json, .yaml, .yml) found")}
	}

	for _, file := range files {
		s, err := suite.Load(file)
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Error parsing %s: %v\n", file, err)
			continue
		}

		fmt.Fprintf(cmd.OutOrStdout(), "\n%s (%s):\n", s.Name, file)
		for i, step := range s.Steps {
			switch st := step.(type) {
			case *suite.RequestStep:
				fmt.Fprintf(cmd.OutOrStdout(), "  %d. %s %s", i, st.Options.Method, st.Options.URL)
				if len(st.Tests) > 0 {
					fmt.Fprintf(cmd.OutOrStdout(), " [%d tests]", len(st.Tests))
				}
				if st.Retries > 0 {
					fmt.Fprintf(cmd.OutOrStdout(), " [retries: %d]", st.Retries)
				}
				fmt.Fprintln(cmd.OutOrStdout())
			case *suite.DelayStep:
				fmt.Fprintf(cmd.OutOrStdout(), "  %d. delay %d ms\n", i, st.Time)
			}
		}
	}

	return nil
}
