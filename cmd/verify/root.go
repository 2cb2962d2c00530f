package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for verify.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Browser verification harness for the school admin frontend",
		Long: `verify logs into the school admin frontend with a real browser, visits
the pages of a scenario, prints the values it reads and saves a screenshot of
every page. Soft mismatches are printed as warnings; hard assertions and
browser failures exit non-zero.

Built-in scenarios: smoke, centered, fallback. More can be loaded from YAML.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	cmd.AddCommand(NewRunCmd())
	cmd.AddCommand(NewListCmd())
	cmd.AddCommand(NewFixtureCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}
