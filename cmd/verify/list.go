package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"dev/bravebird/ui-verify/pkg/models"
	"dev/bravebird/ui-verify/pkg/scenario"
)

// NewListCmd creates the list command.
func NewListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List available scenarios",
		Long:  `List prints the built-in scenarios and, with --file, the scenarios of a YAML file.`,
		Args:  cobra.NoArgs,
		RunE:  runListCmd,
	}
	cmd.Flags().StringP("file", "f", "", "YAML file with custom scenarios")
	return cmd
}

func runListCmd(cmd *cobra.Command, _ []string) error {
	file, err := cmd.Flags().GetString("file")
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if file != "" {
		custom, err := scenario.Load(file)
		if err != nil {
			return err
		}
		for _, s := range custom {
			fmt.Fprintln(out, describe(s, file))
		}
	}
	for _, name := range scenario.Names() {
		s, _ := scenario.Builtin(name)
		fmt.Fprintln(out, describe(s, "builtin"))
	}
	return nil
}

func describe(s models.Scenario, source string) string {
	pages := make([]string, len(s.Pages))
	for i, p := range s.Pages {
		pages[i] = p.Name
	}
	return fmt.Sprintf("%-10s %-24s [%s] (%s)", s.Name, s.BaseURL, strings.Join(pages, ", "), source)
}
