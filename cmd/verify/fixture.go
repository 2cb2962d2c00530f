package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"dev/bravebird/ui-verify/pkg/config"
	"dev/bravebird/ui-verify/pkg/fixture"
	"dev/bravebird/ui-verify/pkg/logging"
)

// NewFixtureCmd creates the fixture command.
func NewFixtureCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fixture",
		Short: "Serve a local app with the pages the built-in scenarios verify",
		Long: `Fixture serves a small school admin app with a login form, the dashboard,
the management, reports and feeding pages. Point a scenario at it with
--base-url to run the harness without the real frontend.

Examples:
  # Smoke scenario target
  verify fixture --addr localhost:5173

  # Feeding page with a meal assigned
  verify fixture --addr localhost:5174 --meal "Jollof Rice"`,
		Args: cobra.NoArgs,
		RunE: runFixtureCmd,
	}

	cmd.Flags().String("addr", config.DefaultFixtureAddr, "Listen address")
	cmd.Flags().Int("rows", fixture.DefaultOptions().Rows, "Rows in every data table")
	cmd.Flags().String("meal", "", "Today's meal, empty renders the no-meal layout")
	cmd.Flags().String("meal-type", fixture.DefaultOptions().MealType, "Meal type shown in the meal meta line")

	return cmd
}

func runFixtureCmd(cmd *cobra.Command, _ []string) error {
	addr, err := cmd.Flags().GetString("addr")
	if err != nil {
		return err
	}

	opts := fixture.DefaultOptions()
	if opts.Rows, err = cmd.Flags().GetInt("rows"); err != nil {
		return err
	}
	if opts.Meal, err = cmd.Flags().GetString("meal"); err != nil {
		return err
	}
	if opts.MealType, err = cmd.Flags().GetString("meal-type"); err != nil {
		return err
	}
	opts.Logger = logging.New(os.Stderr, getVerboseFlag(cmd))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return fixture.New(opts).ListenAndServe(ctx, addr)
}
