package cmd

import (
	"context"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "nightly",
	Short: "Sequential build-run orchestrator",
	Long: `nightly executes an ordered list of shell-level build steps, captures their
output and timing, packages the resulting release artifact and keeps a
structured record of every run. Old runs are pruned according to the
configured retention policy.`,
	SilenceUsage: true,
}

// ExecuteContext runs the root command with ctx; ctx cancellation interrupts
// a running build between and during steps.
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}
