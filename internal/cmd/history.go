package cmd

import (
	"fmt"
	"time"

	"github.com/haatos/nightly/internal"
	"github.com/haatos/nightly/internal/service"
	"github.com/haatos/nightly/internal/settings"
	"github.com/spf13/cobra"
)

var (
	historyConfigPath string
	historyLimit      int64
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List the most recent build runs",
	RunE:  history,
}

func init() {
	historyCmd.Flags().StringVarP(
		&historyConfigPath, "config", "c", internal.DefaultConfigPath, "path to the build configuration")
	historyCmd.Flags().Int64VarP(
		&historyLimit, "limit", "l", 20, "maximum number of runs to list")
	rootCmd.AddCommand(historyCmd)
}

func history(cmd *cobra.Command, args []string) error {
	cfg, err := settings.ReadConfig(historyConfigPath)
	if err != nil {
		return err
	}
	runStore, closeDB, err := openHistory(cfg)
	if err != nil {
		return err
	}
	defer closeDB()

	runs, err := runStore.ListRuns(cmd.Context(), historyLimit)
	if err != nil {
		return fmt.Errorf("err listing runs: %w", err)
	}
	if len(runs) == 0 {
		fmt.Println("No runs recorded yet.")
		return nil
	}

	for _, r := range runs {
		mark := "✗"
		if r.Success {
			mark = "✓"
		}
		tag := ""
		if r.Tag != nil {
			tag = *r.Tag
		}
		release := ""
		if r.Release != nil {
			release = *r.Release
		}
		fmt.Printf(
			"%s %s  branch=%s tag=%s took=%s %s\n",
			mark, r.Timestamp, r.Branch, tag,
			service.FormatDuration(time.Duration(r.DurationSeconds*float64(time.Second))),
			release,
		)
	}
	return nil
}
