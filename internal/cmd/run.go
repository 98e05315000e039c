package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/haatos/nightly/internal"
	"github.com/haatos/nightly/internal/service"
	"github.com/haatos/nightly/internal/settings"
	"github.com/haatos/nightly/internal/store"
	"github.com/spf13/cobra"

	_ "modernc.org/sqlite"
)

var (
	runConfigPath       string
	runBranch           string
	runDryRun           bool
	runKeepIntermediate bool
	runSchedule         string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Execute the configured build pipeline once or on a cron schedule",
	RunE:  runBuild,
}

func init() {
	runCmd.Flags().StringVarP(
		&runConfigPath, "config", "c", internal.DefaultConfigPath, "path to the build configuration")
	runCmd.Flags().BoolVarP(
		&runDryRun, "dry-run", "n", false, "perform a trial run without executing commands")
	runCmd.Flags().StringVarP(
		&runBranch, "branch", "b", "master", "branch or tag to build")
	runCmd.Flags().BoolVar(
		&runKeepIntermediate, "keep-intermediate", false, "keep intermediate files and folders")
	runCmd.Flags().StringVar(
		&runSchedule, "schedule", "", "cron expression; run the build on a schedule until interrupted")
	rootCmd.AddCommand(runCmd)
}

func runBuild(cmd *cobra.Command, args []string) error {
	cfg, err := settings.ReadConfig(runConfigPath)
	if err != nil {
		return err
	}

	opts := service.RunOptions{
		Branch:           runBranch,
		DryRun:           runDryRun,
		KeepIntermediate: runKeepIntermediate,
	}
	// Dry runs must not touch the filesystem, so the history index is
	// skipped along with everything else.
	if !runDryRun {
		history, closeDB, err := openHistory(cfg)
		if err != nil {
			return err
		}
		defer closeDB()
		opts.History = history
	}

	if runSchedule == "" {
		return executeBuild(cmd.Context(), cfg, opts)
	}

	scheduler := service.NewScheduler()
	defer func() {
		if err := scheduler.Shutdown(); err != nil {
			log.Println("err shutting down scheduler:", err)
		}
	}()
	if _, err := service.ScheduleBuild(scheduler, runSchedule, func() {
		if err := executeBuild(context.Background(), cfg, opts); err != nil {
			log.Println("err running scheduled build:", err)
		}
	}); err != nil {
		return fmt.Errorf("err scheduling build: %w", err)
	}
	scheduler.Start()
	fmt.Printf("Scheduled build %q. Waiting for interrupt...\n", runSchedule)
	<-cmd.Context().Done()
	return nil
}

func executeBuild(ctx context.Context, cfg *settings.Config, opts service.RunOptions) error {
	rec, err := service.NewRunner(cfg, opts).Execute(ctx)
	if err != nil {
		return fmt.Errorf("build aborted: %w", err)
	}
	if !rec.Success {
		return errors.New("build failed")
	}
	return nil
}

func openHistory(cfg *settings.Config) (store.RunStore, func(), error) {
	if err := os.MkdirAll(cfg.OutputDir, os.ModePerm); err != nil {
		return nil, nil, fmt.Errorf("err creating output dir: %w", err)
	}
	dbPath := filepath.Join(cfg.OutputDir, "nightly.sqlite")
	rwdb := store.InitDatabase(dbPath, false)
	store.RunMigrations(rwdb)
	rdb := store.InitDatabase(dbPath, true)
	closeDB := func() {
		_ = rdb.Close()
		_ = rwdb.Close()
	}
	return store.NewRunSQLiteStore(rdb, rwdb), closeDB, nil
}
