// Package cmd defines and implements the CLI commands for the iliassync executable.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"iliassync/internal/config"
	"iliassync/internal/crawl"
	"iliassync/internal/fsutil"
	"iliassync/internal/ignore"
	"iliassync/internal/ilias"
	"iliassync/internal/logging"
	"iliassync/internal/progress"
	"iliassync/internal/ratelimit"
	"iliassync/internal/scheduler"
	"iliassync/internal/state"
)

// stateFileName is where sync bookkeeping lives inside the output directory.
const stateFileName = ".iliassync.db"

// newSyncCmd creates and configures the 'sync' subcommand.
func newSyncCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Mirror your personal desktop into the output directory",
		Long: `Crawls every course subscribed on the ILIAS personal desktop and
downloads its content below the output directory. Entries matched by a
.iliasignore file are skipped.`,

		RunE: runSyncCommand,
	}

	flags := cmd.Flags()
	flags.StringP("output", "o", "", "sync target directory (required)")
	flags.IntP("jobs", "j", 1, "concurrently running crawl units")
	flags.Float64("rate", 8, "requests per minute")
	flags.BoolP("force", "f", false, "re-download content that is already present")
	flags.Bool("skip-files", false, "do not download plain files")
	flags.Bool("no-videos", false, "do not download OpenCast lectures")
	flags.Bool("check-videos", false, "compare present videos against the server size")
	flags.BoolP("forum", "t", false, "download forum threads")
	flags.Bool("save-ilias-pages", false, "save the text shown on course and folder pages")
	flags.String("session-file", "", "cookie file (default is <output>/.iliassession)")
	flags.String("user-agent", "", "override the request user agent")

	return cmd
}

func runSyncCommand(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}
	if noVideos, _ := cmd.Flags().GetBool("no-videos"); noVideos {
		cfg.Videos = false
	}

	logger, err := logging.New(cfg.Development)
	if err != nil {
		return fmt.Errorf("logger init: %w", err)
	}
	defer func() {
		if syncErr := logger.Sync(); syncErr != nil {
			fmt.Fprintf(os.Stderr, "logger sync failed: %v\n", syncErr)
		}
	}()
	zap.ReplaceGlobals(logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	httpc, err := ilias.NewSessionClient(cfg.SessionFile)
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}
	client := ilias.NewClient(httpc, ratelimit.New(cfg.Rate), logger, cfg.UserAgent)

	rules := ignore.Load(cfg.Output, logger)

	if err := fsutil.EnsureDir(cfg.Output); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	store, err := state.Open(filepath.Join(cfg.Output, stateFileName))
	if err != nil {
		logger.Warn("state store unavailable, bookkeeping disabled", zap.Error(err))
		store = nil
	} else {
		defer store.Close()
	}

	hub := progress.NewHub(logger, progress.NewSummarySink(logger))
	sched := scheduler.New(cfg.Jobs, logger)
	proc := crawl.New(client, rules, sched, store, hub, cfg, logger)

	runErr := proc.Run(ctx)
	if err := hub.Close(context.Background()); err != nil {
		logger.Warn("progress hub close failed", zap.Error(err))
	}
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return fmt.Errorf("run sync: %w", runErr)
	}

	logger.Info("Sync command finished.")
	return nil
}
