// Package cmd implements the catalogue-titles command line.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/catalogue-titles/internal/app"
	"github.com/JakeFAU/catalogue-titles/internal/config"
	"github.com/JakeFAU/catalogue-titles/internal/crawler"
	"github.com/JakeFAU/catalogue-titles/internal/logging"
)

// Process exit codes.
const (
	ExitOK          = 0
	ExitInitFailed  = 1
	ExitWriteFailed = 2
)

// Runner is the part of the application the command drives. It is an
// interface so tests can inject a fake.
type Runner interface {
	Run(ctx context.Context) (crawler.RunSummary, error)
	Close()
}

// newApp is the application factory, replaced in tests.
var newApp = func(ctx context.Context, cfg config.Config, logger *zap.Logger) (Runner, error) {
	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	return a, nil
}

func newRootCmd() *cobra.Command {
	var cfgFile string
	cmd := &cobra.Command{
		Use:   "catalogue-titles",
		Short: "Scrape book titles from a paginated catalogue into a JSON document.",
		Long: `catalogue-titles fetches every listing page of a book catalogue under a
shared rate limit, keeps the titles longer than the configured threshold and
writes them to a single JSON array.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runScrape(cmd.Context(), cfgFile)
		},
	}
	cmd.Flags().StringVar(&cfgFile, "config", "", "path to a YAML config file")
	return cmd
}

func runScrape(ctx context.Context, cfgFile string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync() //nolint:errcheck // best-effort flush
	zap.ReplaceGlobals(logger)

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize application services: %w", err)
	}
	defer a.Close()

	if _, err := a.Run(ctx); err != nil {
		return fmt.Errorf("scrape failed: %w", err)
	}
	return nil
}

// ExitCode maps a command error onto the process exit status.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, crawler.ErrWriteFailed):
		return ExitWriteFailed
	default:
		return ExitInitFailed
	}
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err := newRootCmd().ExecuteContext(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "catalogue-titles: %v\n", err)
	}
	return ExitCode(err)
}
