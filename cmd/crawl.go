package cmd

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/boxoffice-crawler/internal/config"
	"github.com/JakeFAU/boxoffice-crawler/internal/logging"
)

func newCrawlCmd(cfgFile *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl",
		Short: "Crawl a range of release years",
		Long: `Fetches the listing page of every year from --start-year to --end-year
(inclusive, one year at a time) and every movie detail page it links to, with
at most --concurrency detail fetches in flight. Movies that fail are logged and
left out of the CSV; a year whose listing cannot be fetched is skipped.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCrawl(cmd, *cfgFile)
		},
	}
	flags := cmd.Flags()
	flags.Int("start-year", 0, "first release year to crawl (default from config: 2015)")
	flags.Int("end-year", 0, "last release year to crawl, inclusive (default from config: 2024)")
	flags.Int("concurrency", 0, "maximum concurrent detail fetches (default from config: 100)")
	flags.String("output", "", "CSV output path (default from config: movies.csv)")
	flags.String("base-url", "", "site base URL")
	return cmd
}

func runCrawl(cmd *cobra.Command, cfgFile string) error {
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}
	logger, err := logging.New(logging.Config{
		Development: cfg.Logging.Development,
		Level:       cfg.Logging.Level,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	runner, err := newRunner(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initialize services: %w", err)
	}
	defer runner.Close()

	report, err := runner.Run(ctx)
	logger.Info("crawl finished",
		zap.String("run_id", report.RunID.String()),
		zap.Int("records", len(report.Result.Records)),
		zap.Int("rows", report.CSV.Rows),
		zap.Int("detail_failures", len(report.Result.DetailFailures)),
		zap.Int("listing_failures", len(report.Result.ListingFailures)),
		zap.String("output", report.CSV.Path),
	)
	if err != nil {
		return fmt.Errorf("crawl: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %d rows to %s\n", report.CSV.Rows, report.CSV.Path)
	return nil
}
