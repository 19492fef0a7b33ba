// Package cmd defines the boxoffice-crawler CLI.
package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/boxoffice-crawler/internal/app"
	"github.com/JakeFAU/boxoffice-crawler/internal/config"
)

// Runner is the slice of *app.App the commands use, so tests can swap it.
type Runner interface {
	Run(ctx context.Context) (app.Report, error)
	Close()
}

// newRunner is the application factory. It's a variable so tests can
// replace it.
var newRunner = func(ctx context.Context, cfg config.Config, logger *zap.Logger) (Runner, error) {
	return app.New(ctx, cfg, logger)
}

func newRootCmd() *cobra.Command {
	var cfgFile string
	cmd := &cobra.Command{
		Use:   "boxoffice-crawler",
		Short: "Harvest box-office movie metadata into a CSV.",
		Long: `boxoffice-crawler walks the worldwide cumulative box-office listings one
release year at a time, fetches every listed movie's detail page concurrently
and writes one deduplicated CSV row per movie.`,
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (yaml, json or toml)")
	cmd.AddCommand(newCrawlCmd(&cfgFile))
	return cmd
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
