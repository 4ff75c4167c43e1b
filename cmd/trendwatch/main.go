package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/crimson-sun/trendwatch/internal/config"
	"github.com/crimson-sun/trendwatch/internal/logging"

	// Register dataset formats and capability providers.
	_ "github.com/crimson-sun/trendwatch/internal/capability/remote"
	_ "github.com/crimson-sun/trendwatch/internal/capability/semantic"
	_ "github.com/crimson-sun/trendwatch/internal/source/csv"
	_ "github.com/crimson-sun/trendwatch/internal/source/xlsx"
)

// app carries state shared by every subcommand.
type app struct {
	configPath string
	logLevel   string
	logFormat  string
	annexPath  string

	cfg    config.Config
	logger *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{logger: zap.NewNop()}
	root := &cobra.Command{
		Use:   "trendwatch",
		Short: "Adverse-event code resolution and trend analytics",
		Long: `trendwatch resolves adverse-event classification codes against an IMDRF
annex and reports per-manufacturer trends with statistical baselines.

Without an annex it runs in prefix-only mode: codes are grouped by their
first three characters and nothing is resolved.`,
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = a.logger.Sync()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "trendwatch.yaml", "YAML config file (optional)")
	flags.StringVar(&a.annexPath, "annex", "", "annex workbook or CSV (overrides config)")
	flags.StringVar(&a.logLevel, "log-level", "", "debug, info, warn or error")
	flags.StringVar(&a.logFormat, "log-format", "", "console or json")

	root.AddCommand(newAnalyzeCmd(a), newPrefixesCmd(a), newMapCmd(a))
	return root
}

func (a *app) setup(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadFile(a.configPath)
	if err != nil {
		return err
	}
	if a.annexPath != "" {
		cfg.Annex.Path = a.annexPath
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	if a.logFormat != "" {
		cfg.Log.Format = a.logFormat
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	logger, err := logging.New(cfg.Log.Format, cfg.Log.Level)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	a.cfg = cfg
	a.logger = logger
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
