package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dacars/sitemapd/config"
	"github.com/dacars/sitemapd/internal/utils"
)

var (
	cfgFile string
	verbose bool

	cfg       *config.Config
	logger    *zap.Logger
	closeLogs func() error
)

var rootCmd = &cobra.Command{
	Use:   "sitemapd",
	Short: "Builds and serves the localized DaCars sitemap",
	Long: `sitemapd discovers the statically routable pages of the site, merges them
with documentation and blog entries from the content API, and expands every
entry into one URL per locale.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.LoadConfig(cfgFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		level := cfg.Log.Level
		if verbose {
			level = "debug"
		}
		logger, closeLogs, err = utils.NewLogger("sitemapd "+cmd.Name(), level, cfg.Log.Dir)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
		if closeLogs != nil {
			_ = closeLogs()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ./config.yaml or ./config/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	rootCmd.AddCommand(serveCmd, buildCmd, auditCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
