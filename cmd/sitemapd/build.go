package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dacars/sitemapd/internal/sitemap"
)

var buildOut string

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build the sitemap once and write it to disk",
	RunE:  runBuild,
}

func init() {
	buildCmd.Flags().StringVarP(&buildOut, "out", "o", "", "output file (default build.output)")
}

func runBuild(cmd *cobra.Command, args []string) error {
	a, err := newApp(cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	res, err := a.build(cmd.Context())
	if err != nil {
		return err
	}

	out, err := sitemap.MarshalXML(res.Records)
	if err != nil {
		return err
	}

	path := buildOut
	if path == "" {
		path = cfg.Build.Output
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	if err := os.WriteFile(path, out, 0644); err != nil {
		return fmt.Errorf("write sitemap: %w", err)
	}

	logger.Info("sitemap written",
		zap.String("path", path),
		zap.Int("urls", len(res.Records)),
		zap.String("blogSource", string(res.Source)),
	)
	return nil
}
