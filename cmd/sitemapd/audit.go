package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dacars/sitemapd/internal/crawler"
)

var (
	auditSitemap string
	auditLimit   int
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Crawl the sitemap URLs and check canonical, hreflang and lang tags",
	RunE:  runAudit,
}

func init() {
	auditCmd.Flags().StringVar(&auditSitemap, "sitemap", "", "audit an existing sitemap (URL or file) instead of building one")
	auditCmd.Flags().IntVar(&auditLimit, "limit", 0, "audit at most this many URLs (0 = all)")
}

func runAudit(cmd *cobra.Command, args []string) error {
	a, err := newApp(cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()
	ctx := cmd.Context()

	var urls []string
	if auditSitemap != "" {
		urls, err = crawler.LoadSitemapURLs(ctx, auditSitemap, cfg.Audit.UserAgent)
		if err != nil {
			return err
		}
	} else {
		res, err := a.build(ctx)
		if err != nil {
			return err
		}
		for _, r := range res.Records {
			urls = append(urls, r.URL)
		}
	}
	if auditLimit > 0 && len(urls) > auditLimit {
		urls = urls[:auditLimit]
	}

	auditor := crawler.NewAuditor(crawler.AuditorConfig{
		UserAgent:   cfg.Audit.UserAgent,
		Parallelism: cfg.Audit.Parallelism,
		Timeout:     cfg.AuditTimeout(),
		Locales:     a.registry.Locales(),
	}, logger.Named("audit"))

	results, err := auditor.Audit(ctx, urls)
	if a.store != nil && len(results) > 0 {
		if saveErr := a.store.SaveAuditResults(ctx, results); saveErr != nil {
			logger.Error("failed to save audit results", zap.Error(saveErr))
		}
	}
	if err != nil {
		return err
	}

	failing := 0
	out := cmd.OutOrStdout()
	for _, r := range results {
		if r.OK() {
			continue
		}
		failing++
		for _, issue := range r.Issues {
			fmt.Fprintf(out, "%s\t%d\t%s\n", r.URL, r.StatusCode, issue)
		}
	}
	fmt.Fprintf(out, "audited %d URLs, %d with issues\n", len(results), failing)

	if failing > 0 {
		return fmt.Errorf("%d of %d URLs have issues", failing, len(results))
	}
	return nil
}
