package main

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/creatorlink/creatorlink/internal/cache"
	"github.com/creatorlink/creatorlink/internal/metrics"
	"github.com/creatorlink/creatorlink/internal/repository"
	"github.com/creatorlink/creatorlink/internal/tracking"
)

var generateLinksCmd = &cobra.Command{
	Use:   "generate-links",
	Short: "Generate (or reuse) a creator's tracking links for a campaign",
	RunE:  runGenerateLinks,
}

var (
	linksCampaignID string
	linksCreatorID  string
)

func init() {
	generateLinksCmd.Flags().StringVar(&linksCampaignID, "campaign", "", "Campaign id")
	generateLinksCmd.Flags().StringVar(&linksCreatorID, "creator", "", "Creator user id")
	_ = generateLinksCmd.MarkFlagRequired("campaign")
	_ = generateLinksCmd.MarkFlagRequired("creator")
}

func runGenerateLinks(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	repo, err := repository.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer repo.Close()

	cacheClient, err := cache.New(ctx, cfg.RedisURL)
	if err != nil {
		return err
	}
	defer cacheClient.Close()

	svc := tracking.NewService(repo, cacheClient, tracking.Config{
		BaseURL:           cfg.BaseURL,
		QRServiceURL:      cfg.QRServiceURL,
		VisitorHashSecret: cfg.VisitorHashSecret,
	}, metrics.NewNoop(), cliLogger())

	links, err := svc.GenerateCreatorLinks(ctx, linksCampaignID, linksCreatorID)
	if errors.Is(err, tracking.ErrNoCTALinks) {
		fmt.Fprintln(cmd.OutOrStdout(), "Campaign has no CTA links; nothing to generate.")
		return nil
	}
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CODE\tPRIMARY\tCLICKS\tSHORT URL\tDESTINATION")
	for _, l := range links {
		fmt.Fprintf(tw, "%s\t%t\t%d\t%s\t%s\n", l.TrackingCode, l.IsPrimary, l.ClickCount, l.ShortURL, l.OriginalURL)
	}
	return tw.Flush()
}
