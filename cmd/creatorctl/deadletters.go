package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/creatorlink/creatorlink/internal/cache"
	"github.com/creatorlink/creatorlink/internal/metrics"
	"github.com/creatorlink/creatorlink/internal/provisioning"
)

var deadLettersCmd = &cobra.Command{
	Use:   "dead-letters",
	Short: "Inspect and requeue link provisioning jobs that ran out of attempts",
}

var deadLettersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the most recent dead-lettered jobs",
	RunE:  runDeadLettersList,
}

var deadLettersRequeueCmd = &cobra.Command{
	Use:   "requeue [stream-id...]",
	Short: "Requeue dead-lettered jobs with a fresh attempt budget",
	Long:  "Requeues the given dead-letter entries, or every listed entry with --all.",
	RunE:  runDeadLettersRequeue,
}

var (
	deadLetterCount int64
	requeueAll      bool
)

func init() {
	deadLettersCmd.PersistentFlags().Int64Var(&deadLetterCount, "count", 50, "Maximum entries to read")
	deadLettersRequeueCmd.Flags().BoolVar(&requeueAll, "all", false, "Requeue every listed entry")

	deadLettersCmd.AddCommand(deadLettersListCmd)
	deadLettersCmd.AddCommand(deadLettersRequeueCmd)
}

func openPublisher(cmd *cobra.Command) (*provisioning.Publisher, func() error, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	cacheClient, err := cache.New(cmd.Context(), cfg.RedisURL)
	if err != nil {
		return nil, nil, err
	}
	return provisioning.NewPublisher(cacheClient.Client(), cliLogger(), metrics.NewNoop()), cacheClient.Close, nil
}

func runDeadLettersList(cmd *cobra.Command, args []string) error {
	pub, closeFn, err := openPublisher(cmd)
	if err != nil {
		return err
	}
	defer closeFn()

	entries, err := pub.ListDeadLetters(cmd.Context(), deadLetterCount)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No dead-lettered jobs.")
		return nil
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "STREAM ID\tINVITATION\tCAMPAIGN\tCREATOR\tATTEMPTS\tREASON\tLAST ERROR")
	for _, dl := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\t%s\n",
			dl.StreamID, dl.Job.InvitationID, dl.Job.CampaignID, dl.Job.CreatorUserID,
			dl.Job.Attempt, dl.Reason, dl.Job.LastError)
	}
	return tw.Flush()
}

func runDeadLettersRequeue(cmd *cobra.Command, args []string) error {
	if len(args) == 0 && !requeueAll {
		return fmt.Errorf("pass stream ids or --all")
	}

	pub, closeFn, err := openPublisher(cmd)
	if err != nil {
		return err
	}
	defer closeFn()

	entries, err := pub.ListDeadLetters(cmd.Context(), deadLetterCount)
	if err != nil {
		return err
	}

	wanted := make(map[string]bool, len(args))
	for _, id := range args {
		wanted[id] = true
	}

	requeued := 0
	for _, dl := range entries {
		if !requeueAll && !wanted[dl.StreamID] {
			continue
		}
		if err := pub.Requeue(cmd.Context(), dl); err != nil {
			return fmt.Errorf("requeue %s: %w", dl.StreamID, err)
		}
		delete(wanted, dl.StreamID)
		requeued++
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Requeued %d job(s).\n", requeued)
	for id := range wanted {
		fmt.Fprintf(cmd.ErrOrStderr(), "not found among the latest %d entries: %s\n", deadLetterCount, id)
	}
	return nil
}
