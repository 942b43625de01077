package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"channel-digest/internal/domain/entity"
	"channel-digest/internal/usecase/poll"
)

const reprocessReason = "manual reprocess"

func newCycleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cycle",
		Short: "Run one poll cycle now",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := resolveSession(cmd.Context())
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if _, err := s.pipeline.Repos.Counter.EnsureAPIID(ctx, s.app.Pipeline.APIIDStart); err != nil {
				return fmt.Errorf("ensure api id: %w", err)
			}
			stats, err := s.pipeline.Scheduler.RunCycle(ctx)
			if err != nil {
				return err
			}
			printStats(cmd.OutOrStdout(), stats)
			return nil
		},
	}
}

func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Run the cold-start sequence and its first cycle",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := resolveSession(cmd.Context())
			if err != nil {
				return err
			}
			stats, err := s.pipeline.Initializer.Run(cmd.Context())
			if err != nil {
				return err
			}
			printStats(cmd.OutOrStdout(), stats)
			return nil
		},
	}
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <message-id>",
		Short: "Show how a message id was handled",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := resolveSession(cmd.Context())
			if err != nil {
				return err
			}
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			st, err := s.pipeline.Articles.Status(cmd.Context(), id)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "message %d: %s\n", st.ID, st.Status)
			if f := st.Failure; f != nil {
				fmt.Fprintf(out, "  reason:  %s\n  failed:  %s\n  expires: %s\n",
					f.Reason, f.FailedAt.Format("2006-01-02 15:04:05Z07:00"), f.ExpiresAt.Format("2006-01-02 15:04:05Z07:00"))
			}
			return nil
		},
	}
}

func newReprocessCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "reprocess <message-id>",
		Short: "Fetch one message and process it again",
		Long: `Fetches the message from the channel and runs it through the processor.
A failure record is written first so the processed gate lets it through.
Messages that already produced an article need --force; the article is
replaced and receives a new API id.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := resolveSession(cmd.Context())
			if err != nil {
				return err
			}
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			status, err := s.pipeline.Repos.Ledger.Status(ctx, id)
			switch {
			case errors.Is(err, entity.ErrNotFound):
			case err != nil:
				return err
			case status == entity.StatusStored && !force:
				return fmt.Errorf("message %d already stored; use --force to replace it", id)
			}

			msgs, err := s.pipeline.Channel.FetchByIDs(ctx, []int64{id})
			if err != nil {
				return fmt.Errorf("fetch message %d: %w", id, err)
			}
			if len(msgs) == 0 {
				return fmt.Errorf("message %d not found in channel", id)
			}
			if _, err := s.pipeline.Repos.Counter.EnsureAPIID(ctx, s.app.Pipeline.APIIDStart); err != nil {
				return fmt.Errorf("ensure api id: %w", err)
			}
			if err := s.pipeline.Repos.Failures.Record(ctx, id, reprocessReason, s.app.Pipeline.FailureTTL); err != nil {
				return fmt.Errorf("open gate: %w", err)
			}

			outcome, err := s.pipeline.Processor.Retry(ctx, msgs[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "message %d: %s\n", id, outcome)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "reprocess even if an article exists")
	return cmd
}

func newArticlesCmd() *cobra.Command {
	var (
		limit  int
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "articles",
		Short: "List cached articles, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := resolveSession(cmd.Context())
			if err != nil {
				return err
			}
			articles, err := s.pipeline.Articles.List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(articles)
			}
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "API ID\tMSG ID\tDATE\tHEADLINE")
			for _, a := range articles {
				fmt.Fprintf(tw, "%d\t%d\t%s\t%s\n", a.APIID, a.ID, a.Date.Format("2006-01-02 15:04"), a.Headline)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "show at most n articles (0 = all)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid message id %q", s)
	}
	return id, nil
}

func printStats(w io.Writer, st poll.CycleStats) {
	fmt.Fprintf(w, "cycle %s: stored=%d skipped=%d failed=%d backfilled=%d forwarded=%d retried=%d fetch_errors=%d hwm=%d (%s)\n",
		st.CycleID, st.Stored, st.Skipped, st.Failed, st.Backfilled, st.Forwarded, st.Retried,
		st.FetchErrors, st.HighWaterMark, st.Duration.Round(time.Millisecond))
}
