package main

import (
	"fmt"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/polyglot-bot/polyglot/internal/history"
)

func newHistoryCmd(flags *rootFlags) *cobra.Command {
	var (
		limit int
		path  string
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent translation requests from the history database",
		RunE: func(cmd *cobra.Command, args []string) error {
			if path == "" {
				cfg, err := loadConfig(cmd, flags)
				if err != nil {
					return err
				}
				path = cfg.History.Path
			}
			store, err := history.OpenStore(path)
			if err != nil {
				return err
			}
			defer store.Close()

			records, err := store.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			counts, err := store.OutcomeCounts(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "TIME\tWHEN\tLANG\tSTATE\tDELIVERY\tCHUNKS\tSOURCE\tDURATION\tDETAIL")
			for _, rec := range records {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\t%s\t%s\t%s\n",
					rec.Time.Format(time.RFC3339), humanize.Time(rec.Time), rec.Language, rec.State, rec.Delivery,
					rec.Chunks, humanize.Comma(int64(rec.SourceLength)), rec.Duration, rec.Detail)
			}
			if err := w.Flush(); err != nil {
				return err
			}

			states := make([]string, 0, len(counts))
			for state := range counts {
				states = append(states, state)
			}
			sort.Strings(states)
			for _, state := range states {
				fmt.Fprintf(out, "%s: %d\n", state, counts[state])
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "number of requests to show")
	cmd.Flags().StringVar(&path, "db", "", "history database path (defaults to history.path from config)")
	return cmd
}
