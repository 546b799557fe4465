package cmd

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/maria2021831011/NoteWhisper/internal/output"
	"github.com/maria2021831011/NoteWhisper/internal/store"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history [run-id]",
	Short: "List recent runs, or show the report of one run",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "number of runs to list")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true
	db, err := store.Open(cfg.Cache.Path, 0)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx := context.Background()
	w := cmd.OutOrStdout()

	if len(args) == 1 {
		run, err := db.GetRun(ctx, args[0])
		if err != nil {
			return fmt.Errorf("run %s: %w", args[0], err)
		}
		fmt.Fprintf(w, "run %s (%s) on %s\n", run.ID, run.Command, run.CreatedAt.Format(time.RFC3339))
		report := output.NewReport(run)
		fmt.Fprintf(w, "state %s, %d segments, %d degraded\n", report.State, report.Segments, report.Degraded)
		for _, u := range report.Units {
			fmt.Fprintf(w, "  lost %s %s: %s\n", u.Stage, u.Unit, u.Reason)
		}
		return nil
	}

	runs, err := db.ListRuns(ctx, historyLimit)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCOMMAND\tSTATE\tCREATED\tAUDIO")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			r.ID, r.Command, r.State, r.CreatedAt.Format(time.DateTime), r.AudioPath)
	}
	return tw.Flush()
}
