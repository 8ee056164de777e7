package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"propsweep/internal/export"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List past discovery runs",
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "Maximum number of runs to show")
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if _, err := os.Stat(cfg.Export.HistoryDB); os.IsNotExist(err) {
		fmt.Fprintln(out, "No runs recorded yet.")
		return nil
	}

	h, err := export.Open(cfg.Export.HistoryDB)
	if err != nil {
		return err
	}
	defer h.Close()

	runs, err := h.List(cmdContext(cmd), historyLimit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(out, "No runs recorded yet.")
		return nil
	}

	fmt.Fprintf(out, "Runs recorded in %s\n", h.Path())
	for _, r := range runs {
		expected := "-"
		if r.Expected != nil {
			expected = fmt.Sprintf("%d", *r.Expected)
		}
		status := "complete"
		if r.Interrupted {
			status = "interrupted"
		}
		best := "-"
		if len(r.Yields) > 0 {
			best = fmt.Sprintf("%s (%d)", r.Yields[0].Label, r.Yields[0].Yield)
		}
		fmt.Fprintf(out, "%s  %s  total=%d expected=%s failures=%d %s  top=%s  %s\n",
			shortID(r.ID),
			r.StartedAt.Local().Format(time.DateTime),
			r.Total, expected, len(r.Failures), status, best,
			r.FinishedAt.Sub(r.StartedAt).Round(time.Second))
	}
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
