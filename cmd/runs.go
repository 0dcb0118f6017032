package cmd

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/quarree100/q100opt/core/runlog"
)

var runsFlags struct {
	scenario string
	status   string
	since    time.Duration
	limit    int
	json     bool
}

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Show the run history",
	Args:  cobra.NoArgs,
	RunE:  listRuns,
}

func init() {
	f := runsCmd.Flags()
	f.StringVar(&runsFlags.scenario, "scenario", "", "only runs of this scenario")
	f.StringVar(&runsFlags.status, "status", "", "only runs with this status")
	f.DurationVar(&runsFlags.since, "since", 0, "only runs newer than this")
	f.IntVar(&runsFlags.limit, "limit", 20, "most recent runs to show, 0 for all")
	f.BoolVar(&runsFlags.json, "json", false, "print records as JSON lines")
	rootCmd.AddCommand(runsCmd)
}

func listRuns(cmd *cobra.Command, args []string) error {
	store, err := runlog.Open(cfg.RunLog.Options())
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	q := runlog.RunQuery{Scenario: runsFlags.scenario, Status: runsFlags.status, Limit: runsFlags.limit}
	if runsFlags.since > 0 {
		q.Start = time.Now().Add(-runsFlags.since)
	}
	recs, err := store.Query(cmd.Context(), q)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if runsFlags.json {
		enc := json.NewEncoder(out)
		for _, r := range recs {
			if err := enc.Encode(r); err != nil {
				return err
			}
		}
		return nil
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tRUN\tSCENARIO\tSOLVER\tSTATUS\tOBJECTIVE\tEMISSION\tDURATION")
	for _, r := range recs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%.4f\t%.4f\t%s\n",
			r.Timestamp.Format(time.RFC3339), r.RunID, r.Scenario, r.Solver, r.Status,
			r.Objective, r.TotalEmission, time.Duration(r.DurationMS)*time.Millisecond)
	}
	return tw.Flush()
}
