package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/quarree100/q100opt/app"
	"github.com/quarree100/q100opt/infra/logger"
	"github.com/quarree100/q100opt/infra/tables"
)

var runFlags struct {
	format        string
	separator     string
	solver        string
	timeout       time.Duration
	emissionLimit float64
	timesteps     int
	out           string
	exports       []string
}

var runCmd = &cobra.Command{
	Use:   "run [scenario]",
	Short: "Optimise a scenario and export the results",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runScenario,
}

func init() {
	f := runCmd.Flags()
	f.StringVar(&runFlags.format, "format", "", "scenario format: xlsx, csv or yaml (default: detect)")
	f.StringVar(&runFlags.separator, "separator", "", "csv field separator")
	f.StringVar(&runFlags.solver, "solver", "", "solver backend, overrides solver.type")
	f.DurationVar(&runFlags.timeout, "timeout", 0, "solver time limit, overrides solver.timeout_seconds")
	f.Float64Var(&runFlags.emissionLimit, "emission-limit", 0, "emission limit, overrides the General table")
	f.IntVar(&runFlags.timesteps, "timesteps", 0, "optimise the first n time steps only")
	f.StringVar(&runFlags.out, "out", "", "results directory")
	f.StringSliceVar(&runFlags.exports, "export", nil, "export formats: csv, json, xlsx, html")
	rootCmd.AddCommand(runCmd)
}

func runScenario(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if runFlags.solver != "" {
		cfg.Solver.Type = runFlags.solver
	}
	if runFlags.timeout > 0 {
		cfg.Solver.TimeoutSeconds = timeoutSeconds(runFlags.timeout)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	req, err := request(cmd, args)
	if err != nil {
		return err
	}
	if runFlags.timesteps < 0 {
		return fmt.Errorf("timesteps must not be negative")
	}
	req.Timesteps = runFlags.timesteps
	req.OutDir = runFlags.out
	req.Formats = runFlags.exports

	svc, err := app.New(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := svc.Close(); err != nil {
			logger.New("main").Errorf("service close: %v", err)
		}
	}()
	rep, err := svc.Run(ctx, req)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "run:        %s\n", rep.RunID)
	fmt.Fprintf(out, "status:     %s\n", rep.Result.StatusText)
	fmt.Fprintf(out, "objective:  %.4f\n", rep.Result.Objective)
	fmt.Fprintf(out, "emission:   %.4f\n", rep.Result.TotalEmission)
	fmt.Fprintf(out, "problem:    %d variables, %d constraints\n", rep.Stats.Variables, rep.Stats.Constraints)
	for _, inv := range rep.Result.Investments() {
		name := inv.Label
		if inv.Flow != "" {
			name = inv.Flow
		}
		fmt.Fprintf(out, "invest:     %s %.4f (existing %.4f)\n", name, inv.Invest, inv.Existing)
	}
	for _, p := range rep.Files {
		fmt.Fprintf(out, "wrote:      %s\n", p)
	}
	return nil
}

// timeoutSeconds rounds d up to whole seconds so that a short positive
// limit never disables the timeout.
func timeoutSeconds(d time.Duration) int {
	return int((d + time.Second - 1) / time.Second)
}

// request collects the scenario flags shared by run and nodes.
func request(cmd *cobra.Command, args []string) (app.Request, error) {
	var req app.Request
	if len(args) == 1 {
		req.Scenario = args[0]
	}
	req.Tables = tables.Options{Format: runFlags.format}
	if runFlags.separator != "" {
		sep := []rune(runFlags.separator)
		if len(sep) != 1 {
			return req, fmt.Errorf("separator must be a single character")
		}
		req.Tables.Separator = sep[0]
	}
	if f := cmd.Flags().Lookup("emission-limit"); f != nil && f.Changed {
		limit := runFlags.emissionLimit
		req.EmissionLimit = &limit
	}
	return req, nil
}
