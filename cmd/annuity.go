package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/quarree100/q100opt/core/economics"
	"github.com/quarree100/q100opt/core/model"
)

var annuityFlags struct {
	capex     float64
	lifetime  float64
	rate      float64
	timesteps int
}

var annuityCmd = &cobra.Command{
	Use:   "annuity",
	Short: "Compute the annuity and the periodic costs of an investment",
	Args:  cobra.NoArgs,
	RunE:  annuity,
}

func init() {
	f := annuityCmd.Flags()
	f.Float64Var(&annuityFlags.capex, "capex", 0, "capital expenditure per unit")
	f.Float64Var(&annuityFlags.lifetime, "lifetime", 20, "lifetime in years")
	f.Float64Var(&annuityFlags.rate, "rate", 0.05, "discount rate")
	f.IntVar(&annuityFlags.timesteps, "timesteps", model.HoursPerYear, "hourly time steps of the horizon")
	rootCmd.AddCommand(annuityCmd)
}

func annuity(cmd *cobra.Command, args []string) error {
	a, err := economics.Annuity(annuityFlags.capex, annuityFlags.lifetime, annuityFlags.rate)
	if err != nil {
		return err
	}
	fraction := float64(annuityFlags.timesteps) / model.HoursPerYear
	ep, err := economics.EPCosts(annuityFlags.capex, annuityFlags.lifetime, annuityFlags.rate, fraction)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "annuity:  %.6f\n", a)
	fmt.Fprintf(out, "ep costs: %.6f (%d time steps)\n", ep, annuityFlags.timesteps)
	return nil
}
