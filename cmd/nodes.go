package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/quarree100/q100opt/app"
	"github.com/quarree100/q100opt/core/model"
)

var nodesCmd = &cobra.Command{
	Use:   "nodes [scenario]",
	Short: "List the objects created from a scenario",
	Args:  cobra.MaximumNArgs(1),
	RunE:  listNodes,
}

func init() {
	f := nodesCmd.Flags()
	f.StringVar(&runFlags.format, "format", "", "scenario format: xlsx, csv or yaml (default: detect)")
	f.StringVar(&runFlags.separator, "separator", "", "csv field separator")
	rootCmd.AddCommand(nodesCmd)
}

func listNodes(cmd *cobra.Command, args []string) error {
	req, err := request(cmd, args)
	if err != nil {
		return err
	}
	topo, err := app.LoadTopology(cfg.Scenario, req)
	if err != nil {
		return err
	}
	byKind := map[model.Kind][]string{}
	for _, n := range topo.Nodes() {
		byKind[n.Kind()] = append(byKind[n.Kind()], n.Name())
	}
	out := cmd.OutOrStdout()
	idx := topo.Index()
	fmt.Fprintf(out, "%d time steps of %s from %s\n", idx.Len(), idx.Step, idx.Start.Format("2006-01-02 15:04"))
	for _, k := range []model.Kind{model.KindBus, model.KindSource, model.KindSink, model.KindConverter, model.KindStorage} {
		labels := byKind[k]
		if len(labels) == 0 {
			continue
		}
		fmt.Fprintf(out, "%s (%d): %s\n", k, len(labels), strings.Join(labels, ", "))
	}
	if limit, ok := topo.EmissionLimit(); ok {
		fmt.Fprintf(out, "emission limit: %g\n", limit)
	}
	return nil
}
