// Package plot renders a result set as an HTML page of echarts charts.
package plot

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/quarree100/q100opt/core/model"
	"github.com/quarree100/q100opt/core/results"
)

// Page builds the report: one line chart per bus, bar charts of the flow
// and storage investments and a line chart of the storage levels.
func Page(title string, res *results.ResultSet) *components.Page {
	page := components.NewPage()
	page.PageTitle = title

	xAxis := make([]string, len(res.Index))
	for i, ts := range res.Index {
		xAxis[i] = ts.Format("2006-01-02 15:04")
	}

	for _, n := range res.Nodes {
		if n.NodeKind() != model.KindBus || len(n.Sequences) == 0 {
			continue
		}
		page.AddCharts(lineChart(n.Label, "Flow", xAxis, n.Sequences))
	}

	var flows, storages []results.Investment
	for _, inv := range res.Investments() {
		if inv.Flow == "" {
			storages = append(storages, inv)
		} else {
			flows = append(flows, inv)
		}
	}
	if len(flows) > 0 {
		page.AddCharts(barChart("Invested capacity", flows))
	}
	if len(storages) > 0 {
		page.AddCharts(barChart("Invested storage capacity", storages))
	}

	var soc []results.Column
	for _, n := range res.Nodes {
		if n.NodeKind() != model.KindStorage {
			continue
		}
		if v, ok := n.Sequence("soc"); ok {
			soc = append(soc, results.Column{Name: n.Label, Values: v})
		}
	}
	if len(soc) > 0 {
		page.AddCharts(lineChart("Storage level", "Level", xAxis, soc))
	}
	return page
}

func lineChart(title, unit string, xAxis []string, cols []results.Column) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: title}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Time"}),
		charts.WithYAxisOpts(opts.YAxis{Name: unit}),
	)
	line.SetXAxis(xAxis)
	for _, c := range cols {
		data := make([]opts.LineData, len(c.Values))
		for i, v := range c.Values {
			data[i] = opts.LineData{Value: v}
		}
		line.AddSeries(c.Name, data)
	}
	return line
}

func barChart(title string, invs []results.Investment) *charts.Bar {
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: title}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Capacity"}),
	)
	labels := make([]string, len(invs))
	invest := make([]opts.BarData, len(invs))
	existing := make([]opts.BarData, len(invs))
	for i, inv := range invs {
		labels[i] = inv.Label
		if inv.Flow != "" {
			labels[i] = inv.Flow
		}
		invest[i] = opts.BarData{Value: inv.Invest}
		existing[i] = opts.BarData{Value: inv.Existing}
	}
	bar.SetXAxis(labels).
		AddSeries("invest", invest).
		AddSeries("existing", existing)
	return bar
}

// Render writes the report to w.
func Render(w io.Writer, title string, res *results.ResultSet) error {
	if err := Page(title, res).Render(w); err != nil {
		return fmt.Errorf("failed to render report: %w", err)
	}
	return nil
}

// WriteHTML writes the report to path.
func WriteHTML(path, title string, res *results.ResultSet) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := Render(f, title, res); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// Title names a report after its run.
func Title(runID string, at time.Time) string {
	return fmt.Sprintf("q100opt run %s (%s)", runID, at.Format(time.RFC3339))
}
