package plot

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quarree100/q100opt/core/compiler"
	"github.com/quarree100/q100opt/core/model"
	"github.com/quarree100/q100opt/core/results"
	"github.com/quarree100/q100opt/core/solver"
)

var start = time.Date(2016, 1, 1, 0, 0, 0, 0, time.UTC)

func solve(t *testing.T, topo *model.Topology) *results.ResultSet {
	t.Helper()
	prog, err := compiler.Build(topo, topo.Index())
	require.NoError(t, err)
	sol, err := solver.NewSimplex(0).Solve(context.Background(), prog.Problem)
	require.NoError(t, err)
	res, err := results.Extract(prog, sol, topo)
	require.NoError(t, err)
	return res
}

func storageResult(t *testing.T) *results.ResultSet {
	topo := model.NewTopology(model.Hourly(start, 2))
	require.NoError(t, topo.Add(
		&model.Bus{Label: "b_el"},
		&model.Source{Label: "grid", Bus: "b_el", Output: model.Flow{
			VariableCost: model.Sequence{1, 5},
			Investment:   &model.Investment{Capex: 1, Lifetime: 1},
		}},
		&model.Sink{Label: "demand", Bus: "b_el", Input: model.Flow{Fixed: true, Profile: model.Sequence{0, 10}, NominalValue: model.Float(1)}},
		&model.Storage{Label: "battery", Bus: "b_el", InflowEfficiency: 1, OutflowEfficiency: 1,
			Investment: &model.Investment{Capex: 4380, Lifetime: 1}},
	))
	return solve(t, topo)
}

func TestPageCharts(t *testing.T) {
	page := Page("report", storageResult(t))
	// bus, flow investments, storage investments, storage level
	assert.Len(t, page.Charts, 4)
	assert.Equal(t, "report", page.PageTitle)
}

func TestPageWithoutInvestments(t *testing.T) {
	topo := model.NewTopology(model.Hourly(start, 1))
	require.NoError(t, topo.Add(
		&model.Bus{Label: "b_heat"},
		&model.Source{Label: "boiler", Bus: "b_heat", Output: model.Flow{VariableCost: model.Constant(1)}},
		&model.Sink{Label: "demand", Bus: "b_heat", Input: model.Flow{Fixed: true, Profile: model.Sequence{3}, NominalValue: model.Float(1)}},
	))
	page := Page("heat", solve(t, topo))
	assert.Len(t, page.Charts, 1)
}

func TestRender(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, "report", storageResult(t)))
	html := buf.String()
	assert.Contains(t, html, "echarts")
	assert.Contains(t, html, "b_el")
	assert.Contains(t, html, "Storage level")
	assert.Contains(t, html, "2016-01-01 01:00")
}

func TestWriteHTML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.html")
	require.NoError(t, WriteHTML(path, "report", storageResult(t)))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "<html")
}

func TestTitle(t *testing.T) {
	assert.Equal(t, "q100opt run r1 (2016-01-01T00:00:00Z)", Title("r1", start))
}
