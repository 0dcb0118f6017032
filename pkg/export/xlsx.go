package export

import (
	"time"

	"github.com/tealeg/xlsx"

	"github.com/quarree100/q100opt/core/model"
	"github.com/quarree100/q100opt/core/results"
)

// WriteWorkbook writes a workbook with a Timeseries sheet holding every
// bus column and an Invest sheet holding the invested capacities.
func WriteWorkbook(path string, res *results.ResultSet) error {
	f := xlsx.NewFile()
	series, err := f.AddSheet("Timeseries")
	if err != nil {
		return err
	}
	var buses []results.NodeResult
	for _, n := range res.Nodes {
		if n.NodeKind() == model.KindBus {
			buses = append(buses, n)
		}
	}
	header := series.AddRow()
	header.AddCell().SetString("timestamp")
	for _, b := range buses {
		for _, c := range b.Sequences {
			header.AddCell().SetString(b.Label + ": " + c.Name)
		}
	}
	for t, ts := range res.Index {
		row := series.AddRow()
		row.AddCell().SetString(ts.Format(time.RFC3339))
		for _, b := range buses {
			for _, c := range b.Sequences {
				cell := row.AddCell()
				if t < len(c.Values) {
					cell.SetFloat(c.Values[t])
				}
			}
		}
	}

	invest, err := f.AddSheet("Invest")
	if err != nil {
		return err
	}
	header = invest.AddRow()
	for _, h := range []string{"label", "flow", "invest", "existing", "total"} {
		header.AddCell().SetString(h)
	}
	for _, inv := range res.Investments() {
		row := invest.AddRow()
		row.AddCell().SetString(inv.Label)
		row.AddCell().SetString(inv.Flow)
		row.AddCell().SetFloat(inv.Invest)
		row.AddCell().SetFloat(inv.Existing)
		row.AddCell().SetFloat(inv.Total())
	}
	return f.Save(path)
}
