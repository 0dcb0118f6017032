package tables

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/tealeg/xlsx"

	"github.com/quarree100/q100opt/core/scenario"
)

// ReadWorkbook reads every sheet of an xlsx workbook as a table. The first
// row is the header. Numeric timestamps in the Timeseries sheet are Excel
// serial dates.
func ReadWorkbook(path string) (scenario.Tables, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("tables: opening xlsx file: %v", err)
	}
	ts := scenario.Tables{}
	for _, sheet := range f.Sheets {
		if len(sheet.Rows) == 0 {
			continue
		}
		var header []string
		for _, c := range sheet.Rows[0].Cells {
			header = append(header, strings.TrimSpace(c.Value))
		}
		for len(header) > 0 && header[len(header)-1] == "" {
			header = header[:len(header)-1]
		}
		t := scenario.NewTable(sheet.Name, header...)
		for _, row := range sheet.Rows[1:] {
			cells := make([]any, len(header))
			blank := true
			for i, c := range row.Cells {
				if i >= len(header) {
					break
				}
				cells[i] = workbookCell(c, header[i] == "timestamp" && sheet.Name == scenario.TableTimeseries, f.Date1904)
				if cells[i] != nil {
					blank = false
				}
			}
			if !blank {
				t.Append(cells...)
			}
		}
		ts.Add(t)
	}
	return ts, nil
}

func workbookCell(c *xlsx.Cell, timestamp, date1904 bool) any {
	if c == nil {
		return nil
	}
	switch c.Type() {
	case xlsx.CellTypeBool:
		return c.Bool()
	case xlsx.CellTypeNumeric:
		if v, err := c.Float(); err == nil {
			if timestamp {
				return xlsx.TimeFromExcelTime(v, date1904)
			}
			return v
		}
	}
	if timestamp {
		if v, err := strconv.ParseFloat(strings.TrimSpace(c.Value), 64); err == nil {
			return xlsx.TimeFromExcelTime(v, date1904)
		}
	}
	return cell(c.Value)
}
