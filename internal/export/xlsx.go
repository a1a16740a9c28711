package export

import (
	"fmt"
	"io"
	"math"
	"sort"

	"github.com/xuri/excelize/v2"

	"github.com/san-kum/hybridsim/internal/sim"
)

var nan = math.NaN()

const (
	responseSheet = "Response"
	metricsSheet  = "Metrics"
)

// Workbook lays a result out as a "Response" sheet in the Header/Rows
// layout and a "Metrics" sheet of name/value pairs.
func Workbook(res *sim.Result) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", responseSheet); err != nil {
		f.Close()
		return nil, err
	}

	header := Header(res)
	if err := f.SetSheetRow(responseSheet, "A1", &header); err != nil {
		f.Close()
		return nil, err
	}
	for i, row := range Rows(res) {
		cells := make([]interface{}, len(row))
		for j, v := range row {
			if !math.IsNaN(v) && !math.IsInf(v, 0) {
				cells[j] = v
			}
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			f.Close()
			return nil, err
		}
		if err := f.SetSheetRow(responseSheet, cell, &cells); err != nil {
			f.Close()
			return nil, err
		}
	}
	if err := f.SetPanes(responseSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		f.Close()
		return nil, err
	}

	if _, err := f.NewSheet(metricsSheet); err != nil {
		f.Close()
		return nil, err
	}
	names := make([]string, 0, len(res.Metrics))
	for name := range res.Metrics {
		names = append(names, name)
	}
	sort.Strings(names)
	for i, name := range names {
		row := []interface{}{name, res.Metrics[name]}
		if err := f.SetSheetRow(metricsSheet, fmt.Sprintf("A%d", i+1), &row); err != nil {
			f.Close()
			return nil, err
		}
	}
	return f, nil
}

func WriteXLSX(w io.Writer, res *sim.Result) error {
	f, err := Workbook(res)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.Write(w)
}

func SaveXLSX(path string, res *sim.Result) error {
	f, err := Workbook(res)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.SaveAs(path)
}
