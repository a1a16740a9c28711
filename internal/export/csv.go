package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/san-kum/hybridsim/internal/sim"
)

// Header names the columns of a result table. The layout is taken from the
// first sample: time, ground, u<eq>, then trial, measured and force per
// element and basic direction.
func Header(res *sim.Result) []string {
	header := []string{"time", "ground"}
	if len(res.Samples) == 0 {
		return header
	}
	first := res.Samples[0]
	for i := range first.Disp {
		header = append(header, fmt.Sprintf("u%d", i))
	}
	for _, es := range first.Elements {
		for _, q := range []string{"trial", "measured", "force"} {
			for i := range es.Trial {
				header = append(header, fmt.Sprintf("e%d_%s%d", es.ID, q, i))
			}
		}
	}
	return header
}

// Rows returns one numeric row per sample matching Header. Missing values
// are NaN.
func Rows(res *sim.Result) [][]float64 {
	width := len(Header(res))
	rows := make([][]float64, 0, len(res.Samples))
	for _, s := range res.Samples {
		row := make([]float64, 0, width)
		row = append(row, s.Time, s.Ground)
		row = append(row, s.Disp...)
		for _, es := range s.Elements {
			row = append(row, es.Trial...)
			row = append(row, es.Measured...)
			row = append(row, es.Force...)
		}
		rows = append(rows, pad(row, width))
	}
	return rows
}

func pad(row []float64, width int) []float64 {
	for len(row) < width {
		row = append(row, nan)
	}
	return row[:width]
}

func WriteCSV(w io.Writer, res *sim.Result) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header(res)); err != nil {
		return err
	}
	for _, row := range Rows(res) {
		rec := make([]string, len(row))
		for i, v := range row {
			rec[i] = strconv.FormatFloat(v, 'g', -1, 64)
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
