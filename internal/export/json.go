package export

import (
	"encoding/json"
	"io"
	"math"

	"github.com/san-kum/hybridsim/internal/sim"
)

// Data is the JSON form of a result: Header columns and Rows values, with
// non-finite values written as 0.
type Data struct {
	Name       string             `json:"name"`
	Integrator string             `json:"integrator"`
	Dt         float64            `json:"dt"`
	Duration   float64            `json:"duration"`
	Steps      int                `json:"steps"`
	Columns    []string           `json:"columns"`
	Rows       [][]float64        `json:"rows"`
	Metrics    map[string]float64 `json:"metrics"`
}

func WriteJSON(w io.Writer, name, integrator string, dt, duration float64, res *sim.Result) error {
	rows := Rows(res)
	for _, row := range rows {
		for i, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				row[i] = 0
			}
		}
	}
	data := Data{
		Name:       name,
		Integrator: integrator,
		Dt:         dt,
		Duration:   duration,
		Steps:      res.StepsTaken,
		Columns:    Header(res),
		Rows:       rows,
		Metrics:    res.Metrics,
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}
