package sim

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
)

type Sine struct {
	Amplitude float64
	Period    float64
	Cycles    float64 // zero for unbounded
}

func (s Sine) Accel(t float64) float64 {
	if s.Period <= 0 || t < 0 {
		return 0
	}
	if s.Cycles > 0 && t > s.Cycles*s.Period {
		return 0
	}
	return s.Amplitude * math.Sin(2*math.Pi*t/s.Period)
}

// Record is a sampled acceleration history, linearly interpolated and zero
// outside its span.
type Record struct {
	Dt     float64
	Values []float64
	Scale  float64
}

func (r Record) Accel(t float64) float64 {
	if r.Dt <= 0 || len(r.Values) == 0 || t < 0 {
		return 0
	}
	scale := r.Scale
	if scale == 0 {
		scale = 1
	}
	x := t / r.Dt
	i := int(x)
	if i >= len(r.Values)-1 {
		if i == len(r.Values)-1 && x == float64(i) {
			return scale * r.Values[i]
		}
		return 0
	}
	f := x - float64(i)
	return scale * (r.Values[i]*(1-f) + r.Values[i+1]*f)
}

func (r Record) Duration() float64 { return r.Dt * float64(len(r.Values)-1) }

// Scaled multiplies another motion by a constant factor.
type Scaled struct {
	Motion GroundMotion
	Factor float64
}

func (s Scaled) Accel(t float64) float64 { return s.Factor * s.Motion.Accel(t) }

// ReadRecord parses an acceleration record. Each row holds either one value
// or a time and a value; the time column, when present, fixes the step.
func ReadRecord(r io.Reader, dt float64) (Record, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.Comment = '#'
	cr.TrimLeadingSpace = true

	rec := Record{Dt: dt, Scale: 1}
	var times []float64
	for line := 1; ; line++ {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return Record{}, fmt.Errorf("record line %d: %w", line, err)
		}
		if len(row) == 0 || strings.TrimSpace(row[0]) == "" {
			continue
		}
		vals := make([]float64, len(row))
		for i, field := range row {
			v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
			if err != nil {
				if line == 1 {
					vals = nil
					break
				}
				return Record{}, fmt.Errorf("record line %d: %w", line, err)
			}
			vals[i] = v
		}
		switch len(vals) {
		case 0:
			continue
		case 1:
			rec.Values = append(rec.Values, vals[0])
		default:
			times = append(times, vals[0])
			rec.Values = append(rec.Values, vals[1])
		}
	}
	if len(rec.Values) == 0 {
		return Record{}, fmt.Errorf("record is empty")
	}
	if len(times) >= 2 {
		rec.Dt = times[1] - times[0]
	}
	if rec.Dt <= 0 {
		return Record{}, fmt.Errorf("record step must be positive, got %g", rec.Dt)
	}
	return rec, nil
}

func LoadRecord(path string, dt float64) (Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return Record{}, err
	}
	defer f.Close()
	return ReadRecord(f, dt)
}
