package correction

import (
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/hybridsim/internal/dynamo"
	"github.com/san-kum/hybridsim/internal/transform"
)

// controlError returns kInit*(dMeas - dTrial).
func controlError(kInit *mat.Dense, dMeas, dTrial dynamo.Vector) dynamo.Vector {
	e := dMeas.Sub(dTrial)
	return transform.MulVec(kInit, e, false)
}

// IMod removes the force the specimen carries because the actuator missed
// the commanded displacement: q - kInit*(dMeas - dTrial).
func IMod(q dynamo.Vector, kInit *mat.Dense, dMeas, dTrial dynamo.Vector) dynamo.Vector {
	return q.Sub(controlError(kInit, dMeas, dTrial))
}

// SharedIMod applies the same correction, but the summed correction of the
// directions in a group is split among them by the group ratios. Directions
// outside every group are corrected directly.
func SharedIMod(q dynamo.Vector, kInit *mat.Dense, dMeas, dTrial dynamo.Vector, groups []transform.SensorGroup) dynamo.Vector {
	delta := controlError(kInit, dMeas, dTrial)
	out := q.Clone()
	grouped := make([]bool, len(q))
	for _, grp := range groups {
		sum := 0.0
		for _, d := range grp.Dirs {
			if d >= 0 && d < len(delta) {
				sum += delta[d]
			}
		}
		for i, d := range grp.Dirs {
			if d < 0 || d >= len(out) || i >= len(grp.Ratios) {
				continue
			}
			out[d] -= grp.Ratios[i] * sum
			grouped[d] = true
		}
	}
	for i := range out {
		if !grouped[i] && i < len(delta) {
			out[i] -= delta[i]
		}
	}
	return out
}

// FallbackZero substitutes kInit[i][i]*dTrial[i] for every channel whose raw
// measured value is exactly zero. It returns the corrected vector and the
// substituted indices.
func FallbackZero(q, raw dynamo.Vector, kInit *mat.Dense, dTrial dynamo.Vector) (dynamo.Vector, []int) {
	out := q.Clone()
	var replaced []int
	r, c := kInit.Dims()
	for i := range out {
		if i >= len(raw) || raw[i] != 0 {
			continue
		}
		if i >= r || i >= c || i >= len(dTrial) {
			continue
		}
		out[i] = kInit.At(i, i) * dTrial[i]
		replaced = append(replaced, i)
	}
	return out, replaced
}
