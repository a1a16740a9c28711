package correction

import "gonum.org/v1/gonum/mat"

// Rayleigh holds the factors of C = alphaM*M + betaK*K + betaK0*K0 + betaKc*Kc.
type Rayleigh struct {
	AlphaM float64 `yaml:"alpha_m" mapstructure:"alpha_m"`
	BetaK  float64 `yaml:"beta_k" mapstructure:"beta_k"`
	BetaK0 float64 `yaml:"beta_k0" mapstructure:"beta_k0"`
	BetaKc float64 `yaml:"beta_kc" mapstructure:"beta_kc"`
}

func (r Rayleigh) IsZero() bool {
	return r.AlphaM == 0 && r.BetaK == 0 && r.BetaK0 == 0 && r.BetaKc == 0
}

// Damp assembles the damping matrix of size n. Nil matrices are skipped.
func (r Rayleigh) Damp(n int, m, k, k0, kc *mat.Dense) *mat.Dense {
	out := mat.NewDense(n, n, nil)
	terms := []struct {
		f float64
		a *mat.Dense
	}{{r.AlphaM, m}, {r.BetaK, k}, {r.BetaK0, k0}, {r.BetaKc, kc}}
	var scaled mat.Dense
	for _, t := range terms {
		if t.f == 0 || t.a == nil {
			continue
		}
		if rr, cc := t.a.Dims(); rr != n || cc != n {
			continue
		}
		scaled.Scale(t.f, t.a)
		out.Add(out, &scaled)
	}
	return out
}
