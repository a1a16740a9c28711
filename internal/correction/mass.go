package correction

import "gonum.org/v1/gonum/mat"

// LumpedMass splits total mass equally over the translational DOFs of nodes.
func LumpedMass(ndm, ndf, nodes int, total float64) *mat.Dense {
	n := nodes * ndf
	out := mat.NewDense(n, n, nil)
	if total == 0 {
		return out
	}
	m := total / float64(nodes)
	for node := 0; node < nodes; node++ {
		for k := 0; k < ndm && k < ndf; k++ {
			i := node*ndf + k
			out.Set(i, i, m)
		}
	}
	return out
}

// LumpedRodMass puts rho*L/2 on each end of a two-node member.
func LumpedRodMass(ndm, ndf int, rho, length float64) *mat.Dense {
	return LumpedMass(ndm, ndf, 2, rho*length)
}

// ConsistentMass is the 2:1 banded rod mass scaled by rho*L/6.
func ConsistentMass(ndm, ndf int, rho, length float64) *mat.Dense {
	n := 2 * ndf
	out := mat.NewDense(n, n, nil)
	beta := rho * length / 6
	if beta == 0 {
		return out
	}
	for k := 0; k < ndm && k < ndf; k++ {
		out.Set(k, k, 2*beta)
		out.Set(k, ndf+k, beta)
		out.Set(ndf+k, k, beta)
		out.Set(ndf+k, ndf+k, 2*beta)
	}
	return out
}
