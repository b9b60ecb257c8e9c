package solve

import (
	"math"

	"github.com/cpmech/topopt/mesh"
)

// StrainEnergy computes, for every element, c_e = ue^T * KE * ue (the
// strain energy of a unit-modulus element, spec.md §4.5), gathering ue
// from the global displacement vector u via mesh.ElementDOFs. out must
// have length m.NumElements().
func StrainEnergy(m mesh.Mesh, ke [8][8]float64, u []float64, out []float64) {
	var ue, keu [8]float64
	for e := 0; e < m.NumElements(); e++ {
		dofs := m.ElementDOFsByIndex(e)
		for k, d := range dofs {
			ue[k] = u[d]
		}
		for i := 0; i < 8; i++ {
			s := 0.0
			for j := 0; j < 8; j++ {
				s += ke[i][j] * ue[j]
			}
			keu[i] = s
		}
		c := 0.0
		for i := 0; i < 8; i++ {
			c += ue[i] * keu[i]
		}
		out[e] = c
	}
}

// Compliance returns Σ_e E(rho_e)*c_e (spec.md §4.5).
func Compliance(dens, strainEnergy []float64, penal, eMin, eSolid float64) float64 {
	c := 0.0
	for e := range dens {
		c += SIMPModulus(dens[e], penal, eMin, eSolid) * strainEnergy[e]
	}
	return c
}

// Sensitivity writes the (non-positive) compliance sensitivity
//
//	dC/drho_e = -penal * rho_e^(penal-1) * (ESolid-EMin) * c_e
//
// into out (spec.md §4.5).
func Sensitivity(dens, strainEnergy []float64, penal, eMin, eSolid float64, out []float64) {
	for e := range dens {
		out[e] = -penal * math.Pow(dens[e], penal-1) * (eSolid - eMin) * strainEnergy[e]
	}
}
