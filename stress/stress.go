// Package stress implements the stress-constrained (soft-material)
// variant of spec.md §4.9: per-element von Mises stress, rupture risk,
// safety margin, and the P-norm aggregate gradient used to augment the
// compliance sensitivity.
//
// Plane-stress sigma = E(rho)*D*eps is evaluated at the element center
// with elem.CenterB and elem.PlaneStressD, mirroring the Pse branch of
// gofem's mdl/solid.SmallElasticity (Update/CalcD): the same D used
// there for sigma += D*epsilon drives sigma_vm here.
package stress

import (
	"math"

	"github.com/cpmech/topopt/elem"
	"github.com/cpmech/topopt/mesh"
	"github.com/cpmech/topopt/solve"
)

// Element holds the per-element stress diagnostics of spec.md §4.9.
type Element struct {
	VonMises     float64
	RuptureRisk  float64 // clamped to [0,1] for visualization
	SafetyMargin float64 // sigmaUltimate / (vonMises*safetyFactor)
}

// Summary aggregates Element results across the mesh.
type Summary struct {
	MaxVonMises      float64
	MinSafetyMargin  float64
	ElementsAtRisk   int  // count with RuptureRisk > 0.8
	PassesConstraint bool // MinSafetyMargin >= 1
}

// Compute evaluates von Mises stress, rupture risk and safety margin for
// every element from the global displacement field u and densities,
// writing into elems (len == m.NumElements()) and returning the summary.
// The minimum safety margin is reported only over elements with
// density > 0.5 (spec.md §4.9).
func Compute(m mesh.Mesh, dens, u []float64, penal, eMin, eSolid, nu, sigmaUltimate, safetyFactor float64, elems []Element) Summary {
	b := elem.CenterB()
	d := elem.PlaneStressD(1, nu) // scaled by E(rho_e) below, like mdl/solid's Update
	var ue [8]float64
	var eps, sig [3]float64

	sum := Summary{MinSafetyMargin: math.Inf(1)}
	anyAtRisk := false
	for e := 0; e < m.NumElements(); e++ {
		dofs := m.ElementDOFsByIndex(e)
		for k, dof := range dofs {
			ue[k] = u[dof]
		}
		for i := 0; i < 3; i++ {
			s := 0.0
			for j := 0; j < 8; j++ {
				s += b[i][j] * ue[j]
			}
			eps[i] = s
		}
		E := solve.SIMPModulus(dens[e], penal, eMin, eSolid)
		for i := 0; i < 3; i++ {
			s := 0.0
			for j := 0; j < 3; j++ {
				s += d[i][j] * eps[j]
			}
			sig[i] = E * s
		}
		sx, sy, txy := sig[0], sig[1], sig[2]
		vm := math.Sqrt(math.Max(0, sx*sx-sx*sy+sy*sy+3*txy*txy))

		risk := vm * safetyFactor / sigmaUltimate
		margin := sigmaUltimate / (vm*safetyFactor + 1e-300)

		elems[e] = Element{
			VonMises:     vm,
			RuptureRisk:  math.Min(1, math.Max(0, risk)),
			SafetyMargin: margin,
		}

		if vm > sum.MaxVonMises {
			sum.MaxVonMises = vm
		}
		if elems[e].RuptureRisk > 0.8 {
			sum.ElementsAtRisk++
		}
		if dens[e] > 0.5 {
			if margin < sum.MinSafetyMargin {
				sum.MinSafetyMargin = margin
			}
			anyAtRisk = true
		}
	}
	if !anyAtRisk {
		sum.MinSafetyMargin = math.Inf(1)
	}
	sum.PassesConstraint = sum.MinSafetyMargin >= 1
	return sum
}

// PNormGradient returns d(||sigma_vm||_P)/d(rho_e) for every element, the
// heuristic stress-aggregate gradient of spec.md §4.9 and §9 ("the
// source's stress-constraint sensitivity augmentation is heuristic --
// treat it as a tunable gradient contribution"). It is computed by
// finite-difference-free chain rule on the P-norm of the per-element von
// Mises stresses already stored in elems, using the fact that
// sigma_vm(e) scales linearly with E(rho_e) (sigma = E*D*eps, vm is
// homogeneous degree 1 in sigma) for a fixed displacement field -- an
// approximation that ignores the displacement field's own dependence on
// rho_e, exactly the simplification spec.md flags as heuristic.
func PNormGradient(dens []float64, elems []Element, pNorm, penal, eMin, eSolid float64, out []float64) {
	n := len(elems)
	var pSum float64
	for e := 0; e < n; e++ {
		pSum += math.Pow(elems[e].VonMises, pNorm)
	}
	if pSum <= 0 {
		for e := range out {
			out[e] = 0
		}
		return
	}
	pNormVal := math.Pow(pSum, 1/pNorm)
	for e := 0; e < n; e++ {
		vm := elems[e].VonMises
		if vm <= 0 {
			out[e] = 0
			continue
		}
		// d(E(rho))/d(rho) for E(rho) = EMin + rho^penal*(ESolid-EMin).
		dEdRho := penal * math.Pow(dens[e], penal-1) * (eSolid - eMin)
		E := solve.SIMPModulus(dens[e], penal, eMin, eSolid)
		// sigma_vm(e) is proportional to E(rho_e); d(vm)/d(rho) = vm/E * dE/dRho.
		dVMdRho := vm / E * dEdRho
		out[e] = math.Pow(pNormVal, 1-pNorm) * math.Pow(vm, pNorm-1) * dVMdRho
	}
}
