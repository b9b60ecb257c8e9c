// Package oc implements the Optimality Criteria update of spec.md §4.7:
// bisection over a Lagrange multiplier enforcing the volume constraint,
// with a move-limited multiplicative density update.
package oc

import "math"

// Params bundles the OC tunables from inp.Config needed here, so this
// package stays independent of inp (it only needs numbers, not the full
// validated configuration).
type Params struct {
	Volfrac   float64
	Move      float64
	RhoMin    float64
	RhoMax    float64
	LambdaLo  float64
	LambdaHi  float64
	BisectTol float64
}

// Result reports the outcome of one OC update.
type Result struct {
	Change float64 // max_e |rho_new(e) - rho_e|
	Lambda float64 // the Lagrange multiplier bisection converged on
}

// Update computes, for the given filtered (non-positive) sensitivities
// sHat and current densities rho, the new densities (written into out,
// which may alias rho) satisfying mean(out) ~= Volfrac to within
// BisectTol, via bisection on lambda in [LambdaLo, LambdaHi] exploiting
// the monotone property that mean(rhoNew) is non-increasing in lambda
// (spec.md §4.7).
func Update(p Params, rho, sHat []float64, out []float64) Result {
	lo, hi := p.LambdaLo, p.LambdaHi
	n := float64(len(rho))
	var lambda float64
	for hi-lo > p.BisectTol && (hi-lo)/(hi+lo) > p.BisectTol {
		lambda = 0.5 * (lo + hi)
		vol := 0.0
		for e := range rho {
			vol += candidate(p, rho[e], sHat[e], lambda)
		}
		vol /= n
		if vol > p.Volfrac {
			lo = lambda
		} else {
			hi = lambda
		}
	}
	lambda = 0.5 * (lo + hi)

	change := 0.0
	for e := range rho {
		newRho := candidate(p, rho[e], sHat[e], lambda)
		d := math.Abs(newRho - rho[e])
		if d > change {
			change = d
		}
		out[e] = newRho
	}
	return Result{Change: change, Lambda: lambda}
}

// candidate evaluates the move-limited multiplicative update rule for a
// single element at a trial lambda:
//
//	rho_new = clip(rho_e*sqrt(-sHat_e/lambda), [rho_e-move,rho_e+move] [RhoMin,RhoMax])
func candidate(p Params, rho, sHatE, lambda float64) float64 {
	if lambda <= 0 {
		lambda = 1e-12
	}
	b := -sHatE / lambda
	if b < 0 {
		b = 0
	}
	target := rho * math.Sqrt(b)

	lo := math.Max(p.RhoMin, rho-p.Move)
	hi := math.Min(p.RhoMax, rho+p.Move)
	switch {
	case target < lo:
		return lo
	case target > hi:
		return hi
	default:
		return target
	}
}
