// Package filter implements spec.md §4.3 (precompute) and §4.6
// (application): the per-element neighbor list used by both the
// sensitivity and density filters.
//
// FilterData is precomputed once per mesh and never mutated afterwards,
// the same lifecycle gosl/la.Triplet has in gofem (built once via
// EssentialBcs.Build, then only read) -- except here the "matrix" is a
// plain ragged array of (neighbor, weight) pairs, never assembled into a
// sparse format, per spec.md §9 ("do not materialize the global matrix").
package filter

import (
	"math"

	"github.com/cpmech/gosl/chk"

	"github.com/cpmech/topopt/mesh"
)

// Data holds, for every element e, the column-major indices of its
// filter neighbors and their (unnormalized) cone weights
// w_{e,j} = max(0, rmin - dist(e,j)). Weights are not normalized at
// precompute time (spec.md §3); normalization happens inside each
// filter application.
type Data struct {
	m         mesh.Mesh
	Neighbors [][]int32
	Weights   [][]float64
}

// Prepare scans, for every element, the rectangular window
// [elx +/- ceil(rmin)] x [ely +/- ceil(rmin)] clipped to the mesh,
// keeping neighbors with Euclidean center-to-center distance < rmin
// (spec.md §4.3).
func Prepare(m mesh.Mesh, rmin float64) (Data, error) {
	if rmin <= 0 {
		return Data{}, chk.Err("invalid filter radius: rmin must be > 0, got %g", rmin)
	}
	n := m.NumElements()
	d := Data{
		m:         m,
		Neighbors: make([][]int32, n),
		Weights:   make([][]float64, n),
	}
	reach := int(math.Ceil(rmin))
	for elx := 0; elx < m.Nelx; elx++ {
		for ely := 0; ely < m.Nely; ely++ {
			e := m.ElementIndex(elx, ely)
			loX, hiX := clamp(elx-reach, 0, m.Nelx-1), clamp(elx+reach, 0, m.Nelx-1)
			loY, hiY := clamp(ely-reach, 0, m.Nely-1), clamp(ely+reach, 0, m.Nely-1)
			for jx := loX; jx <= hiX; jx++ {
				for jy := loY; jy <= hiY; jy++ {
					dx := float64(elx - jx)
					dy := float64(ely - jy)
					dist := math.Sqrt(dx*dx + dy*dy)
					if dist < rmin {
						j := m.ElementIndex(jx, jy)
						d.Neighbors[e] = append(d.Neighbors[e], int32(j))
						d.Weights[e] = append(d.Weights[e], rmin-dist)
					}
				}
			}
		}
	}
	return d, nil
}

// clamp restricts v to [lo,hi].
func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Verify checks the invariant Σ_j w_{e,j} > 0 for every element (spec.md
// §3 and §8 property 1), returning an InvalidConfig-style error if it
// ever fails. This is the verify_weights operation named in spec.md §8's
// "Tiny 3x2, rmin=1.5" scenario.
func (d Data) Verify() error {
	for e, ws := range d.Weights {
		sum := 0.0
		for _, w := range ws {
			sum += w
		}
		if !(sum > 0) {
			return chk.Err("filter invariant violated: element %d has non-positive neighbor weight sum %g", e, sum)
		}
	}
	return nil
}

// ApplySensitivity computes the classical Sigmund sensitivity filter:
//
//	shat_e = (Σ_j w_{e,j}*rho_j*s_j) / (max(rho_e, eps) * Σ_j w_{e,j})
//
// with eps=1e-3 (spec.md §4.6), writing into out (len == len(rho)).
func (d Data) ApplySensitivity(rho, s, out []float64) {
	const eps = 1e-3
	for e := range out {
		var num, den float64
		ws, ns := d.Weights[e], d.Neighbors[e]
		for k, j := range ns {
			w := ws[k]
			num += w * rho[j] * s[j]
			den += w
		}
		denom := math.Max(rho[e], eps) * den
		out[e] = num / denom
	}
}

// ApplyDensity computes the plain weighted-average density filter:
//
//	rhohat_e = (Σ_j w_{e,j}*rho_j) / (Σ_j w_{e,j})
//
// (spec.md §4.6). A constant input field is returned unchanged, since
// Σ_j w_{e,j}*c / Σ_j w_{e,j} == c exactly.
func (d Data) ApplyDensity(rho, out []float64) {
	for e := range out {
		var num, den float64
		ws, ns := d.Weights[e], d.Neighbors[e]
		for k, j := range ns {
			w := ws[k]
			num += w * rho[j]
			den += w
		}
		out[e] = num / den
	}
}
