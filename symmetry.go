package topopt

import "math"

// MirrorError returns the maximum density difference between each
// element and its horizontal mirror (elx -> nelx-1-elx), the mechanical
// check behind spec.md §8 property 7 ("on a mirror-symmetric problem...
// resulting densities are symmetric to within 1%"). It is a test helper,
// not part of the stepping API.
func MirrorError(densities []float64, nelx, nely int) float64 {
	maxDiff := 0.0
	for elx := 0; elx < nelx; elx++ {
		mirrorX := nelx - 1 - elx
		for ely := 0; ely < nely; ely++ {
			e := elx*nely + ely
			m := mirrorX*nely + ely
			d := math.Abs(densities[e] - densities[m])
			if d > maxDiff {
				maxDiff = d
			}
		}
	}
	return maxDiff
}
