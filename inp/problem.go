package inp

import "github.com/cpmech/gosl/chk"

// Problem holds the loads and boundary conditions for a run: a force
// vector of length ndof and the set of DOFs held fixed at zero
// displacement (spec.md §3, "Problem inputs").
type Problem struct {
	Forces   []float64 // length ndof, mostly zero
	FixedDOF []int     // indices into Forces with prescribed zero displacement
}

// Validate checks Forces and FixedDOF against ndof, returning an
// InvalidInput-flavoured error (spec.md §7) if lengths or indices are
// out of range.
func (p Problem) Validate(ndof int) error {
	if len(p.Forces) != ndof {
		return chk.Err("invalid input: forces has length %d, want %d", len(p.Forces), ndof)
	}
	seen := make(map[int]bool, len(p.FixedDOF))
	for _, d := range p.FixedDOF {
		if d < 0 || d >= ndof {
			return chk.Err("invalid input: fixed dof %d out of range [0,%d)", d, ndof)
		}
		if seen[d] {
			return chk.Err("invalid input: fixed dof %d listed more than once", d)
		}
		seen[d] = true
	}
	if len(p.FixedDOF) >= ndof {
		return chk.Err("invalid input: all %d dofs are fixed, no free dofs remain", ndof)
	}
	return nil
}
