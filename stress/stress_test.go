package stress

import (
	"math"
	"testing"

	"github.com/cpmech/gosl/chk"

	"github.com/cpmech/topopt/elem"
	"github.com/cpmech/topopt/mesh"
	"github.com/cpmech/topopt/solve"
)

func TestCompute_zeroDisplacementZeroStress(tst *testing.T) {
	chk.PrintTitle("zero displacement field gives zero von Mises stress everywhere")
	m, _ := mesh.New(3, 2)
	dens := make([]float64, m.NumElements())
	for i := range dens {
		dens[i] = 0.8
	}
	u := make([]float64, m.NumDOFs())
	elems := make([]Element, m.NumElements())
	sum := Compute(m, dens, u, 3, 1e-9, 1, 0.3, 100, 1.5, elems)
	if sum.MaxVonMises != 0 {
		tst.Fatalf("expected zero max von Mises, got %g", sum.MaxVonMises)
	}
	for i, el := range elems {
		if el.VonMises != 0 || el.RuptureRisk != 0 {
			tst.Fatalf("element %d: expected zero stress/risk, got %+v", i, el)
		}
	}
}

func TestCompute_finiteUnderLoadedField(tst *testing.T) {
	chk.PrintTitle("stress diagnostics stay finite under a loaded displacement field")
	m, ke, b, fixed := singleElementCantilever(tst)
	dens := []float64{0.7}
	op := solve.NewOperator(m, ke, dens, 3, 1e-9, 1, fixed)
	u := make([]float64, len(b))
	ws := solve.NewWorkspace(len(b))
	if _, err := solve.CG(op, u, append([]float64(nil), b...), fixed, 1e-10, 10*len(b), &ws); err != nil {
		tst.Fatal(err)
	}
	elems := make([]Element, 1)
	sum := Compute(m, dens, u, 3, 1e-9, 1, 0.3, 50, 2.0, elems)
	if math.IsNaN(sum.MaxVonMises) || math.IsInf(sum.MaxVonMises, 0) {
		tst.Fatalf("non-finite max von Mises: %g", sum.MaxVonMises)
	}
	if elems[0].RuptureRisk < 0 || elems[0].RuptureRisk > 1 {
		tst.Fatalf("rupture risk must be clamped to [0,1], got %g", elems[0].RuptureRisk)
	}
}

func TestPNormGradient_zeroWhenNoStress(tst *testing.T) {
	chk.PrintTitle("P-norm gradient is zero when there is no stress")
	dens := []float64{0.5, 0.5}
	elems := []Element{{VonMises: 0}, {VonMises: 0}}
	out := make([]float64, 2)
	PNormGradient(dens, elems, 8, 3, 1e-9, 1, out)
	for i, v := range out {
		if v != 0 {
			tst.Fatalf("element %d: expected 0 gradient, got %g", i, v)
		}
	}
}

// singleElementCantilever duplicates solve's test fixture; kept local
// because helpers defined in package solve's _test files cannot be
// imported from here.
func singleElementCantilever(tst *testing.T) (mesh.Mesh, [8][8]float64, []float64, []bool) {
	m, err := mesh.New(1, 1)
	if err != nil {
		tst.Fatal(err)
	}
	ke := elem.Stiffness(0.3)
	ndof := m.NumDOFs()
	fixed := make([]bool, ndof)
	n00 := m.NodeIndex(0, 0)
	n01 := m.NodeIndex(0, 1)
	fixed[2*n00], fixed[2*n00+1] = true, true
	fixed[2*n01], fixed[2*n01+1] = true, true
	b := make([]float64, ndof)
	n10 := m.NodeIndex(1, 0)
	b[2*n10+1] = -1
	return m, ke, b, fixed
}
