package elem

import (
	"math"
	"testing"

	"github.com/cpmech/gosl/chk"
)

func TestStiffness_symmetric(tst *testing.T) {
	chk.PrintTitle("KE is symmetric")
	ke := Stiffness(0.3)
	for i := 0; i < 8; i++ {
		for j := 0; j < 8; j++ {
			if math.Abs(ke[i][j]-ke[j][i]) > 1e-12 {
				tst.Fatalf("KE[%d][%d]=%g != KE[%d][%d]=%g", i, j, ke[i][j], j, i, ke[j][i])
			}
		}
	}
}

func TestStiffness_rigidBodyNullspace(tst *testing.T) {
	chk.PrintTitle("KE has zero energy under rigid-body translation")
	ke := Stiffness(0.3)
	// uniform translation in x: all ux=1, uy=0 must produce zero strain energy.
	ux := [8]float64{1, 0, 1, 0, 1, 0, 1, 0}
	var keu [8]float64
	for i := 0; i < 8; i++ {
		s := 0.0
		for j := 0; j < 8; j++ {
			s += ke[i][j] * ux[j]
		}
		keu[i] = s
	}
	energy := 0.0
	for i := 0; i < 8; i++ {
		energy += ux[i] * keu[i]
	}
	if math.Abs(energy) > 1e-9 {
		tst.Fatalf("rigid body translation should have ~0 strain energy, got %g", energy)
	}
}

func TestPlaneStressD_symmetric(tst *testing.T) {
	chk.PrintTitle("plane-stress D is symmetric")
	d := PlaneStressD(210e3, 0.3)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			if math.Abs(d[i][j]-d[j][i]) > 1e-9 {
				tst.Fatalf("D[%d][%d] != D[%d][%d]", i, j, j, i)
			}
		}
	}
}

func TestCenterB_shapeFunctionPartitionOfUnity(tst *testing.T) {
	chk.PrintTitle("center B reproduces zero strain under rigid translation")
	b := CenterB()
	ux := [8]float64{1, 0, 1, 0, 1, 0, 1, 0}
	for i := 0; i < 3; i++ {
		s := 0.0
		for j := 0; j < 8; j++ {
			s += b[i][j] * ux[j]
		}
		if math.Abs(s) > 1e-12 {
			tst.Fatalf("row %d: expected 0 strain under rigid translation, got %g", i, s)
		}
	}
}
