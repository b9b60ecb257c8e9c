package topopt

import (
	"math"
	"testing"

	"github.com/cpmech/gosl/chk"

	"github.com/cpmech/topopt/inp"
	"github.com/cpmech/topopt/mesh"
)

func mbbConfig(nelx, nely int) inp.Config {
	cfg := inp.DefaultConfig()
	cfg.Nelx, cfg.Nely = nelx, nely
	cfg.Volfrac = 0.5
	cfg.Rmin = 1.5
	cfg.MaxIter = 20
	return cfg
}

func mbbProblem(tst *testing.T, nelx, nely int) inp.Problem {
	m, err := mesh.New(nelx, nely)
	if err != nil {
		tst.Fatal(err)
	}
	ndof := m.NumDOFs()
	forces := make([]float64, ndof)
	topLeft := m.NodeIndex(0, nely)
	forces[2*topLeft+1] = -1
	var fixed []int
	for j := 0; j <= nely; j++ {
		fixed = append(fixed, 2*m.NodeIndex(0, j))
	}
	fixed = append(fixed, 2*m.NodeIndex(nelx, 0)+1)
	return inp.Problem{Forces: forces, FixedDOF: fixed}
}

func TestNew_initialState(tst *testing.T) {
	chk.PrintTitle("initial state: iteration=0, change=1, compliance=inf")
	cfg := mbbConfig(12, 6)
	prob := mbbProblem(tst, 12, 6)
	opt, err := New(cfg, prob)
	if err != nil {
		tst.Fatal(err)
	}
	snap := opt.State()
	chk.IntAssert(snap.Iteration, 0)
	if snap.Change != 1.0 {
		tst.Fatalf("expected change=1.0 before first step, got %g", snap.Change)
	}
	if !math.IsInf(snap.Compliance, 1) {
		tst.Fatalf("expected compliance=+Inf before first step, got %g", snap.Compliance)
	}
	if snap.Converged {
		tst.Fatal("should not be converged before stepping")
	}
	for _, rho := range snap.Densities {
		if rho != cfg.Volfrac {
			tst.Fatalf("expected all densities == volfrac=%g, got %g", cfg.Volfrac, rho)
		}
	}
}

func TestNew_rejectsInvalidConfig(tst *testing.T) {
	chk.PrintTitle("invalid config is rejected with InvalidConfig")
	cfg := mbbConfig(12, 6)
	cfg.Volfrac = 1.5
	prob := mbbProblem(tst, 12, 6)
	_, err := New(cfg, prob)
	if err == nil || !IsKind(err, InvalidConfig) {
		tst.Fatalf("expected InvalidConfig error, got %v", err)
	}
}

func TestNew_rejectsInvalidInput(tst *testing.T) {
	chk.PrintTitle("mismatched forces length is rejected with InvalidInput")
	cfg := mbbConfig(12, 6)
	prob := inp.Problem{Forces: []float64{0, 0, 0}, FixedDOF: nil}
	_, err := New(cfg, prob)
	if err == nil || !IsKind(err, InvalidInput) {
		tst.Fatalf("expected InvalidInput error, got %v", err)
	}
}

func TestStep_boundsAndVolumeTracking(tst *testing.T) {
	chk.PrintTitle("after every step: bounds hold and volume tracks volfrac (properties 5,6)")
	cfg := mbbConfig(20, 10)
	prob := mbbProblem(tst, 20, 10)
	opt, err := New(cfg, prob)
	if err != nil {
		tst.Fatal(err)
	}
	for i := 0; i < 15; i++ {
		snap, err := opt.Step()
		if err != nil {
			tst.Fatal(err)
		}
		for _, rho := range snap.Densities {
			if rho < cfg.RhoMin-1e-9 || rho > cfg.RhoMax+1e-9 {
				tst.Fatalf("iter %d: density %g out of bounds", i, rho)
			}
		}
		if math.Abs(snap.Volume-cfg.Volfrac) > 1e-3 {
			tst.Fatalf("iter %d: volume %g too far from target %g", i, snap.Volume, cfg.Volfrac)
		}
	}
}

func TestStep_historyValidity(tst *testing.T) {
	chk.PrintTitle("emitted history points have iteration>=1 and finite fields (property 9)")
	cfg := mbbConfig(10, 6)
	prob := mbbProblem(tst, 10, 6)
	opt, err := New(cfg, prob)
	if err != nil {
		tst.Fatal(err)
	}
	if _, ok := opt.History(); ok {
		tst.Fatal("no history point should be available before the first step")
	}
	for i := 0; i < 5; i++ {
		if _, err := opt.Step(); err != nil {
			tst.Fatal(err)
		}
		hp, ok := opt.History()
		if !ok {
			tst.Fatalf("iter %d: expected a history point", i)
		}
		if hp.Iteration < 1 {
			tst.Fatalf("history iteration must be >= 1, got %d", hp.Iteration)
		}
		if math.IsInf(hp.Compliance, 0) || math.IsNaN(hp.Compliance) {
			tst.Fatalf("history compliance must be finite, got %g", hp.Compliance)
		}
		if math.IsNaN(hp.Change) || math.IsNaN(hp.Volume) {
			tst.Fatalf("history change/volume must be finite")
		}
	}
}

func TestStep_convergenceTermination(tst *testing.T) {
	chk.PrintTitle("converged is set exactly when change<tolx or iteration==max_iter (property 8)")
	cfg := mbbConfig(16, 8)
	cfg.MaxIter = 40
	prob := mbbProblem(tst, 16, 8)
	opt, err := New(cfg, prob)
	if err != nil {
		tst.Fatal(err)
	}
	var last Snapshot
	for i := 0; i < cfg.MaxIter+5; i++ {
		last, err = opt.Step()
		if err != nil {
			tst.Fatal(err)
		}
		if last.Converged {
			break
		}
	}
	if !last.Converged {
		tst.Fatal("expected convergence within MaxIter+slack iterations")
	}
	if !(last.Change < cfg.Tolx || last.Iteration >= cfg.MaxIter) {
		tst.Fatalf("converged but neither termination condition holds: change=%g iter=%d", last.Change, last.Iteration)
	}
}

func TestStep_idempotentAfterConvergence(tst *testing.T) {
	chk.PrintTitle("step is a no-op after convergence")
	cfg := mbbConfig(10, 6)
	cfg.MaxIter = 3
	prob := mbbProblem(tst, 10, 6)
	opt, err := New(cfg, prob)
	if err != nil {
		tst.Fatal(err)
	}
	var snap Snapshot
	for i := 0; i < cfg.MaxIter; i++ {
		snap, err = opt.Step()
		if err != nil {
			tst.Fatal(err)
		}
	}
	if !snap.Converged {
		tst.Fatal("expected convergence at MaxIter")
	}
	again, err := opt.Step()
	if err != nil {
		tst.Fatal(err)
	}
	if again.Iteration != snap.Iteration || again.Compliance != snap.Compliance {
		tst.Fatalf("step after convergence should be a no-op: got %+v, want %+v", again, snap)
	}
}

func TestStep_determinism(tst *testing.T) {
	chk.PrintTitle("two identically-configured optimizers produce identical snapshots (property 10)")
	cfg := mbbConfig(14, 8)
	prob := mbbProblem(tst, 14, 8)
	a, err := New(cfg, prob)
	if err != nil {
		tst.Fatal(err)
	}
	b, err := New(cfg, prob)
	if err != nil {
		tst.Fatal(err)
	}
	for i := 0; i < 10; i++ {
		sa, err := a.Step()
		if err != nil {
			tst.Fatal(err)
		}
		sb, err := b.Step()
		if err != nil {
			tst.Fatal(err)
		}
		if sa.Compliance != sb.Compliance || sa.Change != sb.Change {
			tst.Fatalf("iter %d: diverged: %+v vs %+v", i, sa, sb)
		}
		for k := range sa.Densities {
			if sa.Densities[k] != sb.Densities[k] {
				tst.Fatalf("iter %d: density %d diverged: %g vs %g", i, k, sa.Densities[k], sb.Densities[k])
			}
		}
	}
}

func TestReset_returnsToInitialState(tst *testing.T) {
	chk.PrintTitle("reset returns to the initialized state")
	cfg := mbbConfig(10, 6)
	prob := mbbProblem(tst, 10, 6)
	opt, err := New(cfg, prob)
	if err != nil {
		tst.Fatal(err)
	}
	for i := 0; i < 5; i++ {
		if _, err := opt.Step(); err != nil {
			tst.Fatal(err)
		}
	}
	opt.Reset()
	snap := opt.State()
	chk.IntAssert(snap.Iteration, 0)
	if snap.Change != 1.0 {
		tst.Fatalf("expected change=1 after reset, got %g", snap.Change)
	}
	for _, rho := range snap.Densities {
		if rho != cfg.Volfrac {
			tst.Fatalf("expected densities reset to volfrac, got %g", rho)
		}
	}
}

func TestSetForces_onlyBeforeFirstStep(tst *testing.T) {
	chk.PrintTitle("set_forces rejected once stepping has begun")
	cfg := mbbConfig(8, 4)
	prob := mbbProblem(tst, 8, 4)
	opt, err := New(cfg, prob)
	if err != nil {
		tst.Fatal(err)
	}
	if err := opt.SetForces(make([]float64, len(prob.Forces))); err != nil {
		tst.Fatalf("expected set_forces to succeed before stepping, got %v", err)
	}
	if _, err := opt.Step(); err != nil {
		tst.Fatal(err)
	}
	if err := opt.SetForces(make([]float64, len(prob.Forces))); err == nil {
		tst.Fatal("expected set_forces to fail after stepping has begun")
	}
}

func TestStep_densityFilterBoundsAndVolumeTracking(tst *testing.T) {
	chk.PrintTitle("density filter mode also keeps densities bounded and on-volfrac (properties 5,6)")
	cfg := mbbConfig(20, 10)
	cfg.Filter = inp.DensityFilter
	prob := mbbProblem(tst, 20, 10)
	opt, err := New(cfg, prob)
	if err != nil {
		tst.Fatal(err)
	}
	for i := 0; i < 15; i++ {
		snap, err := opt.Step()
		if err != nil {
			tst.Fatal(err)
		}
		for _, rho := range snap.Densities {
			if rho < cfg.RhoMin-1e-9 || rho > cfg.RhoMax+1e-9 {
				tst.Fatalf("iter %d: density %g out of bounds", i, rho)
			}
		}
		if math.Abs(snap.Volume-cfg.Volfrac) > 1e-3 {
			tst.Fatalf("iter %d: volume %g too far from target %g", i, snap.Volume, cfg.Volfrac)
		}
	}
}

func TestSoftMaterialVariant_summaryPresent(tst *testing.T) {
	chk.PrintTitle("stress-constrained variant reports a stress summary")
	cfg := mbbConfig(12, 8)
	cfg.Nu = 0.45
	cfg.MaxIter = 10
	cfg.Stress = inp.StressConfig{
		Enabled:       true,
		SigmaUltimate: 2.0,
		SafetyFactor:  2.0,
		PNorm:         8,
		Weight:        0.01,
	}
	prob := mbbProblem(tst, 12, 8)
	opt, err := New(cfg, prob)
	if err != nil {
		tst.Fatal(err)
	}
	var snap Snapshot
	for i := 0; i < 5; i++ {
		snap, err = opt.Step()
		if err != nil {
			tst.Fatal(err)
		}
	}
	if snap.Stress == nil {
		tst.Fatal("expected a non-nil stress summary in the stress-constrained variant")
	}
	if math.IsNaN(snap.Stress.MaxVonMises) || math.IsInf(snap.Stress.MaxVonMises, 0) {
		tst.Fatalf("max von Mises must be finite, got %g", snap.Stress.MaxVonMises)
	}
}

func TestStep_complianceTrendsDown(tst *testing.T) {
	chk.PrintTitle("compliance trends downward over the first iterations (property 4)")
	cfg := mbbConfig(24, 12)
	prob := mbbProblem(tst, 24, 12)
	opt, err := New(cfg, prob)
	if err != nil {
		tst.Fatal(err)
	}
	first, err := opt.Step()
	if err != nil {
		tst.Fatal(err)
	}
	var last Snapshot
	for i := 0; i < 9; i++ {
		last, err = opt.Step()
		if err != nil {
			tst.Fatal(err)
		}
	}
	if last.Compliance > first.Compliance*1.01 {
		tst.Fatalf("expected compliance to trend down: iter1=%g iter10=%g", first.Compliance, last.Compliance)
	}
}

func TestMirrorError_symmetricFieldIsZero(tst *testing.T) {
	chk.PrintTitle("MirrorError is zero on a mirror-symmetric density field")
	nelx, nely := 6, 4
	densities := make([]float64, nelx*nely)
	for elx := 0; elx < nelx; elx++ {
		for ely := 0; ely < nely; ely++ {
			v := 0.3 + 0.1*float64(ely)
			densities[elx*nely+ely] = v
		}
	}
	if got := MirrorError(densities, nelx, nely); got > 1e-12 {
		tst.Fatalf("expected ~0 mirror error on a y-only-varying field, got %g", got)
	}
}
