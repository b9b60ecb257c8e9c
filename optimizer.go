// Package topopt is the 2D SIMP topology optimizer core of spec.md: a
// single value type, Optimizer, built from a Config and a Problem
// (forces + fixed DOFs), stepped one outer iteration at a time.
//
// The driver is the state machine of spec.md §4.8: Initialized ->
// Stepping -> Terminal. It owns no scheduling of its own (spec.md §5);
// a host calls Step once per tick, in a loop, or on a worker goroutine.
package topopt

import (
	"math"

	"github.com/cpmech/gosl/io"

	"github.com/cpmech/topopt/elem"
	"github.com/cpmech/topopt/filter"
	"github.com/cpmech/topopt/inp"
	"github.com/cpmech/topopt/mesh"
	"github.com/cpmech/topopt/oc"
	"github.com/cpmech/topopt/solve"
	"github.com/cpmech/topopt/stress"
)

// Snapshot is a defensive copy of the optimizer's state, returned by
// Step and State (spec.md §6).
type Snapshot struct {
	Densities    []float64
	StrainEnergy []float64
	Compliance   float64
	Volume       float64
	Iteration    int
	Change       float64
	Converged    bool

	// Stress is non-nil only when Config.Stress.Enabled.
	Stress *stress.Summary
}

// HistoryPoint is the compact per-iteration record of spec.md §4.8.
// Consumers must filter out points with Iteration==0 or a non-finite
// Compliance (spec.md §4.8, §8 property 9); History never returns such
// a point itself: it reports ok=false while Iteration is 0 or
// Compliance is +Inf.
type HistoryPoint struct {
	Iteration  int
	Compliance float64
	Change     float64
	Volume     float64
}

// Optimizer is the single value type the core exposes (spec.md §6). Its
// mesh, filter data and KE are frozen at construction; forces and the
// fixed-DOF mask change only through SetForces/SetFixedDOFs before the
// first Step; apart from those, only the per-iteration density/displacement/sensitivity buffers below
// are mutable, and they are reused across Step calls to avoid
// allocation churn (spec.md §5).
type Optimizer struct {
	cfg inp.Config
	msh mesh.Mesh
	ke  [8][8]float64
	flt filter.Data

	forces   []float64
	fixedSet []int
	fixed    []bool // len == ndof, derived from fixedSet

	// per-iteration state (spec.md §3 "Optimizer state")
	densities    []float64
	strainEnergy []float64
	compliance   float64
	volume       float64
	iteration    int
	change       float64
	converged    bool
	invalid      bool // set by a Nonfinite failure; only Reset clears it

	// reused work buffers (spec.md §5 "Memory")
	u             []float64
	b             []float64 // RHS work buffer, copied from forces each step
	sens          []float64
	sensHat       []float64
	physDensities []float64 // density-filter mode only: filter.ApplyDensity(densities), the field FEA/OC actually see
	op            solve.Operator
	cgWS          solve.Workspace
	stressSe      []stress.Element
	stressGrad    []float64
	wallFiltered  []float64
	wallFlt       *filter.Data // minimum-wall-thickness filter, stress variant only
	stressSum     stress.Summary
}

// New validates cfg and prob and returns a constructed Optimizer
// (spec.md §6). Mesh, filter data and KE are computed once here and
// never change afterwards; the fixed DOFs set here can be replaced only
// by SetFixedDOFs before the first Step.
func New(cfg inp.Config, prob inp.Problem) (*Optimizer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, &Error{Kind: InvalidConfig, err: err}
	}
	m, err := mesh.New(cfg.Nelx, cfg.Nely)
	if err != nil {
		return nil, &Error{Kind: InvalidConfig, err: err}
	}
	ndof := m.NumDOFs()
	if err := prob.Validate(ndof); err != nil {
		return nil, &Error{Kind: InvalidInput, err: err}
	}
	flt, err := filter.Prepare(m, cfg.Rmin)
	if err != nil {
		return nil, &Error{Kind: InvalidConfig, err: err}
	}
	if err := flt.Verify(); err != nil {
		return nil, &Error{Kind: InvalidConfig, err: err}
	}

	o := &Optimizer{
		cfg:      cfg,
		msh:      m,
		ke:       elem.Stiffness(cfg.Nu),
		flt:      flt,
		forces:   append([]float64(nil), prob.Forces...),
		fixedSet: append([]int(nil), prob.FixedDOF...),
		fixed:    fixedMask(ndof, prob.FixedDOF),

		u:       make([]float64, ndof),
		b:       make([]float64, ndof),
		sens:    make([]float64, m.NumElements()),
		sensHat: make([]float64, m.NumElements()),
		cgWS:    solve.NewWorkspace(ndof),
	}

	if cfg.Filter == inp.DensityFilter {
		o.physDensities = make([]float64, m.NumElements())
	}

	if cfg.Stress.Enabled {
		o.stressSe = make([]stress.Element, m.NumElements())
		o.stressGrad = make([]float64, m.NumElements())
		if cfg.Stress.WallRmin > 0 {
			wf, err := filter.Prepare(m, cfg.Stress.WallRmin)
			if err != nil {
				return nil, &Error{Kind: InvalidConfig, err: err}
			}
			o.wallFlt = &wf
			o.wallFiltered = make([]float64, m.NumElements())
		}
	}

	// reset allocates o.densities (o.op.dens below must be bound to that
	// same, never-reallocated backing array, so this runs first).
	o.reset()
	o.op = solve.NewOperator(m, o.ke, o.densities, cfg.Penal, cfg.EMin, cfg.ESolid, o.fixed)
	return o, nil
}

func fixedMask(ndof int, fixedDOF []int) []bool {
	mask := make([]bool, ndof)
	for _, d := range fixedDOF {
		mask[d] = true
	}
	return mask
}

// reset is the unexported core of Reset, also used by New.
func (o *Optimizer) reset() {
	n := o.msh.NumElements()
	if o.densities == nil {
		o.densities = make([]float64, n)
		o.strainEnergy = make([]float64, n)
	}
	for i := range o.densities {
		o.densities[i] = o.cfg.Volfrac
		o.strainEnergy[i] = 0
	}
	o.compliance = math.Inf(1)
	o.volume = o.cfg.Volfrac
	o.iteration = 0
	o.change = 1.0
	o.converged = false
	o.invalid = false
}

// Reset returns the optimizer to the initialized state (spec.md §4.8,
// §6): densities back to Volfrac, iteration counters zeroed. Config,
// forces and fixed DOFs are left intact.
func (o *Optimizer) Reset() { o.reset() }

// SetForces replaces the force vector. Only valid before the first Step
// after construction or Reset (spec.md §6).
func (o *Optimizer) SetForces(v []float64) error {
	if o.iteration > 0 {
		return &Error{Kind: InvalidInput, err: errAlreadyStepped("forces")}
	}
	if len(v) != len(o.forces) {
		return newError(InvalidInput, "set_forces: length %d, want %d", len(v), len(o.forces))
	}
	copy(o.forces, v)
	return nil
}

// SetFixedDOFs replaces the fixed-DOF set. Only valid before the first
// Step after construction or Reset (spec.md §6).
func (o *Optimizer) SetFixedDOFs(fixedDOF []int) error {
	if o.iteration > 0 {
		return &Error{Kind: InvalidInput, err: errAlreadyStepped("fixed dofs")}
	}
	ndof := o.msh.NumDOFs()
	mask := make([]bool, ndof)
	for _, d := range fixedDOF {
		if d < 0 || d >= ndof {
			return newError(InvalidInput, "set_fixed_dofs: dof %d out of range [0,%d)", d, ndof)
		}
		mask[d] = true
	}
	o.fixedSet = append([]int(nil), fixedDOF...)
	o.fixed = mask
	o.op.SetFixed(o.fixed)
	return nil
}

func errAlreadyStepped(what string) error {
	return newErrPlain("cannot change " + what + " after stepping has begun; call Reset first")
}

// State returns the current state without stepping (spec.md §6).
func (o *Optimizer) State() Snapshot { return o.snapshot() }

// Step advances exactly one outer iteration: FEA solve -> sensitivities
// -> filter -> OC -> update state -> increment iteration -> check
// convergence (spec.md §4.8). It is idempotent once Converged is true,
// and a no-op (returning the current snapshot) once the run has been
// marked invalid by a prior Nonfinite failure.
func (o *Optimizer) Step() (Snapshot, error) {
	if o.converged || o.invalid {
		return o.snapshot(), nil
	}

	// feaRho is the physical density field FEA/OC actually see this step
	// (spec.md §4.6): the raw design field o.densities by default, or its
	// density-filtered image in DensityFilter mode.
	feaRho := o.densities
	if o.cfg.Filter == inp.DensityFilter {
		o.flt.ApplyDensity(o.densities, o.physDensities)
		feaRho = o.physDensities
	}
	o.op.SetDensities(feaRho)

	copy(o.b, o.forces)
	maxIter := o.cfg.CGMaxIterFor(len(o.u))
	result, err := solve.CG(o.op, o.u, o.b, o.fixed, o.cfg.CGTol, maxIter, &o.cgWS)
	if err != nil {
		o.invalid = true
		if o.cfg.Verbose {
			io.Pfred("topopt: iteration %d: %v\n", o.iteration, err)
		}
		return o.snapshot(), &Error{Kind: Nonfinite, err: err}
	}
	if !result.Converged && o.cfg.Verbose {
		io.Pfyel("topopt: iteration %d: CG did not converge (residual=%g)\n", o.iteration, result.Residual)
	}

	solve.StrainEnergy(o.msh, o.ke, o.u, o.strainEnergy)
	o.compliance = solve.Compliance(feaRho, o.strainEnergy, o.cfg.Penal, o.cfg.EMin, o.cfg.ESolid)
	solve.Sensitivity(feaRho, o.strainEnergy, o.cfg.Penal, o.cfg.EMin, o.cfg.ESolid, o.sens)

	if o.cfg.Stress.Enabled {
		o.stressSum = stress.Compute(o.msh, feaRho, o.u, o.cfg.Penal, o.cfg.EMin, o.cfg.ESolid, o.cfg.Nu,
			o.cfg.Stress.SigmaUltimate, o.cfg.Stress.SafetyFactor, o.stressSe)
		stress.PNormGradient(feaRho, o.stressSe, o.cfg.Stress.PNorm, o.cfg.Penal, o.cfg.EMin, o.cfg.ESolid, o.stressGrad)
		for e := range o.sens {
			o.sens[e] += o.cfg.Stress.Weight * o.stressGrad[e]
		}
		if o.wallFlt != nil {
			// Mutates o.densities in place, ahead of OC reading it as
			// "rho" below; see DESIGN.md on what this does to the move
			// limit's baseline.
			o.wallFlt.ApplyDensity(o.densities, o.wallFiltered)
			copy(o.densities, o.wallFiltered)
		}
	}

	switch o.cfg.Filter {
	case inp.DensityFilter:
		// Exactly one filter applies per iteration (spec.md §4.6): the
		// design field was already density-filtered into feaRho above,
		// so sensitivities pass through unfiltered.
		copy(o.sensHat, o.sens)
	default:
		o.flt.ApplySensitivity(o.densities, o.sens, o.sensHat)
	}

	ocParams := oc.Params{
		Volfrac:   o.cfg.Volfrac,
		Move:      o.cfg.Move,
		RhoMin:    o.cfg.RhoMin,
		RhoMax:    o.cfg.RhoMax,
		LambdaLo:  o.cfg.LambdaLo,
		LambdaHi:  o.cfg.LambdaHi,
		BisectTol: o.cfg.BisectTol,
	}
	ocResult := oc.Update(ocParams, feaRho, o.sensHat, o.densities)
	o.change = ocResult.Change
	o.volume = mean(o.densities)

	o.iteration++
	if o.change < o.cfg.Tolx || o.iteration >= o.cfg.MaxIter {
		o.converged = true
	}

	if o.cfg.Verbose {
		io.Pf("topopt: iter=%d compliance=%g volume=%g change=%g\n", o.iteration, o.compliance, o.volume, o.change)
	}

	return o.snapshot(), nil
}

// History returns the HistoryPoint for the current state, or
// (HistoryPoint{}, false) before the first Step (spec.md §4.8).
func (o *Optimizer) History() (HistoryPoint, bool) {
	if o.iteration == 0 || math.IsInf(o.compliance, 1) {
		return HistoryPoint{}, false
	}
	return HistoryPoint{
		Iteration:  o.iteration,
		Compliance: o.compliance,
		Change:     o.change,
		Volume:     o.volume,
	}, true
}

func (o *Optimizer) snapshot() Snapshot {
	snap := Snapshot{
		Densities:    append([]float64(nil), o.densities...),
		StrainEnergy: append([]float64(nil), o.strainEnergy...),
		Compliance:   o.compliance,
		Volume:       o.volume,
		Iteration:    o.iteration,
		Change:       o.change,
		Converged:    o.converged,
	}
	if o.cfg.Stress.Enabled {
		s := o.stressSum
		snap.Stress = &s
	}
	return snap
}

func mean(v []float64) float64 {
	s := 0.0
	for _, x := range v {
		s += x
	}
	return s / float64(len(v))
}
