// Package inp holds the immutable, in-process input data for a topology
// optimization run: the SIMP/OC configuration and the problem's forces
// and fixed degrees of freedom. There is no file or wire format here; the
// host builds these structures directly, the way gofem's own callers
// build an inp.Simulation before handing it to fem.NewFEM -- except here
// the data arrives as plain Go values, not parsed from a .sim file.
package inp

import "github.com/cpmech/gosl/chk"

// FilterKind selects which of the two filters (spec.md §4.6) runs before
// the OC update; exactly one runs per iteration. Which filter is the
// default varies across the source paths this spec was distilled from
// (spec.md §9); this module picks Sensitivity as the default, a
// build-time decision, not a per-run option a host is expected to flip
// casually.
type FilterKind int

const (
	// SensitivityFilter is the classical Sigmund density-weighted
	// sensitivity filter, and the default (the zero value). It reads
	// densities but never modifies them; the optimizer's design field
	// and the field the FEA solve sees are identical under this mode.
	SensitivityFilter FilterKind = iota
	// DensityFilter filters the design field itself into a separate
	// physical-density buffer the FEA solve and OC update read (the raw
	// design field is what the OC update writes back into); the
	// sensitivities pass through unfiltered.
	DensityFilter
)

// Config holds the mesh size and all tunable SIMP/OC/CG parameters for a
// run. Config is immutable once an Optimizer has been constructed from
// it (spec.md §3, "Lifecycle").
type Config struct {
	Nelx, Nely int     // mesh size in elements
	Volfrac    float64 // target volume fraction, (0,1)
	Penal      float64 // SIMP penalization exponent, >= 1
	Rmin       float64 // filter radius in element units, > 0
	Nu         float64 // Poisson's ratio used to build KE

	EMin   float64 // Young's modulus floor (void), default 1e-9
	ESolid float64 // Young's modulus of solid material, default 1

	MaxIter int     // outer iteration cap, default 200
	Tolx    float64 // convergence threshold on max density change, default 0.01

	Move       float64 // OC move limit, default 0.2
	RhoMin     float64 // OC density floor, default 1e-3
	RhoMax     float64 // OC density ceiling, default 1
	LambdaLo   float64 // OC bisection lower bound, default 0
	LambdaHi   float64 // OC bisection upper bound, default 1e9
	BisectTol  float64 // OC bisection tolerance, default 1e-3

	CGTol     float64 // CG relative residual tolerance, default 1e-8
	CGMaxIter int     // CG iteration cap; 0 means 10*ndof

	Verbose bool       // gate stdout logging (gosl/io), default false
	Filter  FilterKind // which filter runs before the OC update, default SensitivityFilter

	// Stress holds the optional stress-constrained (soft-material)
	// extension parameters. A zero-value Stress.Enabled == false keeps
	// the optimizer in the plain compliance-minimization mode.
	Stress StressConfig
}

// StressConfig configures the stress-constrained variant (spec.md §4.9).
type StressConfig struct {
	Enabled bool

	SigmaUltimate float64 // ultimate (or fatigue) stress ceiling
	SafetyFactor  float64 // applied safety factor
	PNorm         float64 // P-norm exponent aggregating element stresses, ~8-12
	Weight        float64 // coefficient weighting the stress sensitivity term
	WallRmin      float64 // minimum-wall-thickness filter radius
}

// DefaultConfig returns a Config populated with the numeric floors and OC/CG
// defaults named in spec.md §3, with Penal=3 and Nu=0.3. Callers still must
// set Nelx, Nely, Volfrac and Rmin.
func DefaultConfig() Config {
	return Config{
		Penal:     3,
		Nu:        0.3,
		EMin:      1e-9,
		ESolid:    1,
		MaxIter:   200,
		Tolx:      0.01,
		Move:      0.2,
		RhoMin:    0.001,
		RhoMax:    1,
		LambdaLo:  0,
		LambdaHi:  1e9,
		BisectTol: 1e-3,
		CGTol:     1e-8,
	}
}

// Validate checks the dimension and parameter constraints from spec.md §6
// ("new(...) fails with InvalidConfig if..."). It returns an error built
// with gosl/chk.Err, the way gofem validates simulation input.
func (c Config) Validate() error {
	if c.Nelx < 1 {
		return chk.Err("invalid config: nelx must be >= 1, got %d", c.Nelx)
	}
	if c.Nely < 1 {
		return chk.Err("invalid config: nely must be >= 1, got %d", c.Nely)
	}
	if !(c.Volfrac > 0 && c.Volfrac < 1) {
		return chk.Err("invalid config: volfrac must be in (0,1), got %g", c.Volfrac)
	}
	if c.Rmin <= 0 {
		return chk.Err("invalid config: rmin must be > 0, got %g", c.Rmin)
	}
	if c.Penal < 1 {
		return chk.Err("invalid config: penal must be >= 1, got %g", c.Penal)
	}
	if c.Nu < 0 || c.Nu >= 0.5 {
		return chk.Err("invalid config: nu must be in [0,0.5), got %g", c.Nu)
	}
	if c.EMin < 0 || c.EMin >= c.ESolid {
		return chk.Err("invalid config: EMin must be in [0,ESolid), got EMin=%g ESolid=%g", c.EMin, c.ESolid)
	}
	if c.RhoMin <= 0 || c.RhoMin >= c.RhoMax {
		return chk.Err("invalid config: RhoMin must be in (0,RhoMax), got RhoMin=%g RhoMax=%g", c.RhoMin, c.RhoMax)
	}
	if c.Tolx <= 0 {
		return chk.Err("invalid config: tolx must be > 0, got %g", c.Tolx)
	}
	if c.MaxIter < 1 {
		return chk.Err("invalid config: max_iter must be >= 1, got %d", c.MaxIter)
	}
	if c.Stress.Enabled {
		if c.Stress.SigmaUltimate <= 0 {
			return chk.Err("invalid config: stress.sigma_ultimate must be > 0, got %g", c.Stress.SigmaUltimate)
		}
		if c.Stress.SafetyFactor <= 0 {
			return chk.Err("invalid config: stress.safety_factor must be > 0, got %g", c.Stress.SafetyFactor)
		}
		if c.Stress.PNorm < 1 {
			return chk.Err("invalid config: stress.p_norm must be >= 1, got %g", c.Stress.PNorm)
		}
	}
	return nil
}

// NumElements returns nelx*nely.
func (c Config) NumElements() int { return c.Nelx * c.Nely }

// CGMaxIterFor returns the configured CG iteration cap, defaulting to
// 10*ndof per spec.md §3 ("CG params: ... max iterations >= 10*ndof").
func (c Config) CGMaxIterFor(ndof int) int {
	if c.CGMaxIter > 0 {
		return c.CGMaxIter
	}
	return 10 * ndof
}
