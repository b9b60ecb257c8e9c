// Package solve implements spec.md §4.4 (Jacobi-preconditioned CG) and
// §4.5 (FEA assembly and per-element strain energy). No sparse matrix is
// ever assembled (spec.md §9): the CG matrix-vector product is a
// gather-multiply-scatter over elements using KE, the pattern gofem's
// elements use to add their local Kb into the global Jacobian, here
// applied directly to a vector instead of a Triplet.
package solve

import (
	"math"

	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/la"

	"github.com/cpmech/topopt/mesh"
)

// SIMPModulus returns E(rho) = EMin + rho^penal*(ESolid-EMin), spec.md §4.5.
func SIMPModulus(rho, penal, eMin, eSolid float64) float64 {
	return eMin + math.Pow(rho, penal)*(eSolid-eMin)
}

// Operator is the matrix-free SPD operator A = K(rho) implied by the
// current densities: Ax is computed by gathering x at each element's 8
// DOFs, multiplying by E(rho_e)*KE, and scattering the result, then
// zeroing fixed DOFs (the "zero-row/column" technique of spec.md §4.4,
// applied to the operator's output rather than to a stored matrix).
type Operator struct {
	m      mesh.Mesh
	ke     [8][8]float64
	keRows [][]float64 // ke's rows, precomputed once for la.MatVecMul
	dens   []float64   // per-element density
	penal  float64
	eMin   float64
	eSolid float64
	fixed  []bool // len == ndof
}

// NewOperator builds an Operator over the given densities. densities
// and fixed are referenced, not copied (ke is an array value and is
// copied); the caller must not mutate
// densities while the Operator is in use within a single Mul call.
// keRows is computed once here, not per Mul call (spec.md §5).
func NewOperator(m mesh.Mesh, ke [8][8]float64, densities []float64, penal, eMin, eSolid float64, fixed []bool) Operator {
	return Operator{m: m, ke: ke, keRows: matSlice(ke), dens: densities, penal: penal, eMin: eMin, eSolid: eSolid, fixed: fixed}
}

// SetDensities rebinds the operator to a new density slice (e.g. a
// per-step physical/filtered field) without reallocating keRows, so a
// single Operator can be built once in New and reused every Step
// (spec.md §5) even when the density field driving the FEA solve
// changes identity from one step to the next.
func (o *Operator) SetDensities(densities []float64) {
	o.dens = densities
}

// SetFixed rebinds the operator to a new fixed-DOF mask, for the same
// reason SetDensities exists: a long-lived Operator must track a fixed
// set that can be replaced (topopt.Optimizer.SetFixedDOFs) after
// construction but before the first Step.
func (o *Operator) SetFixed(fixed []bool) {
	o.fixed = fixed
}

// Mul computes y = A*x, zeroing fixed DOFs of y afterwards.
func (o Operator) Mul(y, x []float64) {
	for i := range y {
		y[i] = 0
	}
	var ue, fe [8]float64
	for e := 0; e < o.m.NumElements(); e++ {
		dofs := o.m.ElementDOFsByIndex(e)
		for k, d := range dofs {
			ue[k] = x[d]
		}
		E := SIMPModulus(o.dens[e], o.penal, o.eMin, o.eSolid)
		la.MatVecMul(fe[:], E, o.keRows, ue[:])
		for k, d := range dofs {
			y[d] += fe[k]
		}
	}
	for d, isFixed := range o.fixed {
		if isFixed {
			y[d] = 0
		}
	}
}

// Diag returns the diagonal of A, used as the Jacobi preconditioner.
func (o Operator) Diag(out []float64) {
	for i := range out {
		out[i] = 0
	}
	for e := 0; e < o.m.NumElements(); e++ {
		dofs := o.m.ElementDOFsByIndex(e)
		E := SIMPModulus(o.dens[e], o.penal, o.eMin, o.eSolid)
		for k, d := range dofs {
			out[d] += E * o.ke[k][k]
		}
	}
	for d, isFixed := range o.fixed {
		if isFixed {
			out[d] = 1
		}
	}
}

// matSlice adapts a fixed [8][8]float64 to the [][]float64 shape
// gosl/la.MatVecMul expects.
func matSlice(ke [8][8]float64) [][]float64 {
	rows := make([][]float64, 8)
	for i := range rows {
		row := ke[i]
		rows[i] = row[:]
	}
	return rows
}

// CGResult reports how the solve terminated.
type CGResult struct {
	Iterations int
	Residual   float64
	Converged  bool // true if residual tolerance was met before MaxIter
}

// Workspace holds CG's scratch vectors (r, diag, z, p, q, zNew), sized
// ndof. The caller (the Optimizer) allocates one Workspace once and
// reuses it across every Step's CG solve, per spec.md §5 ("CG work
// vectors ... owned by the Optimizer and reused across steps to avoid
// allocation churn").
type Workspace struct {
	r, diag, z, p, q, zNew []float64
}

// NewWorkspace allocates a Workspace sized for an n-DOF system.
func NewWorkspace(n int) Workspace {
	return Workspace{
		r:    make([]float64, n),
		diag: make([]float64, n),
		z:    make([]float64, n),
		p:    make([]float64, n),
		q:    make([]float64, n),
		zNew: make([]float64, n),
	}
}

// CG solves A*x = b by Jacobi-preconditioned conjugate gradients
// (spec.md §4.4). x is the work buffer the result is written into; the
// caller owns allocation and must size it len(b), as must ws (spec.md
// §5: no per-step allocation). fixed DOFs of b are zeroed first
// (Dirichlet BCs). Returns (result, error): error is non-nil (and wraps
// chk.Err) only if the iterate goes non-finite, the Nonfinite case of
// spec.md §7; running out of MaxIter is reported via
// CGResult.Converged == false, not an error (NotConverged is a warning).
func CG(op Operator, x, b []float64, fixed []bool, tol float64, maxIter int, ws *Workspace) (CGResult, error) {
	n := len(b)
	for d, isFixed := range fixed {
		if isFixed {
			b[d] = 0
		}
	}
	bnorm := la.VecNorm(b)
	for i := range x {
		x[i] = 0
	}
	r, diag, z, p, q, zNew := ws.r, ws.diag, ws.z, ws.p, ws.q, ws.zNew
	copy(r, b)
	op.Diag(diag)
	jacobi(z, diag, r)
	copy(p, z)
	rho := dot(r, z)

	if bnorm == 0 {
		return CGResult{Converged: true}, nil
	}

	for it := 0; it < maxIter; it++ {
		op.Mul(q, p)
		pq := dot(p, q)
		if pq == 0 {
			return CGResult{Iterations: it, Residual: la.VecNorm(r) / bnorm}, nil
		}
		alpha := rho / pq
		for i := 0; i < n; i++ {
			x[i] += alpha * p[i]
			r[i] -= alpha * q[i]
		}
		if !isFinite(x) || !isFinite(r) {
			return CGResult{Iterations: it}, chk.Err("conjugate-gradient iterate became non-finite at iteration %d", it)
		}
		rnorm := la.VecNorm(r)
		if rnorm < tol*bnorm || rnorm < 1e-300 {
			return CGResult{Iterations: it + 1, Residual: rnorm / bnorm, Converged: true}, nil
		}
		jacobi(zNew, diag, r)
		rhoNew := dot(r, zNew)
		beta := rhoNew / rho
		for i := 0; i < n; i++ {
			p[i] = zNew[i] + beta*p[i]
		}
		rho = rhoNew
	}
	return CGResult{Iterations: maxIter, Residual: la.VecNorm(r) / bnorm, Converged: false}, nil
}

func dot(a, b []float64) float64 {
	s := 0.0
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}

func jacobi(z, diag, r []float64) {
	for i := range z {
		z[i] = r[i] / diag[i]
	}
}

func isFinite(v []float64) bool {
	for _, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}
