// Package mesh implements the pure Q4/DOF indexing functions of spec.md
// §4.1: a rectangular grid of nelx x nely bilinear quadrilateral elements
// with (nelx+1) x (nely+1) nodes, two DOFs (ux, uy) per node.
//
// Node (i,j) uses column-major numbering: node_index(i,j) = i*(nely+1)+j,
// i in [0,nelx], j in [0,nely]. Element (elx,ely) is indexed
// elx*nely+ely, also column-major.
//
// Corner convention (chosen here and used consistently by elem.Stiffness,
// elem.CenterB, solve.Operator, solve.StrainEnergy and stress.Compute):
// lower-left, lower-right,
// upper-right, upper-left, i.e. counter-clockwise starting at (elx,ely).
package mesh

import "github.com/cpmech/gosl/chk"

// Mesh is a pure function of (Nelx, Nely); it has no mutable state, and
// is cheap to construct and pass by value.
type Mesh struct {
	Nelx, Nely int
}

// New validates nelx, nely and returns a Mesh.
func New(nelx, nely int) (Mesh, error) {
	if nelx < 1 || nely < 1 {
		return Mesh{}, chk.Err("invalid mesh: nelx=%d nely=%d must both be >= 1", nelx, nely)
	}
	return Mesh{Nelx: nelx, Nely: nely}, nil
}

// NumElements returns nelx*nely.
func (m Mesh) NumElements() int { return m.Nelx * m.Nely }

// NumNodes returns (nelx+1)*(nely+1).
func (m Mesh) NumNodes() int { return (m.Nelx + 1) * (m.Nely + 1) }

// NumDOFs returns 2*(nelx+1)*(nely+1).
func (m Mesh) NumDOFs() int { return 2 * m.NumNodes() }

// NodeIndex returns the global node number for node (i,j), column-major:
// i*(nely+1)+j.
func (m Mesh) NodeIndex(i, j int) int { return i*(m.Nely+1) + j }

// ElementIndex returns the global element number for element (elx,ely),
// column-major: elx*nely+ely.
func (m Mesh) ElementIndex(elx, ely int) int { return elx*m.Nely + ely }

// ElementCoords is the inverse of ElementIndex.
func (m Mesh) ElementCoords(e int) (elx, ely int) {
	return e / m.Nely, e % m.Nely
}

// ElementDOFs returns the 8 global DOF indices of element (elx,ely), in
// the corner order lower-left, lower-right, upper-right, upper-left,
// each corner contributing (ux, uy) in that order. This ordering must
// match elem.Stiffness's KE and elem.CenterB's B exactly -- it is the single
// source of consistency for assembly and strain-energy evaluation
// (spec.md §4.1).
func (m Mesh) ElementDOFs(elx, ely int) [8]int {
	n0 := m.NodeIndex(elx, ely)     // lower-left
	n1 := m.NodeIndex(elx+1, ely)   // lower-right
	n2 := m.NodeIndex(elx+1, ely+1) // upper-right
	n3 := m.NodeIndex(elx, ely+1)   // upper-left
	return [8]int{
		2 * n0, 2*n0 + 1,
		2 * n1, 2*n1 + 1,
		2 * n2, 2*n2 + 1,
		2 * n3, 2*n3 + 1,
	}
}

// ElementDOFsByIndex is ElementDOFs keyed by the element's column-major
// index e, the form the hot loops in solve and stress use.
func (m Mesh) ElementDOFsByIndex(e int) [8]int {
	elx, ely := m.ElementCoords(e)
	return m.ElementDOFs(elx, ely)
}
