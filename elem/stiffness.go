// Package elem implements the closed-form element-level quantities of
// spec.md §4.2 and §4.9: the unit-modulus Q4 stiffness matrix KE, the
// plane-stress constitutive matrix D, and the strain-displacement matrix
// B evaluated at the element center.
//
// D follows the plane-stress branch of gofem's
// mdl/solid.SmallElasticity.CalcD: c = E/(1-nu^2), with D[0][0]=D[1][1]=c,
// D[0][1]=D[1][0]=c*nu, D[2][2]=c*(1-nu)/2 (shear row/col, acting on the
// engineering shear strain gamma_xy), the off-plane row/column dropped
// since plane stress here is strictly 2D (sigma_z=0, not merely unused). KE is the closed-form integral of B^T*D*B over the
// unit square for D with E=1 (Gauss 2x2 quadrature), matching the classic
// Andreassen et al. topology-optimization element stiffness used widely
// in 2D SIMP codes.
package elem

// Stiffness returns the symmetric 8x8 unit-Young's-modulus Q4 element
// stiffness matrix for a unit square element and Poisson ratio nu, under
// the lower-left/lower-right/upper-right/upper-left corner ordering
// documented in package mesh. It is pure and cheap; callers cache the
// result for the lifetime of a run (spec.md §4.2: "KE is constant for a
// run and cached").
func Stiffness(nu float64) [8][8]float64 {
	a11 := [4][4]float64{
		{12, 3, -6, -3},
		{3, 12, 3, 0},
		{-6, 3, 12, -3},
		{-3, 0, -3, 12},
	}
	a12 := [4][4]float64{
		{-6, -3, 0, 3},
		{-3, -6, -3, -6},
		{0, -3, -6, 3},
		{3, -6, 3, -6},
	}
	b11 := [4][4]float64{
		{-4, 3, -2, 9},
		{3, -4, -9, 4},
		{-2, -9, -4, -3},
		{9, 4, -3, -4},
	}
	b12 := [4][4]float64{
		{2, -3, 4, -9},
		{-3, 2, 9, -2},
		{4, 9, 2, 3},
		{-9, -2, 3, 2},
	}
	var ke [8][8]float64
	c := 1.0 / (1.0 - nu*nu) / 24.0
	// top-left and bottom-right 4x4 blocks use A11 + nu*B11;
	// top-right block uses A12 + nu*B12; bottom-left is its transpose.
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			tl := c * (a11[i][j] + nu*b11[i][j])
			tr := c * (a12[i][j] + nu*b12[i][j])
			ke[i][j] = tl
			ke[i+4][j+4] = tl
			ke[i][j+4] = tr
			ke[j+4][i] = tr
		}
	}
	return ke
}

// PlaneStressD returns the 3x3 plane-stress constitutive matrix for
// Young's modulus E and Poisson ratio nu, ordered (sigma_x, sigma_y,
// tau_xy) / (eps_x, eps_y, gamma_xy), grounded on the Pse branch of
// gofem's mdl/solid.SmallElasticity.CalcD.
func PlaneStressD(E, nu float64) [3][3]float64 {
	c := E / (1 - nu*nu)
	return [3][3]float64{
		{c, c * nu, 0},
		{c * nu, c, 0},
		{0, 0, c * (1 - nu) / 2},
	}
}

// CenterB returns the 3x8 strain-displacement matrix for a unit-square
// Q4 element evaluated at its natural-coordinate center (xi=eta=0),
// under the corner ordering documented in package mesh. Row order is
// (eps_x, eps_y, gamma_xy); column order matches mesh.ElementDOFs (ux0,
// uy0, ux1, uy1, ux2, uy2, ux3, uy3).
func CenterB() [3][8]float64 {
	// dN/dxi, dN/deta at xi=eta=0 for shape functions ordered
	// lower-left, lower-right, upper-right, upper-left on [-1,1]^2,
	// scaled by the constant Jacobian inverse (2,2) of the unit-square
	// map x=(xi+1)/2, y=(eta+1)/2.
	dNdx := [4]float64{-0.5, 0.5, 0.5, -0.5}
	dNdy := [4]float64{-0.5, -0.5, 0.5, 0.5}
	var b [3][8]float64
	for a := 0; a < 4; a++ {
		b[0][2*a] = dNdx[a]
		b[1][2*a+1] = dNdy[a]
		b[2][2*a] = dNdy[a]
		b[2][2*a+1] = dNdx[a]
	}
	return b
}
