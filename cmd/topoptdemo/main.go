// Command topoptdemo is a thin host around the topopt core, the way
// gofem/main.go is a thin host around package fem: it builds the
// problem data, drives the stepping API to convergence, and prints a
// compact history table. All I/O lives here; package topopt itself only
// prints its optional progress log when Config.Verbose is set (this demo
// sets it from the -verbose flag, on by default).
package main

import (
	"flag"

	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/io"

	"github.com/cpmech/topopt"
	"github.com/cpmech/topopt/inp"
	"github.com/cpmech/topopt/mesh"
)

func main() {
	nelx := flag.Int("nelx", 60, "elements along x")
	nely := flag.Int("nely", 20, "elements along y")
	volfrac := flag.Float64("volfrac", 0.5, "target volume fraction")
	rmin := flag.Float64("rmin", 1.5, "filter radius in element units")
	verbose := flag.Bool("verbose", true, "log progress")
	flag.Parse()

	defer func() {
		if r := recover(); r != nil {
			chk.Verbose = true
			io.Pfred("topoptdemo: fatal: %v\n", r)
		}
	}()

	cfg := inp.DefaultConfig()
	cfg.Nelx, cfg.Nely = *nelx, *nely
	cfg.Volfrac = *volfrac
	cfg.Rmin = *rmin
	cfg.Verbose = *verbose

	prob := mbbProblem(*nelx, *nely)

	opt, err := topopt.New(cfg, prob)
	if err != nil {
		chk.Panic("topoptdemo: cannot build optimizer: %v", err)
	}

	io.Pf("iter  compliance     volume    change\n")
	for {
		snap, err := opt.Step()
		if err != nil && topopt.IsKind(err, topopt.Nonfinite) {
			chk.Panic("topoptdemo: %v", err)
		}
		if hp, ok := opt.History(); ok {
			io.Pf("%4d  %10.4f  %8.4f  %8.5f\n", hp.Iteration, hp.Compliance, hp.Volume, hp.Change)
		}
		if snap.Converged {
			break
		}
	}
}

// mbbProblem builds the MBB-beam half-model load case of spec.md §8: a
// point load (0,-1) at the top-left node, fixed x-DOFs along the whole
// left edge plus the y-DOF at the bottom-right node.
func mbbProblem(nelx, nely int) inp.Problem {
	m, err := mesh.New(nelx, nely)
	if err != nil {
		chk.Panic("topoptdemo: %v", err)
	}
	ndof := m.NumDOFs()
	forces := make([]float64, ndof)
	topLeft := m.NodeIndex(0, nely)
	forces[2*topLeft+1] = -1

	var fixed []int
	for j := 0; j <= nely; j++ {
		n := m.NodeIndex(0, j)
		fixed = append(fixed, 2*n) // ux along the left edge
	}
	bottomRight := m.NodeIndex(nelx, 0)
	fixed = append(fixed, 2*bottomRight+1) // uy at the bottom-right node

	return inp.Problem{Forces: forces, FixedDOF: fixed}
}
