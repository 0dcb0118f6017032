package solver

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/mat"
	gonumlp "gonum.org/v1/gonum/optimize/convex/lp"

	"github.com/quarree100/q100opt/core/lp"
)

const (
	defaultTolerance = 1e-10
	feasTol          = 1e-9

	// DefaultMaxVariables bounds the problems the dense simplex accepts.
	// One day of an hourly scenario with a few units and a storage stays
	// well below it.
	DefaultMaxVariables = 400
)

// ErrProblemTooLarge is returned by Simplex for problems above its
// variable limit.
var ErrProblemTooLarge = errors.New("problem too large for the in-process simplex, use cbc")

// Simplex solves problems in process with gonum's dense simplex. Its cost
// grows with the cube of the problem size, so it only accepts problems up
// to MaxVariables; larger scenarios need CBC.
type Simplex struct {
	Tolerance float64
	// MaxVariables is the largest accepted problem. Negative disables
	// the check.
	MaxVariables int
}

// NewSimplex returns a simplex solver limited to DefaultMaxVariables. A
// non-positive tolerance selects the default.
func NewSimplex(tol float64) *Simplex {
	if tol <= 0 {
		tol = defaultTolerance
	}
	return &Simplex{Tolerance: tol, MaxVariables: DefaultMaxVariables}
}

func (s *Simplex) Name() string { return "simplex" }

type simplexResult struct {
	x   []float64
	st  Status
	err error
}

// Solve presolves p into standard form and runs the simplex in a separate
// goroutine. When ctx ends first the solve is abandoned and Timeout is
// returned; the goroutine finishes in the background without publishing.
func (s *Simplex) Solve(ctx context.Context, p *lp.Problem) (Solution, error) {
	if ctx.Err() != nil {
		return timeoutStatus(ctx)
	}
	if n := p.NumVariables(); s.MaxVariables >= 0 && n > s.MaxVariables {
		return Solution{Status: Error}, fmt.Errorf("%w: %d variables, limit %d", ErrProblemTooLarge, n, s.MaxVariables)
	}
	start := time.Now()
	ch := make(chan simplexResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- simplexResult{st: Error, err: fmt.Errorf("simplex: %v", r)}
			}
		}()
		x, st, err := solveStandard(p, s.Tolerance)
		ch <- simplexResult{x: x, st: st, err: err}
	}()
	select {
	case <-ctx.Done():
		return timeoutStatus(ctx)
	case r := <-ch:
		sol := Solution{Status: r.st, Duration: time.Since(start)}
		if r.st != Optimal {
			return sol, r.err
		}
		sol.Values = r.x
		sol.Objective = p.Evaluate(r.x)
		return sol, nil
	}
}

// standardForm is min c'y s.t. Ay = b, y >= 0 with x = offset + y.
type standardForm struct {
	offset []float64
	cols   []int // variable -> column, -1 when fixed
	c      []float64
	rows   [][]float64
	b      []float64
	scale  []float64 // magnitude of each row for tolerances
}

func newStandardForm(p *lp.Problem) *standardForm {
	vars := p.Variables()
	obj := p.Objective()
	sf := &standardForm{
		offset: make([]float64, len(vars)),
		cols:   make([]int, len(vars)),
	}
	structural := 0
	var bounded []int
	for j, v := range vars {
		sf.offset[j] = v.Lower
		if v.Fixed() {
			sf.cols[j] = -1
			continue
		}
		sf.cols[j] = structural
		structural++
		if !math.IsInf(v.Upper, 1) {
			bounded = append(bounded, j)
		}
	}
	slacks := len(bounded)
	for _, c := range p.Constraints() {
		if c.Sense != lp.EQ {
			slacks++
		}
	}
	width := structural + slacks
	sf.c = make([]float64, width)
	for j, col := range sf.cols {
		if col >= 0 {
			sf.c[col] = obj[j]
		}
	}

	next := structural
	for _, c := range p.Constraints() {
		row := make([]float64, width)
		rhs, scale := c.RHS, math.Abs(c.RHS)
		for _, t := range c.Terms {
			lo := sf.offset[t.Var]
			rhs -= t.Coef * lo
			scale += math.Abs(t.Coef * lo)
			if col := sf.cols[t.Var]; col >= 0 {
				row[col] += t.Coef
			}
		}
		switch c.Sense {
		case lp.LE:
			row[next] = 1
			next++
		case lp.GE:
			row[next] = -1
			next++
		}
		sf.add(row, rhs, scale)
	}
	for _, j := range bounded {
		row := make([]float64, width)
		row[sf.cols[j]] = 1
		row[next] = 1
		next++
		v := vars[j]
		sf.add(row, v.Upper-v.Lower, math.Abs(v.Upper)+math.Abs(v.Lower))
	}
	return sf
}

func (sf *standardForm) add(row []float64, rhs, scale float64) {
	sf.rows = append(sf.rows, row)
	sf.b = append(sf.b, rhs)
	sf.scale = append(sf.scale, 1+scale)
}

// presolve removes zero columns, zero rows and linearly dependent rows and
// makes b non-negative. It returns the kept columns and a status other than
// Optimal when the problem is decided already.
func (sf *standardForm) presolve() ([]int, Status) {
	width := len(sf.c)
	var keep []int
	for k := 0; k < width; k++ {
		zero := true
		for _, row := range sf.rows {
			if row[k] != 0 {
				zero = false
				break
			}
		}
		if !zero {
			keep = append(keep, k)
			continue
		}
		if sf.c[k] < 0 {
			return nil, Unbounded
		}
	}

	var basis []pivotRow
	var rows [][]float64
	var b []float64
	for i, row := range sf.rows {
		r := make([]float64, len(keep)+1)
		for n, k := range keep {
			r[n] = row[k]
		}
		r[len(keep)] = sf.b[i]
		for _, pr := range basis {
			if f := r[pr.col]; f != 0 {
				for n := range r {
					r[n] -= f * pr.vals[n]
				}
			}
		}
		col, mag := -1, 0.0
		for n := 0; n < len(keep); n++ {
			if a := math.Abs(r[n]); a > mag {
				col, mag = n, a
			}
		}
		if mag <= feasTol*rowMax(row) || col < 0 {
			// dependent row; consistent only when the residual rhs vanishes
			if math.Abs(r[len(keep)]) > feasTol*sf.scale[i] {
				return nil, Infeasible
			}
			continue
		}
		piv := r[col]
		for n := range r {
			r[n] /= piv
		}
		basis = append(basis, pivotRow{col: col, vals: r})

		kept := make([]float64, len(keep))
		for n, k := range keep {
			kept[n] = row[k]
		}
		rhs := sf.b[i]
		if rhs < 0 {
			rhs = -rhs
			for n := range kept {
				kept[n] = -kept[n]
			}
		}
		rows = append(rows, kept)
		b = append(b, rhs)
	}
	sf.rows, sf.b = rows, b
	return keep, Optimal
}

type pivotRow struct {
	col  int
	vals []float64
}

func rowMax(row []float64) float64 {
	m := 0.0
	for _, v := range row {
		m = math.Max(m, math.Abs(v))
	}
	return math.Max(m, 1)
}

// solveStandard returns the optimal values of all variables of p.
func solveStandard(p *lp.Problem, tol float64) ([]float64, Status, error) {
	sf := newStandardForm(p)
	keep, st := sf.presolve()
	if st != Optimal {
		return nil, st, nil
	}
	y := make([]float64, len(sf.c))
	if m := len(sf.rows); m > 0 {
		c := make([]float64, len(keep))
		for n, k := range keep {
			c[n] = sf.c[k]
		}
		data := make([]float64, 0, m*len(keep))
		for _, row := range sf.rows {
			data = append(data, row...)
		}
		_, opt, err := gonumlp.Simplex(c, mat.NewDense(m, len(keep), data), sf.b, tol, nil)
		switch {
		case errors.Is(err, gonumlp.ErrInfeasible):
			return nil, Infeasible, nil
		case errors.Is(err, gonumlp.ErrUnbounded):
			return nil, Unbounded, nil
		case err != nil:
			return nil, Error, fmt.Errorf("simplex: %w", err)
		}
		for n, k := range keep {
			y[k] = math.Max(opt[n], 0)
		}
	}
	x := make([]float64, len(sf.offset))
	for j, col := range sf.cols {
		x[j] = sf.offset[j]
		if col >= 0 {
			x[j] += y[col]
		}
	}
	return x, Optimal, nil
}
