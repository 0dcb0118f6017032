// Package lp holds the linear programs produced by the compiler. A Problem
// is a transient artifact: it is built fresh for every solve.
package lp

import (
	"fmt"
	"math"
)

// Sense is the relation of a constraint row.
type Sense int

const (
	EQ Sense = iota
	LE
	GE
)

func (s Sense) String() string {
	switch s {
	case LE:
		return "<="
	case GE:
		return ">="
	default:
		return "="
	}
}

// VarID indexes a variable within its problem.
type VarID int

// Variable is a continuous decision variable with bounds. Upper may be
// +Inf.
type Variable struct {
	Name  string
	Lower float64
	Upper float64
}

// Fixed reports whether both bounds coincide.
func (v Variable) Fixed() bool { return v.Lower == v.Upper }

// Term is a coefficient applied to a variable.
type Term struct {
	Var  VarID
	Coef float64
}

// Constraint is a linear row: sum(terms) <sense> RHS.
type Constraint struct {
	Name  string
	Terms []Term
	Sense Sense
	RHS   float64
}

// Problem is a minimisation linear program.
type Problem struct {
	Name        string
	vars        []Variable
	names       map[string]VarID
	objective   []float64
	constraints []Constraint
}

// NewProblem returns an empty problem.
func NewProblem(name string) *Problem {
	return &Problem{Name: name, names: make(map[string]VarID)}
}

// AddVariable adds a variable and returns its id. Names must be unique.
func (p *Problem) AddVariable(name string, lower, upper float64) (VarID, error) {
	if _, dup := p.names[name]; dup {
		return 0, fmt.Errorf("lp: duplicate variable %s", name)
	}
	if math.IsNaN(lower) || math.IsNaN(upper) || math.IsInf(lower, 0) {
		return 0, fmt.Errorf("lp: invalid bounds for %s: [%v, %v]", name, lower, upper)
	}
	id := VarID(len(p.vars))
	p.vars = append(p.vars, Variable{Name: name, Lower: lower, Upper: upper})
	p.objective = append(p.objective, 0)
	p.names[name] = id
	return id, nil
}

// SetUpper tightens the upper bound of v.
func (p *Problem) SetUpper(v VarID, upper float64) {
	if upper < p.vars[v].Upper {
		p.vars[v].Upper = upper
	}
}

// AddObjective adds coef to the objective coefficient of v.
func (p *Problem) AddObjective(v VarID, coef float64) { p.objective[v] += coef }

// AddConstraint appends a row. Terms on the same variable are merged and
// zero coefficients dropped.
func (p *Problem) AddConstraint(name string, terms []Term, sense Sense, rhs float64) {
	p.constraints = append(p.constraints, Constraint{Name: name, Terms: mergeTerms(terms), Sense: sense, RHS: rhs})
}

func mergeTerms(terms []Term) []Term {
	pos := make(map[VarID]int, len(terms))
	out := make([]Term, 0, len(terms))
	for _, t := range terms {
		if i, ok := pos[t.Var]; ok {
			out[i].Coef += t.Coef
			continue
		}
		pos[t.Var] = len(out)
		out = append(out, t)
	}
	n := 0
	for _, t := range out {
		if t.Coef != 0 {
			out[n] = t
			n++
		}
	}
	return out[:n]
}

// NumVariables returns the number of variables.
func (p *Problem) NumVariables() int { return len(p.vars) }

// NumConstraints returns the number of rows.
func (p *Problem) NumConstraints() int { return len(p.constraints) }

// Variable returns the variable with id v.
func (p *Problem) Variable(v VarID) Variable { return p.vars[v] }

// Variables returns a copy of all variables.
func (p *Problem) Variables() []Variable { return append([]Variable(nil), p.vars...) }

// Lookup returns the id of the named variable.
func (p *Problem) Lookup(name string) (VarID, bool) {
	id, ok := p.names[name]
	return id, ok
}

// Objective returns a copy of the objective coefficients.
func (p *Problem) Objective() []float64 { return append([]float64(nil), p.objective...) }

// Constraints returns the rows. The slice must not be modified.
func (p *Problem) Constraints() []Constraint { return p.constraints }

// Constraint returns the named row.
func (p *Problem) Constraint(name string) (Constraint, bool) {
	for _, c := range p.constraints {
		if c.Name == name {
			return c, true
		}
	}
	return Constraint{}, false
}

// NonZeros returns the number of constraint coefficients.
func (p *Problem) NonZeros() int {
	n := 0
	for _, c := range p.constraints {
		n += len(c.Terms)
	}
	return n
}

// Evaluate returns the objective value of x.
func (p *Problem) Evaluate(x []float64) float64 {
	var sum float64
	for i, c := range p.objective {
		sum += c * x[i]
	}
	return sum
}

// Activity returns the left hand side of c at x.
func (c Constraint) Activity(x []float64) float64 {
	var sum float64
	for _, t := range c.Terms {
		sum += t.Coef * x[t.Var]
	}
	return sum
}

// Check verifies that x satisfies all bounds and rows within tol.
func (p *Problem) Check(x []float64, tol float64) error {
	if len(x) != len(p.vars) {
		return fmt.Errorf("lp: %d values for %d variables", len(x), len(p.vars))
	}
	for i, v := range p.vars {
		if x[i] < v.Lower-tol || x[i] > v.Upper+tol {
			return fmt.Errorf("lp: %s = %v outside [%v, %v]", v.Name, x[i], v.Lower, v.Upper)
		}
	}
	for _, c := range p.constraints {
		lhs := c.Activity(x)
		var ok bool
		switch c.Sense {
		case LE:
			ok = lhs <= c.RHS+tol
		case GE:
			ok = lhs >= c.RHS-tol
		default:
			ok = math.Abs(lhs-c.RHS) <= tol
		}
		if !ok {
			return fmt.Errorf("lp: row %s violated: %v %s %v", c.Name, lhs, c.Sense, c.RHS)
		}
	}
	return nil
}
