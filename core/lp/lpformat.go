package lp

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strconv"
)

// ColumnName is the name a variable carries in LP files. External solvers
// are strict about identifiers, so labels never leave the process.
func ColumnName(v VarID) string { return "x" + strconv.Itoa(int(v)) }

// RowName is the name a constraint carries in LP files.
func RowName(i int) string { return "c" + strconv.Itoa(i) }

// WriteLP writes p in CPLEX LP format.
func (p *Problem) WriteLP(w io.Writer) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "\\ %s\n", p.Name)
	bw.WriteString("Minimize\n obj:")
	written := false
	for i, c := range p.objective {
		if c == 0 {
			continue
		}
		writeTerm(bw, c, VarID(i))
		written = true
	}
	if !written && len(p.vars) > 0 {
		writeTerm(bw, 0, 0)
	}
	bw.WriteString("\nSubject To\n")
	for i, c := range p.constraints {
		fmt.Fprintf(bw, " %s:", RowName(i))
		if len(c.Terms) == 0 && len(p.vars) > 0 {
			writeTerm(bw, 0, 0)
		}
		for _, t := range c.Terms {
			writeTerm(bw, t.Coef, t.Var)
		}
		fmt.Fprintf(bw, " %s %s\n", c.Sense, num(c.RHS))
	}
	bw.WriteString("Bounds\n")
	for i, v := range p.vars {
		name := ColumnName(VarID(i))
		switch {
		case v.Fixed():
			fmt.Fprintf(bw, " %s = %s\n", name, num(v.Lower))
		case math.IsInf(v.Upper, 1):
			fmt.Fprintf(bw, " %s >= %s\n", name, num(v.Lower))
		default:
			fmt.Fprintf(bw, " %s <= %s <= %s\n", num(v.Lower), name, num(v.Upper))
		}
	}
	bw.WriteString("End\n")
	return bw.Flush()
}

func writeTerm(w *bufio.Writer, coef float64, v VarID) {
	sign := "+"
	if coef < 0 {
		sign = "-"
		coef = -coef
	}
	fmt.Fprintf(w, " %s %s %s", sign, num(coef), ColumnName(v))
}

func num(f float64) string { return strconv.FormatFloat(f, 'g', -1, 64) }
