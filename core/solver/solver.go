// Package solver runs linear programs through an LP solver. Solvers never
// retry: infeasible, unbounded and timed out outcomes are reported as a
// Status and left to the caller.
package solver

import (
	"context"
	"fmt"
	"time"

	"github.com/quarree100/q100opt/core/lp"
)

// Status is the outcome of a solve.
type Status int

const (
	Optimal Status = iota
	Infeasible
	Unbounded
	Timeout
	Error
)

func (s Status) String() string {
	switch s {
	case Optimal:
		return "optimal"
	case Infeasible:
		return "infeasible"
	case Unbounded:
		return "unbounded"
	case Timeout:
		return "timeout"
	default:
		return "error"
	}
}

// Solution is the raw result of a solve. Values are indexed by lp.VarID and
// only set when Status is Optimal.
type Solution struct {
	Status    Status
	Values    []float64
	Objective float64
	Duration  time.Duration
}

// Solver solves a minimisation problem. A non-nil error is returned together
// with Status Error when the solver itself failed.
type Solver interface {
	Name() string
	Solve(ctx context.Context, p *lp.Problem) (Solution, error)
}

// StatusError reports a non optimal outcome verbatim. Err is the solver
// failure behind an Error status, if any.
type StatusError struct {
	Status Status
	Detail string
	Err    error
}

func (e *StatusError) Unwrap() error { return e.Err }

func (e *StatusError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("solver status %s", e.Status)
	}
	return fmt.Sprintf("solver status %s: %s", e.Status, e.Detail)
}

// Require returns a *StatusError unless sol is optimal.
func Require(sol Solution, err error) error {
	if sol.Status == Optimal && err == nil {
		return nil
	}
	se := &StatusError{Status: sol.Status}
	if err != nil {
		if se.Status == Optimal {
			se.Status = Error
		}
		se.Detail = err.Error()
		se.Err = err
	}
	return se
}

// timeoutStatus maps a finished context to a status.
func timeoutStatus(ctx context.Context) (Solution, error) {
	if ctx.Err() == context.DeadlineExceeded {
		return Solution{Status: Timeout}, nil
	}
	return Solution{Status: Error}, ctx.Err()
}
