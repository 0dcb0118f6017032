// Package economics converts one-off capital expenditures into equivalent
// periodic costs.
package economics

import (
	"fmt"
	"math"
)

// DomainError reports non-physical economic parameters.
type DomainError struct {
	Param string
	Value float64
}

func (e *DomainError) Error() string {
	return fmt.Sprintf("economics: invalid %s %v", e.Param, e.Value)
}

// Annuity returns the yearly cost equivalent to capex spread over lifetime
// years at the given discount rate using the capital recovery factor. A rate
// of zero or below yields capex / lifetime.
func Annuity(capex, lifetime, rate float64) (float64, error) {
	if math.IsNaN(capex) || math.IsInf(capex, 0) {
		return 0, &DomainError{Param: "capex", Value: capex}
	}
	if lifetime <= 0 || math.IsNaN(lifetime) || math.IsInf(lifetime, 0) {
		return 0, &DomainError{Param: "lifetime", Value: lifetime}
	}
	if rate < -1 || math.IsNaN(rate) || math.IsInf(rate, 0) {
		return 0, &DomainError{Param: "rate", Value: rate}
	}
	if rate > 0 {
		return capex * rate / (1 - math.Pow(1+rate, -lifetime)), nil
	}
	return capex / lifetime, nil
}

// EPCosts returns the equivalent periodic costs for a horizon covering the
// given fraction of a year.
func EPCosts(capex, lifetime, rate, fraction float64) (float64, error) {
	a, err := Annuity(capex, lifetime, rate)
	if err != nil {
		return 0, err
	}
	if fraction < 0 || math.IsNaN(fraction) || math.IsInf(fraction, 0) {
		return 0, &DomainError{Param: "horizon fraction", Value: fraction}
	}
	return a * fraction, nil
}
