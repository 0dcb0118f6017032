package model

// FlowKey identifies a flow by the labels of its endpoints.
type FlowKey struct {
	From string
	To   string
}

func (k FlowKey) String() string { return k.From + "->" + k.To }

// Investment turns the capacity of a flow or storage into a decision
// variable with an annualised cost.
type Investment struct {
	Capex    float64 // capital expenditure per unit of capacity
	Lifetime float64 // years
	Rate     float64 // discount rate
	Maximum  float64 // upper bound of the new capacity, 0 means unbounded
	Existing float64 // capacity installed already, free of charge
}

// Flow is a directed, time indexed edge between a bus and a unit. From and
// To are filled in by Topology.Add from the owning unit.
type Flow struct {
	From string
	To   string

	// NominalValue bounds the flow. For fixed flows it scales Profile.
	NominalValue *float64
	// Profile is the actual value of a fixed flow. For a non fixed flow with
	// a capacity it is the per step maximum factor.
	Profile Sequence
	Fixed   bool

	VariableCost Sequence
	// Emission is the emission factor per unit of flow. Undefined means the
	// flow does not take part in the emission limit.
	Emission Sequence

	Investment *Investment
}

// Key returns the flow key.
func (f *Flow) Key() FlowKey { return FlowKey{From: f.From, To: f.To} }

// Investable reports whether the flow carries an investment decision.
func (f *Flow) Investable() bool { return f.Investment != nil }

// MaxFactor is the factor applied to the flow capacity at step t.
func (f *Flow) MaxFactor(t int) float64 {
	if !f.Fixed && f.Profile.Defined() {
		return f.Profile.At(t)
	}
	return 1
}

func (f *Flow) validate(owner string, steps int) error {
	key := FlowKey{From: f.From, To: f.To}.String()
	if f.Fixed && len(f.Profile) != steps {
		return configErrorf(owner, "fixed flow %s has a profile of length %d, want %d", key, len(f.Profile), steps)
	}
	if !f.Profile.validLen(steps) {
		return configErrorf(owner, "flow %s profile has length %d, want %d", key, len(f.Profile), steps)
	}
	if !f.VariableCost.validLen(steps) {
		return configErrorf(owner, "flow %s variable costs have length %d, want 1 or %d", key, len(f.VariableCost), steps)
	}
	if !f.Emission.validLen(steps) {
		return configErrorf(owner, "flow %s emission factors have length %d, want 1 or %d", key, len(f.Emission), steps)
	}
	if f.NominalValue != nil && *f.NominalValue < 0 {
		return configErrorf(owner, "flow %s has a negative nominal value", key)
	}
	if inv := f.Investment; inv != nil {
		if inv.Maximum < 0 || inv.Existing < 0 {
			return configErrorf(owner, "flow %s investment bounds must not be negative", key)
		}
	}
	return nil
}
