package model

// Sequence is a per time step parameter. An empty sequence is undefined, a
// sequence with a single element is constant over the horizon and any other
// sequence holds one value per time step.
type Sequence []float64

// Constant returns a sequence holding v for every time step.
func Constant(v float64) Sequence { return Sequence{v} }

// Defined reports whether the sequence holds at least one value.
func (s Sequence) Defined() bool { return len(s) > 0 }

// At returns the value for time step t. Undefined sequences yield 0.
func (s Sequence) At(t int) float64 {
	switch len(s) {
	case 0:
		return 0
	case 1:
		return s[0]
	default:
		return s[t]
	}
}

// Nonzero reports whether any of the first n steps is different from zero.
func (s Sequence) Nonzero(n int) bool {
	for t := 0; t < n; t++ {
		if s.At(t) != 0 {
			return true
		}
	}
	return false
}

func (s Sequence) validLen(steps int) bool {
	return len(s) <= 1 || len(s) == steps
}

// Float returns a pointer to v. It is a helper for optional parameters.
func Float(v float64) *float64 { return &v }
