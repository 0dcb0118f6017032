package scenario

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/spf13/cast"
)

// row reads typed cells of one table row.
type row struct {
	t *Table
	i int
}

func (r row) err(col, format string, args ...any) error {
	return &ScenarioError{Table: r.t.Name, Row: r.i + 1, Column: col, Reason: fmt.Sprintf(format, args...)}
}

// raw returns the cell value and whether it is non-empty.
func (r row) raw(col string) (any, bool) {
	v, _ := r.t.Cell(r.i, col)
	return v, !empty(v)
}

func empty(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		s := strings.TrimSpace(x)
		return s == "" || strings.EqualFold(s, "nan")
	case float64:
		return math.IsNaN(x)
	}
	return false
}

func (r row) str(col string) (string, error) {
	if !r.t.Has(col) {
		return "", r.err(col, "missing column")
	}
	v, ok := r.raw(col)
	if !ok {
		return "", r.err(col, "empty cell")
	}
	s, err := cast.ToStringE(v)
	if err != nil {
		return "", r.err(col, "not a string: %v", err)
	}
	return strings.TrimSpace(s), nil
}

func (r row) float(col string) (float64, error) {
	if !r.t.Has(col) {
		return 0, r.err(col, "missing column")
	}
	v, err := r.optFloat(col)
	if err != nil {
		return 0, err
	}
	if v == nil {
		return 0, r.err(col, "empty cell")
	}
	return *v, nil
}

// optFloat returns nil for a missing column or an empty cell.
func (r row) optFloat(col string) (*float64, error) {
	v, ok := r.raw(col)
	if !ok {
		return nil, nil
	}
	if s, isStr := v.(string); isStr {
		v = strings.TrimSpace(s)
	}
	f, err := cast.ToFloat64E(v)
	if err != nil || math.IsInf(f, 0) {
		return nil, r.err(col, "not a number: %v", v)
	}
	return &f, nil
}

func (r row) integer(col string) (int, error) {
	f, err := r.float(col)
	if err != nil {
		return 0, err
	}
	if f != math.Trunc(f) {
		return 0, r.err(col, "not an integer: %v", f)
	}
	return int(f), nil
}

// boolean returns def for a missing column or an empty cell. Numbers are
// true when non-zero.
func (r row) boolean(col string, def bool) (bool, error) {
	v, ok := r.raw(col)
	if !ok {
		return def, nil
	}
	if s, isStr := v.(string); isStr {
		v = strings.TrimSpace(s)
	}
	if b, err := cast.ToBoolE(v); err == nil {
		return b, nil
	}
	if f, err := cast.ToFloat64E(v); err == nil {
		return f != 0, nil
	}
	return false, r.err(col, "not a boolean: %v", v)
}

func (r row) timestamp(col string) (time.Time, error) {
	v, ok := r.raw(col)
	if !ok {
		return time.Time{}, r.err(col, "empty timestamp")
	}
	ts, err := cast.ToTimeInDefaultLocationE(v, time.UTC)
	if err != nil {
		return time.Time{}, r.err(col, "not a timestamp: %v", v)
	}
	return ts, nil
}
