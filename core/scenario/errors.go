package scenario

import (
	"fmt"
	"strings"
)

// ScenarioError reports a missing or malformed table, row or cell. Row is
// the one based data row as printed in messages, or 0 for table level
// problems.
type ScenarioError struct {
	Table  string
	Row    int
	Column string
	Reason string
}

func (e *ScenarioError) Error() string {
	var b strings.Builder
	b.WriteString("scenario error: ")
	b.WriteString(e.Table)
	if e.Row > 0 {
		fmt.Fprintf(&b, " row %d", e.Row)
	}
	if e.Column != "" {
		fmt.Fprintf(&b, " column %q", e.Column)
	}
	b.WriteString(": ")
	b.WriteString(e.Reason)
	return b.String()
}

func tableErr(table, column, format string, args ...any) error {
	return &ScenarioError{Table: table, Row: 0, Column: column, Reason: fmt.Sprintf(format, args...)}
}
