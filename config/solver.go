package config

import (
	"fmt"
	"slices"
	"time"

	"github.com/quarree100/q100opt/core/factory"
	"github.com/quarree100/q100opt/core/solver"
)

// SolverConfig selects the solver backend. Conf is decoded by the backend.
// CBC is the default; simplex runs in process and only takes small models.
type SolverConfig struct {
	Type           string         `json:"type"`
	Conf           map[string]any `json:"conf"`
	TimeoutSeconds int            `json:"timeout_seconds"`
}

func (c *SolverConfig) SetDefaults() {
	if c.Type == "" {
		c.Type = "cbc"
	}
}

func (c SolverConfig) Validate() error {
	if !slices.Contains(solver.Names(), c.Type) {
		return fmt.Errorf("unknown solver %q", c.Type)
	}
	if c.TimeoutSeconds < 0 {
		return fmt.Errorf("timeout_seconds must not be negative")
	}
	return nil
}

// Module returns the registry configuration of the solver.
func (c SolverConfig) Module() factory.ModuleConfig {
	return factory.ModuleConfig{Type: c.Type, Conf: c.Conf}
}

// Timeout is zero when the solver may run without deadline.
func (c SolverConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}
