package solver

import (
	"sort"

	"github.com/quarree100/q100opt/core/factory"
	"github.com/quarree100/q100opt/core/logger"
)

var registry = factory.NewRegistry[Solver]()

// init registers the built-in solvers.
func init() {
	_ = registry.Register("simplex", func(conf map[string]any) (Solver, error) {
		var c struct {
			Tolerance    float64 `json:"tolerance"`
			MaxVariables int     `json:"max_variables"`
		}
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		s := NewSimplex(c.Tolerance)
		if c.MaxVariables != 0 {
			s.MaxVariables = c.MaxVariables
		}
		return s, nil
	})
	_ = registry.Register("cbc", func(conf map[string]any) (Solver, error) {
		var c CBCConfig
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return NewCBC(c, nil), nil
	})
}

// Register adds a solver factory identified by name.
func Register(name string, f factory.Factory[Solver]) error {
	return registry.Register(name, f)
}

// New creates the configured solver. Solvers that echo their output use log.
func New(cfg factory.ModuleConfig, log logger.Logger) (Solver, error) {
	s, err := registry.Create(cfg)
	if err != nil {
		return nil, err
	}
	if l, ok := s.(interface{ SetLogger(logger.Logger) }); ok && log != nil {
		l.SetLogger(log)
	}
	return s, nil
}

// Names returns the registered solver names.
func Names() []string {
	names := registry.Names()
	sort.Strings(names)
	return names
}
