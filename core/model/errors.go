package model

import "fmt"

// ConfigurationError reports a malformed or contradictory energy system
// definition. It is raised before any solve attempt.
type ConfigurationError struct {
	Label  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	if e.Label == "" {
		return fmt.Sprintf("configuration error: %s", e.Reason)
	}
	return fmt.Sprintf("configuration error: %s: %s", e.Label, e.Reason)
}

func configErrorf(label, format string, args ...any) error {
	return &ConfigurationError{Label: label, Reason: fmt.Sprintf(format, args...)}
}

// NewConfigurationError returns a ConfigurationError for the given label.
func NewConfigurationError(label, format string, args ...any) error {
	return configErrorf(label, format, args...)
}
