package filter

import "fmt"

// ConfigError rejects a predicate update: unknown name, a payload of the
// wrong kind, or invalid bounds.
type ConfigError struct {
	Name   string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("filter %q: %s", e.Name, e.Reason)
}
