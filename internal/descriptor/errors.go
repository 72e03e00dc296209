package descriptor

import (
	"errors"
	"fmt"
)

// ConfigurationError reports a malformed descriptor set. It is raised at
// schema construction time and is fatal for the affected table domain.
type ConfigurationError struct {
	Domain string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("table configuration for %q: %s", e.Domain, e.Reason)
}

func newConfigError(domain, format string, args ...any) error {
	return &ConfigurationError{
		Domain: domain,
		Reason: fmt.Sprintf(format, args...),
	}
}

// IsConfigurationError reports whether err is a ConfigurationError.
func IsConfigurationError(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}
