package call

import "fmt"

// The error taxonomy mirrors how outcomes are rendered: validation and
// provider failures on management actions become JSON error bodies,
// configuration failures on voice actions become spoken apologies. All of
// them answer HTTP 200; the provider treats non-2xx as a reason to retry or
// abandon the leg.

// ValidationError reports a missing or unusable required field.
type ValidationError struct {
	Field string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s is required", e.Field)
}

// ConfigurationError reports missing provider credentials or caller ID.
type ConfigurationError struct {
	Missing string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("missing configuration: %s", e.Missing)
}

// ProviderError wraps a failed call-control API request.
type ProviderError struct {
	Op  string
	Err error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider %s failed: %v", e.Op, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}
