package config

import "fmt"

// ConfigurationError reports a missing, malformed or out-of-range environment
// variable. It is always fatal to the operation that requested configuration;
// callers decide whether to abort startup or degrade.
type ConfigurationError struct {
	// Variable is the environment variable name, e.g. "OPENAI_API_KEY".
	Variable string

	// Value is the offending raw value, empty when the variable was not set.
	Value string

	// Reason describes why the value was rejected.
	Reason string
}

func (e *ConfigurationError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("configuration error: %s: %s", e.Variable, e.Reason)
	}
	return fmt.Sprintf("configuration error: %s=%q: %s", e.Variable, e.Value, e.Reason)
}
