package utils

import "fmt"

// ConfigurationError reports an invalid hyperparameter or a dimensionality
// mismatch between the supplied weights and the base network.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s: %s", e.Field, e.Reason)
}

// NumericDomainError reports a value outside the domain of an operation:
// log of a non-positive number, a prior variance at or above the ceiling,
// or NaN/Inf in a loss or gradient.
type NumericDomainError struct {
	Op    string
	Value float64
}

func (e *NumericDomainError) Error() string {
	return fmt.Sprintf("numeric domain error in %s (value %g)", e.Op, e.Value)
}

// MissingArtifactError reports an absent required artifact such as the
// pretrained point-estimate checkpoint.
type MissingArtifactError struct {
	Path string
}

func (e *MissingArtifactError) Error() string {
	return fmt.Sprintf("missing artifact: %s", e.Path)
}

func configErr(field, format string, args ...interface{}) error {
	return &ConfigurationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}
