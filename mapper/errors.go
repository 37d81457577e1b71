package mapper

import (
	"fmt"
	"reflect"
)

func typeName(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}
	return t.String()
}

// ConfigurationFrozenError is returned when the configuration is mutated after
// it has been sealed by Verify.
type ConfigurationFrozenError struct {
	Operation string
}

// Error returns the error message for ConfigurationFrozenError.
func (e *ConfigurationFrozenError) Error() string {
	return fmt.Sprintf("querymap: %s: configuration is sealed", e.Operation)
}

// ConfigurationInvalidError is returned by Verify for each structural problem
// found in the registered mappings.
type ConfigurationInvalidError struct {
	SourceType reflect.Type
	Message    string
	Cause      error
}

// Error returns the error message for ConfigurationInvalidError.
func (e *ConfigurationInvalidError) Error() string {
	msg := fmt.Sprintf("querymap: invalid mapping for %s: %s", typeName(e.SourceType), e.Message)
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying cause, if any.
func (e *ConfigurationInvalidError) Unwrap() error {
	return e.Cause
}

// NotSealedError is returned when a read or translation is attempted before
// the configuration has been verified.
type NotSealedError struct {
	Operation string
}

// Error returns the error message for NotSealedError.
func (e *NotSealedError) Error() string {
	return fmt.Sprintf("querymap: %s: configuration has not been verified", e.Operation)
}

// UnknownMappingError is returned when no mapping is registered for a source type.
type UnknownMappingError struct {
	SourceType reflect.Type
}

// Error returns the error message for UnknownMappingError.
func (e *UnknownMappingError) Error() string {
	return fmt.Sprintf("querymap: no mapping registered for %s", typeName(e.SourceType))
}

// InvalidFieldNameError is returned by AddField when a field name cannot be
// used in a clause.
type InvalidFieldNameError struct {
	SourceType reflect.Type
	Name       string
	Side       string // "source" or "destination"
}

// Error returns the error message for InvalidFieldNameError.
func (e *InvalidFieldNameError) Error() string {
	return fmt.Sprintf("querymap: invalid %s field name %q in mapping for %s",
		e.Side, e.Name, typeName(e.SourceType))
}

// SchemaBuildError wraps a failure to build the schema description of a type.
type SchemaBuildError struct {
	Type  reflect.Type
	Cause error
}

// Error returns the error message for SchemaBuildError.
func (e *SchemaBuildError) Error() string {
	return fmt.Sprintf("querymap: building schema for %s: %v", typeName(e.Type), e.Cause)
}

// Unwrap returns the underlying cause of the SchemaBuildError.
func (e *SchemaBuildError) Unwrap() error {
	return e.Cause
}

// ClauseError is returned when a clause cannot be tokenized for rewriting.
type ClauseError struct {
	Option string
	Cause  error
}

// Error returns the error message for ClauseError.
func (e *ClauseError) Error() string {
	return fmt.Sprintf("querymap: rewriting %s: %v", e.Option, e.Cause)
}

// Unwrap returns the underlying cause of the ClauseError.
func (e *ClauseError) Unwrap() error {
	return e.Cause
}

// ValidationError is returned by a Validator when a clause exceeds the
// configured limits.
type ValidationError struct {
	Option  string
	Message string
}

// Error returns the error message for ValidationError.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("querymap: %s: %s", e.Option, e.Message)
}
