package errors

import "fmt"

// Error types for the application. Execution outcomes (timeout, spawn
// failure) are reported through result structs, not errors, and carry no
// sentinel.
var (
	ErrPolicyLoad     = fmt.Errorf("POLICY_LOAD")
	ErrPolicyInvalid  = fmt.Errorf("POLICY_INVALID")
	ErrExecValidation = fmt.Errorf("EXEC_VALIDATION")
	ErrAudit          = fmt.Errorf("AUDIT")
)

// PolicyError wraps errors raised while loading or validating the
// security policy. Policy errors are fatal at startup: the process never
// serves requests on a partially-valid policy.
type PolicyError struct {
	Path  string
	Field string
	Err   error
}

func (e *PolicyError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("policy %s: field %q: %v", e.Path, e.Field, e.Err)
	}
	return fmt.Sprintf("policy %s: %v", e.Path, e.Err)
}

func (e *PolicyError) Unwrap() error {
	return e.Err
}

// ValidationError wraps validation errors
type ValidationError struct {
	Field string
	Value interface{}
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for field %s (value: %v): %v", e.Field, e.Value, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}
