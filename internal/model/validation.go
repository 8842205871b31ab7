package model

import "context"

// ValidationResult is what a validator reports. Failures are values.
type ValidationResult struct {
	Result bool   `json:"result"`
	Error  string `json:"error,omitempty"`
}

// Valid is the result of a passing validation.
func Valid() ValidationResult {
	return ValidationResult{Result: true}
}

// Invalid is the result of a failing validation.
func Invalid(msg string) ValidationResult {
	return ValidationResult{Result: false, Error: msg}
}

// Validator checks serialized data against the schema named after its scope.
type Validator interface {
	Validate(ctx context.Context, schema string, data any) ValidationResult
}

// ValidatorFunc adapts a function to a Validator.
type ValidatorFunc func(ctx context.Context, schema string, data any) ValidationResult

func (f ValidatorFunc) Validate(ctx context.Context, schema string, data any) ValidationResult {
	return f(ctx, schema, data)
}
