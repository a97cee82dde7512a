// Package errs provides standardized error types for the billing service.
// It implements a consistent pattern for error creation, formatting, and unwrapping
// that is used by the domain model, the application handlers and the HTTP adapter.
//
// The package includes several error types for common error scenarios:
//   - ValueIsRequiredError: For when a required value is missing
//   - ValueIsInvalidError: For when a value breaks a business rule
//   - ValueIsOutOfRangeError: For when a value falls outside a closed interval
//   - ObjectNotFoundError: For when an object cannot be found
//
// Each error type follows a consistent pattern:
//   - A sentinel error variable (e.g., ErrValueIsRequired)
//   - A struct type with fields for error details
//   - Constructor functions with and without cause
//   - Error() method for formatting the error message
//   - Unwrap() method so errors.Is matches the sentinel
//
// The HTTP adapter maps the sentinels to status codes, so handlers never have to
// inspect message text.
package errs
