// Package guard holds the constructor guard embedded by commands and queries.
package guard

import "errors"

// ErrDefaultConstructorGuard is returned by Validate when no specific error is supplied.
var ErrDefaultConstructorGuard = errors.New("object must be created via its constructor")

// ConstructorGuard distinguishes values built by their constructor from zero values.
// Embed it in a struct, set it with NewConstructorGuard inside the constructor and
// call Validate before using the value:
//
//	var ErrRetryJobCommandIsNotConstructed = errors.New("RetryJobCommand must be created via NewRetryJobCommand")
//
//	type RetryJobCommand struct {
//	    jobID int64
//	    guard guard.ConstructorGuard
//	}
//
//	func (c RetryJobCommand) Validate() error {
//	    return c.guard.Validate(ErrRetryJobCommandIsNotConstructed)
//	}
type ConstructorGuard struct {
	isConstructed bool
}

// NewConstructorGuard marks the enclosing value as constructed.
func NewConstructorGuard() ConstructorGuard {
	return ConstructorGuard{isConstructed: true}
}

// Validate returns validationError (or ErrDefaultConstructorGuard when it is nil)
// if the guard is a zero value.
func (g ConstructorGuard) Validate(validationError error) error {
	if validationError == nil {
		validationError = ErrDefaultConstructorGuard
	}
	if !g.isConstructed {
		return validationError
	}
	return nil
}
