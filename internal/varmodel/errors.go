package varmodel

import "errors"

var (
	// ErrInconsistentMerge is returned when an incoming value cannot be merged
	// with the stored one: a row sequence arriving for a variable that holds a
	// plain scalar.
	ErrInconsistentMerge = errors.New("inconsistent value merge")

	// ErrDuplicateModule is returned by RegisterStrict for a module id that is
	// already known.
	ErrDuplicateModule = errors.New("module already registered")

	// ErrNotModule is returned when registering a variable that is not a module.
	ErrNotModule = errors.New("variable is not a module")
)
