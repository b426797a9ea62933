// Package common defines sentinel errors shared by the repository layer.
// Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// ErrNotFound is returned when a lookup or a targeted write matched no row.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists is returned when an insert hits a UNIQUE constraint.
	ErrAlreadyExists = errors.New("already exists")
)
