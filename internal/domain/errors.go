package domain

import "errors"

var (
	// ErrNotFound is returned when a record identifier matches nothing.
	ErrNotFound = errors.New("not found")

	// ErrDuplicate is returned when a write collides with the
	// (trainset_id, dept, valid_to) uniqueness constraint.
	ErrDuplicate = errors.New("duplicate record")
)
