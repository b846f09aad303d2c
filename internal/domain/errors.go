package domain

import "errors"

var (
	// ErrNotFound: a referenced order, product or session does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict: a guarded conditional update matched no row, e.g. moving a
	// product to an already occupied product id.
	ErrConflict = errors.New("conflict")
)
