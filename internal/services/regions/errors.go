package regions

import (
	"errors"
)

// Common errors
var (
	ErrRegionNotFound = errors.New("region not found")
	ErrInvalidInput   = errors.New("invalid input")
	ErrRegionExists   = errors.New("region already exists")
)
