package store

import "fmt"

var (
	// ErrNotFound is returned when a result for the given scene / agent-type
	// pair does not exist in the underlying store.
	ErrNotFound = fmt.Errorf("agent result not found")
)
