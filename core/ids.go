package core

import (
	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// NewID generates a new unique identifier for sessions and invocations.
//
// Returns a string representation of a new UUID.
func NewID() string { return uuid.NewString() }

// NewRunID generates a lexicographically sortable identifier for orchestrator
// runs and cycles. ULIDs keep run listings in creation order in the durable
// side-store and in log output.
func NewRunID() string { return ulid.Make().String() }
