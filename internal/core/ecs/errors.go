package ecs

import "github.com/rotisserie/eris"

var (
	// ErrNotFound is returned by lookups on an id that is not currently registered.
	ErrNotFound = eris.New("entity not found")

	// ErrContractViolation marks caller misuse detected in checked mode, such as
	// registering an entity that already holds a live id.
	ErrContractViolation = eris.New("registry contract violation")

	// ErrReentrantMutation is raised when a store is structurally modified from
	// inside one of its own event dispatches.
	ErrReentrantMutation = eris.New("store mutated during dispatch")
)
