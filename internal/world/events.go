package world

import "github.com/l1jgo/entitycore/internal/core/ecs"

// MembershipChanged is published on the bus whenever an entity enters or
// leaves a filter's view. Observers receive it one tick later.
type MembershipChanged struct {
	Filter  string
	ID      ecs.ID
	Entity  string
	Entered bool
}

// FiltersReloaded is published after a definition reload took effect.
type FiltersReloaded struct {
	Filters int
}
