package system

import (
	"time"

	coresys "github.com/l1jgo/entitycore/internal/core/system"
	"github.com/l1jgo/entitycore/internal/world"
)

// CleanupSystem flushes the deferred spawn and destruction queues at tick end.
// Phase 4 (Cleanup).
type CleanupSystem struct {
	world     *world.World
	spawned   int
	destroyed int
}

func NewCleanupSystem(w *world.World) *CleanupSystem {
	return &CleanupSystem{world: w}
}

func (s *CleanupSystem) Phase() coresys.Phase { return coresys.PhaseCleanup }

func (s *CleanupSystem) Update(_ time.Duration) {
	spawned, destroyed := s.world.Flush()
	s.spawned += spawned
	s.destroyed += destroyed
}

// Totals returns the cumulative number of spawned and destroyed entities.
func (s *CleanupSystem) Totals() (spawned, destroyed int) {
	return s.spawned, s.destroyed
}
