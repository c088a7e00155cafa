package system

import (
	"time"

	"github.com/l1jgo/entitycore/internal/core/event"
	coresys "github.com/l1jgo/entitycore/internal/core/system"
)

// DispatchSystem delivers the events emitted during the previous tick.
// Phase 1 (Dispatch).
type DispatchSystem struct {
	bus       *event.Bus
	delivered int
}

func NewDispatchSystem(bus *event.Bus) *DispatchSystem {
	return &DispatchSystem{bus: bus}
}

func (s *DispatchSystem) Phase() coresys.Phase { return coresys.PhaseDispatch }

func (s *DispatchSystem) Update(_ time.Duration) {
	s.bus.SwapBuffers()
	s.delivered += s.bus.DispatchAll()
}

// Delivered returns the cumulative number of events delivered.
func (s *DispatchSystem) Delivered() int { return s.delivered }
