package system

import (
	"time"

	"go.uber.org/zap"

	coresys "github.com/l1jgo/entitycore/internal/core/system"
	"github.com/l1jgo/entitycore/internal/world"
)

// ChangeSource reports files changed since the previous call without blocking.
type ChangeSource interface {
	Drain() []string
}

// ReloadSystem rebuilds the filter set at the start of a tick when filter
// definitions or scripts changed on disk. A failed reload keeps the previous
// filters. Phase 0 (Input).
type ReloadSystem struct {
	state   *world.State
	defs    world.Definitions
	changes ChangeSource
	reloads int
	log     *zap.Logger
}

func NewReloadSystem(state *world.State, defs world.Definitions, changes ChangeSource, log *zap.Logger) *ReloadSystem {
	if log == nil {
		log = zap.NewNop()
	}
	return &ReloadSystem{state: state, defs: defs, changes: changes, log: log}
}

func (s *ReloadSystem) Phase() coresys.Phase { return coresys.PhaseInput }

func (s *ReloadSystem) Update(_ time.Duration) {
	changed := s.changes.Drain()
	if len(changed) == 0 {
		return
	}
	if err := s.state.Reload(s.defs); err != nil {
		s.log.Error("filter reload failed, keeping previous filters",
			zap.Strings("changed", changed), zap.Error(err))
		return
	}
	s.reloads++
	s.log.Info("filters reloaded",
		zap.Strings("changed", changed),
		zap.Int("filters", s.state.FilterCount()))
}

// Reloads returns how many reloads succeeded.
func (s *ReloadSystem) Reloads() int { return s.reloads }
