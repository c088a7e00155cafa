package system

import (
	"time"

	"go.uber.org/zap"

	coresys "github.com/l1jgo/entitycore/internal/core/system"
	"github.com/l1jgo/entitycore/internal/world"
)

// AuditSystem rescans every filter's source every N ticks and logs views
// that drifted from their predicate. Runs after cleanup, when the world is
// quiescent. Phase 5 (Audit).
type AuditSystem struct {
	state    *world.State
	every    int
	counter  int
	runs     int
	failures int
	log      *zap.Logger
}

func NewAuditSystem(state *world.State, every int, log *zap.Logger) *AuditSystem {
	if log == nil {
		log = zap.NewNop()
	}
	return &AuditSystem{state: state, every: every, log: log}
}

func (s *AuditSystem) Phase() coresys.Phase { return coresys.PhaseAudit }

func (s *AuditSystem) Update(_ time.Duration) {
	if s.every <= 0 {
		return
	}
	s.counter++
	if s.counter < s.every {
		return
	}
	s.counter = 0
	s.runs++
	if err := s.state.Audit(); err != nil {
		s.failures++
		s.log.Error("filter audit failed", zap.Error(err))
	}
}

// Runs returns how many audits ran and how many of them failed.
func (s *AuditSystem) Runs() (runs, failures int) {
	return s.runs, s.failures
}
