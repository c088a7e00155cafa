package system_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/l1jgo/entitycore/internal/core/system"
)

type probe struct {
	name  string
	phase system.Phase
	log   *[]string
}

func (p probe) Phase() system.Phase    { return p.phase }
func (p probe) Update(_ time.Duration) { *p.log = append(*p.log, p.name) }

func TestRunnerOrdersByPhaseThenRegistration(t *testing.T) {
	var log []string
	r := system.NewRunner()
	r.Register(probe{"audit", system.PhaseAudit, &log})
	r.Register(probe{"cleanup", system.PhaseCleanup, &log})
	r.Register(probe{"update-a", system.PhaseUpdate, &log})
	r.Register(probe{"input", system.PhaseInput, &log})
	r.Register(probe{"update-b", system.PhaseUpdate, &log})
	assert.Equal(t, 5, r.Len())

	r.Tick(time.Millisecond)
	assert.Equal(t, []string{"input", "update-a", "update-b", "cleanup", "audit"}, log)
	assert.Equal(t, uint64(1), r.Ticks())
}

func TestRunnerTickPhase(t *testing.T) {
	var log []string
	r := system.NewRunner()
	r.Register(probe{"spawn", system.PhaseSpawn, &log})
	r.Register(probe{"update", system.PhaseUpdate, &log})

	r.TickPhase(system.PhaseUpdate, 0)
	assert.Equal(t, []string{"update"}, log)
	assert.Equal(t, uint64(0), r.Ticks(), "a single phase is not a tick")
}

func TestPhaseString(t *testing.T) {
	assert.Equal(t, "dispatch", system.PhaseDispatch.String())
	assert.Equal(t, "audit", system.PhaseAudit.String())
	assert.Equal(t, "unknown", system.Phase(42).String())
}
