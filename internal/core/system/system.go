package system

import "time"

// Phase defines execution ordering within a single tick.
type Phase int

const (
	PhaseInput    Phase = iota // 0: apply reloaded filter definitions
	PhaseDispatch              // 1: deliver last tick's bus events
	PhaseSpawn                 // 2: queue new entities
	PhaseUpdate                // 3: attribute mutations
	PhaseCleanup               // 4: flush spawn + destroy queues
	PhaseAudit                 // 5: invariant checks on a quiescent world
)

func (p Phase) String() string {
	switch p {
	case PhaseInput:
		return "input"
	case PhaseDispatch:
		return "dispatch"
	case PhaseSpawn:
		return "spawn"
	case PhaseUpdate:
		return "update"
	case PhaseCleanup:
		return "cleanup"
	case PhaseAudit:
		return "audit"
	default:
		return "unknown"
	}
}

// System is the interface every simulation system implements.
type System interface {
	Phase() Phase
	Update(dt time.Duration)
}
