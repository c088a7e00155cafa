package system

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/l1jgo/entitycore/internal/config"
	coresys "github.com/l1jgo/entitycore/internal/core/system"
	"github.com/l1jgo/entitycore/internal/entity"
	"github.com/l1jgo/entitycore/internal/world"
)

// SpawnSystem queues new entities with random tags and values each tick.
// Phase 2 (Spawn).
type SpawnSystem struct {
	world *world.World
	cfg   config.SimConfig
	rng   *rand.Rand
	seq   int
}

func NewSpawnSystem(w *world.World, cfg config.SimConfig, rng *rand.Rand) *SpawnSystem {
	return &SpawnSystem{world: w, cfg: cfg, rng: rng}
}

func (s *SpawnSystem) Phase() coresys.Phase { return coresys.PhaseSpawn }

func (s *SpawnSystem) Update(_ time.Duration) {
	pending, _ := s.world.Pending()
	room := s.cfg.MaxEntities - s.world.Entities().Count() - pending
	n := min(s.cfg.SpawnPerTick, room)
	for i := 0; i < n; i++ {
		s.world.QueueSpawn(s.newEntity())
	}
}

func (s *SpawnSystem) newEntity() *entity.Entity {
	s.seq++
	e := entity.New(fmt.Sprintf("e%d", s.seq))
	for _, tag := range s.cfg.Tags {
		if s.rng.Intn(2) == 0 {
			e.AddTag(tag)
		}
	}
	for _, key := range s.cfg.ValueKeys {
		if s.rng.Intn(2) == 0 {
			e.Set(key, s.rng.Intn(s.cfg.ValueRange))
		}
	}
	return e
}
