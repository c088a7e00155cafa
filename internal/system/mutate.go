package system

import (
	"math/rand"
	"time"

	"github.com/l1jgo/entitycore/internal/config"
	coresys "github.com/l1jgo/entitycore/internal/core/system"
	"github.com/l1jgo/entitycore/internal/entity"
	"github.com/l1jgo/entitycore/internal/world"
)

// MutateSystem changes attributes of random live entities and marks some of
// them for destruction. Every attribute change fans out synchronously to the
// filters tracking that entity. Phase 3 (Update).
type MutateSystem struct {
	world     *world.World
	cfg       config.SimConfig
	rng       *rand.Rand
	buf       []*entity.Entity
	mutations int
}

func NewMutateSystem(w *world.World, cfg config.SimConfig, rng *rand.Rand) *MutateSystem {
	return &MutateSystem{world: w, cfg: cfg, rng: rng}
}

func (s *MutateSystem) Phase() coresys.Phase { return coresys.PhaseUpdate }

func (s *MutateSystem) Update(_ time.Duration) {
	alive := s.world.Entities()
	if alive.Count() == 0 {
		return
	}
	if cap(s.buf) < alive.Count() {
		s.buf = make([]*entity.Entity, alive.Count(), alive.Count()*2)
	}
	s.buf = s.buf[:alive.Count()]
	alive.CopyTo(s.buf)

	for i := 0; i < s.cfg.MutationsPerTick; i++ {
		e := s.buf[s.rng.Intn(len(s.buf))]
		if s.rng.Float64() < s.cfg.DestroyChance {
			s.world.MarkForDestruction(e)
			continue
		}
		s.mutate(e)
		s.mutations++
	}
}

// Mutations returns the cumulative number of attribute changes attempted.
func (s *MutateSystem) Mutations() int { return s.mutations }

func (s *MutateSystem) mutate(e *entity.Entity) {
	tags, keys := len(s.cfg.Tags), len(s.cfg.ValueKeys)
	pick := s.rng.Intn(tags + keys)
	if pick < tags {
		tag := s.cfg.Tags[pick]
		if e.HasTag(tag) {
			e.RemoveTag(tag)
		} else {
			e.AddTag(tag)
		}
		return
	}
	key := s.cfg.ValueKeys[pick-tags]
	if e.HasValue(key) && s.rng.Intn(4) == 0 {
		e.Unset(key)
		return
	}
	e.Set(key, s.rng.Intn(s.cfg.ValueRange))
}
