package system_test

import (
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/l1jgo/entitycore/internal/config"
	"github.com/l1jgo/entitycore/internal/core/ecs"
	"github.com/l1jgo/entitycore/internal/core/event"
	coresys "github.com/l1jgo/entitycore/internal/core/system"
	"github.com/l1jgo/entitycore/internal/entity"
	"github.com/l1jgo/entitycore/internal/system"
	"github.com/l1jgo/entitycore/internal/world"
)

const simFilters = `
- name: red
  match: {tag: red}
- name: red_or_blue
  match:
    any: [{tag: red}, {tag: blue}]
- name: low_hp
  source: red_or_blue
  match:
    all:
      - {value: hp}
      - not: {value: hp, equals: 9}
- name: threats
  match:
    script: is_threat
    reads: ["tag:hostile", "value:level"]
`

const simScript = `
function is_threat(e)
  local level = e:value("level")
  return e:has_tag("hostile") and level ~= nil and level >= 3
end
`

type sim struct {
	world   *world.World
	state   *world.State
	bus     *event.Bus
	runner  *coresys.Runner
	cleanup *system.CleanupSystem
	audit   *system.AuditSystem
	mutate  *system.MutateSystem
	defs    world.Definitions
}

func writeDefs(t *testing.T, filters string) world.Definitions {
	t.Helper()
	dir := t.TempDir()
	defs := world.Definitions{
		FiltersPath: filepath.Join(dir, "filters.yaml"),
		ScriptsDir:  filepath.Join(dir, "scripts"),
	}
	require.NoError(t, os.WriteFile(defs.FiltersPath, []byte(filters), 0o644))
	require.NoError(t, os.MkdirAll(defs.ScriptsDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(defs.ScriptsDir, "threat.lua"), []byte(simScript), 0o644))
	return defs
}

func newSim(t *testing.T, cfg config.SimConfig) *sim {
	t.Helper()
	w := ecs.NewWorld[*entity.Entity](7, nil)
	w.Registry().SetChecked(true)
	bus := event.NewBus()
	state := world.NewState(w, bus, nil)
	t.Cleanup(state.Close)

	defs := writeDefs(t, simFilters)
	require.NoError(t, state.Reload(defs))

	rng := rand.New(rand.NewSource(cfg.Seed))
	s := &sim{
		world:   w,
		state:   state,
		bus:     bus,
		runner:  coresys.NewRunner(),
		cleanup: system.NewCleanupSystem(w),
		audit:   system.NewAuditSystem(state, cfg.AuditEvery, nil),
		mutate:  system.NewMutateSystem(w, cfg, rng),
		defs:    defs,
	}
	s.runner.Register(s.audit)
	s.runner.Register(s.cleanup)
	s.runner.Register(s.mutate)
	s.runner.Register(system.NewSpawnSystem(w, cfg, rng))
	s.runner.Register(system.NewDispatchSystem(bus))
	return s
}

func simConfig() config.SimConfig {
	cfg := config.Default().Sim
	cfg.Seed = 3
	cfg.MaxEntities = 300
	cfg.AuditEvery = 5
	cfg.DestroyChance = 0.1
	return cfg
}

func TestSimulationKeepsFiltersExact(t *testing.T) {
	cfg := simConfig()
	s := newSim(t, cfg)

	for i := 0; i < 120; i++ {
		s.runner.Tick(0)
	}

	runs, failures := s.audit.Runs()
	assert.Equal(t, 24, runs)
	assert.Equal(t, 0, failures)
	require.NoError(t, s.state.Audit())

	spawned, destroyed := s.cleanup.Totals()
	assert.Greater(t, spawned, 0)
	assert.Greater(t, destroyed, 0)
	assert.Equal(t, spawned-destroyed, s.world.Entities().Count())
	assert.Equal(t, s.world.Entities().Count(), s.world.Registry().Count())
	assert.LessOrEqual(t, s.world.Entities().Count(), cfg.MaxEntities)
	assert.Greater(t, s.world.Registry().Resizes(), 0, "registry grew past its initial prime")
	assert.Greater(t, s.mutate.Mutations(), 0)

	for e := range s.world.Entities().All() {
		got, err := s.world.Get(e.ID())
		require.NoError(t, err)
		assert.Same(t, e, got)
	}
}

func TestSpawnSystemRespectsMaxEntities(t *testing.T) {
	cfg := simConfig()
	cfg.MaxEntities = 10
	cfg.SpawnPerTick = 4
	w := ecs.NewWorld[*entity.Entity](0, nil)
	spawn := system.NewSpawnSystem(w, cfg, rand.New(rand.NewSource(1)))

	for i := 0; i < 5; i++ {
		spawn.Update(0)
		w.Flush()
	}
	assert.Equal(t, 10, w.Entities().Count())
}

type fakeChanges struct {
	batches [][]string
}

func (f *fakeChanges) Drain() []string {
	if len(f.batches) == 0 {
		return nil
	}
	b := f.batches[0]
	f.batches = f.batches[1:]
	return b
}

func TestReloadSystem(t *testing.T) {
	s := newSim(t, simConfig())
	changes := &fakeChanges{}
	reload := system.NewReloadSystem(s.state, s.defs, changes, nil)
	assert.Equal(t, coresys.PhaseInput, reload.Phase())

	reload.Update(0)
	assert.Equal(t, 0, reload.Reloads(), "no changes, no reload")

	before, _ := s.state.Filter("red")
	changes.batches = append(changes.batches, []string{s.defs.FiltersPath})
	reload.Update(0)
	assert.Equal(t, 1, reload.Reloads())
	assert.True(t, before.Disposed())

	// A broken definition file leaves the running filters alone.
	require.NoError(t, os.WriteFile(s.defs.FiltersPath, []byte("- name: world\n  match: {tag: red}"), 0o644))
	current, _ := s.state.Filter("red")
	changes.batches = append(changes.batches, []string{s.defs.FiltersPath})
	reload.Update(0)
	assert.Equal(t, 1, reload.Reloads())
	assert.False(t, current.Disposed())
	assert.Equal(t, 4, s.state.FilterCount())
}

func TestDispatchSystemDeliversPreviousTick(t *testing.T) {
	bus := event.NewBus()
	got := 0
	event.Subscribe(bus, func(world.FiltersReloaded) { got++ })
	d := system.NewDispatchSystem(bus)

	event.Emit(bus, world.FiltersReloaded{Filters: 1})
	assert.Equal(t, 1, bus.Pending())
	d.Update(0)
	assert.Equal(t, 1, got)
	assert.Equal(t, 1, d.Delivered())

	d.Update(0)
	assert.Equal(t, 1, got, "events are delivered once")
}
