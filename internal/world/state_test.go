package world_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"

	"github.com/l1jgo/entitycore/internal/core/ecs"
	"github.com/l1jgo/entitycore/internal/core/event"
	"github.com/l1jgo/entitycore/internal/data"
	"github.com/l1jgo/entitycore/internal/entity"
	"github.com/l1jgo/entitycore/internal/filter"
	"github.com/l1jgo/entitycore/internal/trigger"
	"github.com/l1jgo/entitycore/internal/world"
)

const baseFilters = `
- name: red
  match: {tag: red}
- name: wounded_red
  source: red
  match: {value: hp}
`

const scriptedFilters = `
- name: hostile
  match:
    script: is_hostile
    reads: ["tag:hostile"]
`

func newState(t *testing.T) (*world.State, *event.Bus) {
	t.Helper()
	w := ecs.NewWorld[*entity.Entity](7, nil)
	bus := event.NewBus()
	s := world.NewState(w, bus, nil)
	t.Cleanup(s.Close)
	return s, bus
}

func mustTable(t *testing.T, raw string) *data.FilterTable {
	t.Helper()
	table, err := data.ParseFilterTable([]byte(raw))
	require.NoError(t, err)
	return table
}

func writeDefs(t *testing.T, filters, script string) world.Definitions {
	t.Helper()
	dir := t.TempDir()
	defs := world.Definitions{
		FiltersPath: filepath.Join(dir, "filters.yaml"),
		ScriptsDir:  filepath.Join(dir, "scripts"),
	}
	require.NoError(t, os.WriteFile(defs.FiltersPath, []byte(filters), 0o644))
	require.NoError(t, os.MkdirAll(defs.ScriptsDir, 0o755))
	if script != "" {
		require.NoError(t, os.WriteFile(filepath.Join(defs.ScriptsDir, "p.lua"), []byte(script), 0o644))
	}
	return defs
}

func TestApplyBuildsChainedFilters(t *testing.T) {
	s, _ := newState(t)
	orc := entity.New("orc", "red")
	s.World().Spawn(orc)

	require.NoError(t, s.Apply(mustTable(t, baseFilters), nil))
	assert.Equal(t, 2, s.FilterCount())

	red, ok := s.Filter("red")
	require.True(t, ok)
	wounded, ok := s.Filter("wounded_red")
	require.True(t, ok)
	assert.Same(t, red, wounded.Source())
	assert.Equal(t, 1, red.Count(), "existing entities are picked up")

	orc.Set("hp", 2)
	assert.True(t, wounded.Contains(orc))
	orc.RemoveTag("red")
	assert.False(t, wounded.Contains(orc))
	require.NoError(t, s.Audit())
}

func TestApplyFailureKeepsCurrentFilters(t *testing.T) {
	s, _ := newState(t)
	orc := entity.New("orc", "red")
	s.World().Spawn(orc)
	require.NoError(t, s.Apply(mustTable(t, baseFilters), nil))
	before, _ := s.Filter("red")

	err := s.Apply(mustTable(t, scriptedFilters), nil)
	require.Error(t, err)

	after, ok := s.Filter("red")
	require.True(t, ok)
	assert.Same(t, before, after)
	assert.False(t, before.Disposed())
	assert.Equal(t, 2, s.FilterCount())
	_, ok = s.Filter("hostile")
	assert.False(t, ok)
}

func TestApplyReplacesAndDisposesPrevious(t *testing.T) {
	s, _ := newState(t)
	orc := entity.New("orc", "red")
	s.World().Spawn(orc)
	require.NoError(t, s.Apply(mustTable(t, baseFilters), nil))
	old, _ := s.Filter("red")

	require.NoError(t, s.Apply(mustTable(t, "- name: blue\n  match: {tag: blue}"), nil))
	assert.True(t, old.Disposed())
	assert.Equal(t, 0, old.Count())
	assert.Equal(t, 1, s.FilterCount())

	// Only the new filter still listens to the entity.
	assert.Equal(t, 2, orc.Listeners(), "one tag trigger, added and removed")
}

func TestMembershipChangesReachTheBusNextTick(t *testing.T) {
	s, bus := newState(t)
	stats := world.NewStats(bus)
	var seen []world.MembershipChanged
	event.Subscribe(bus, func(ev world.MembershipChanged) { seen = append(seen, ev) })

	require.NoError(t, s.Apply(mustTable(t, baseFilters), nil))
	orc := entity.New("orc")
	s.World().Spawn(orc)
	orc.AddTag("red")
	orc.RemoveTag("red")
	assert.Empty(t, seen, "nothing is delivered before the buffers swap")

	bus.SwapBuffers()
	bus.DispatchAll()
	require.Len(t, seen, 2)
	assert.Equal(t, world.MembershipChanged{Filter: "red", ID: orc.ID(), Entity: "orc", Entered: true}, seen[0])
	assert.False(t, seen[1].Entered)

	assert.Equal(t, 1, stats.Reloads())
	assert.Equal(t, []world.FilterStats{{Name: "red", Entered: 1, Left: 1}}, stats.Snapshot())
}

func TestReloadWithScripts(t *testing.T) {
	s, _ := newState(t)
	defs := writeDefs(t, scriptedFilters, `function is_hostile(e) return e:has_tag("hostile") end`)
	require.NoError(t, s.Reload(defs))

	hostile, ok := s.Filter("hostile")
	require.True(t, ok)
	orc := entity.New("orc")
	s.World().Spawn(orc)
	orc.AddTag("hostile")
	assert.True(t, hostile.Contains(orc))
	require.NoError(t, s.Audit())
}

func TestReloadFailureKeepsScriptsAlive(t *testing.T) {
	s, _ := newState(t)
	good := writeDefs(t, scriptedFilters, `function is_hostile(e) return e:has_tag("hostile") end`)
	require.NoError(t, s.Reload(good))

	bad := writeDefs(t, scriptedFilters, `function something_else(e) return true end`)
	require.Error(t, s.Reload(bad))

	// The surviving filter still evaluates through the first engine.
	orc := entity.New("orc", "hostile")
	s.World().Spawn(orc)
	hostile, _ := s.Filter("hostile")
	assert.True(t, hostile.Contains(orc))
}

func TestReloadRequiresScriptsDirForScripts(t *testing.T) {
	s, _ := newState(t)
	defs := writeDefs(t, scriptedFilters, "")
	defs.ScriptsDir = ""
	err := s.Reload(defs)
	require.Error(t, err)
	assert.Equal(t, 0, s.FilterCount())
}

// blindScripts hands out predicates that read tags without declaring them.
type blindScripts struct{}

func (blindScripts) Predicate(fn string, _ []trigger.Dependency) (filter.Predicate, error) {
	return filter.Predicate{
		Name:  fn,
		Match: func(e *entity.Entity) bool { return e.HasTag(fn) },
	}, nil
}

func TestAuditCollectsStaleFilters(t *testing.T) {
	s, _ := newState(t)
	table := mustTable(t, `
- name: red
  match: {tag: red}
- name: blind_a
  match: {script: hostile}
- name: blind_b
  match: {script: hostile}
`)
	require.NoError(t, s.Apply(table, blindScripts{}))
	assert.NoError(t, s.Audit())

	orc := entity.New("orc")
	s.World().Spawn(orc)
	orc.AddTag("hostile")

	err := s.Audit()
	require.Error(t, err)
	assert.True(t, errors.Is(err, filter.ErrStale))
	assert.Len(t, multierr.Errors(err), 2)

	s.Close()
	assert.Equal(t, 0, s.FilterCount())
	assert.NoError(t, s.Audit())
}
