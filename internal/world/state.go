package world

import (
	"fmt"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/l1jgo/entitycore/internal/core/ecs"
	"github.com/l1jgo/entitycore/internal/core/event"
	"github.com/l1jgo/entitycore/internal/data"
	"github.com/l1jgo/entitycore/internal/entity"
	"github.com/l1jgo/entitycore/internal/filter"
	"github.com/l1jgo/entitycore/internal/scripting"
)

// World is the concrete world used by the simulation.
type World = ecs.World[*entity.Entity]

// State holds one simulation: the world and the named filters built over it.
// Accessed only from the tick loop goroutine, so no locks.
type State struct {
	world   *World
	bus     *event.Bus
	filters map[string]*filter.Filter
	order   []*filter.Filter
	scripts *scripting.Engine
	log     *zap.Logger
}

func NewState(w *World, bus *event.Bus, log *zap.Logger) *State {
	if log == nil {
		log = zap.NewNop()
	}
	return &State{
		world:   w,
		bus:     bus,
		filters: make(map[string]*filter.Filter),
		log:     log,
	}
}

func (s *State) World() *World    { return s.world }
func (s *State) Bus() *event.Bus  { return s.bus }
func (s *State) FilterCount() int { return len(s.order) }

// Filter returns the filter named name.
func (s *State) Filter(name string) (*filter.Filter, bool) {
	f, ok := s.filters[name]
	return f, ok
}

// Filters returns the live filters in definition order.
func (s *State) Filters() []*filter.Filter {
	return s.order
}

// Apply builds every filter in table and swaps them in for the current set.
// If any definition fails to compile or build, the new filters are disposed
// and the current set stays in place.
func (s *State) Apply(table *data.FilterTable, scripts data.ScriptResolver) error {
	built := make(map[string]*filter.Filter, table.Count())
	order := make([]*filter.Filter, 0, table.Count())

	for _, def := range table.Defs() {
		pred, err := def.Compile(scripts)
		if err != nil {
			disposeAll(order)
			return err
		}
		var src filter.Source = s.world.Entities()
		if def.Source != data.WorldSource {
			src = built[def.Source]
		}
		f, err := filter.New(src, pred, s.log)
		if err != nil {
			disposeAll(order)
			return fmt.Errorf("filter %s: %w", def.Name, err)
		}
		built[def.Name] = f
		order = append(order, f)
	}

	disposeAll(s.order)
	s.filters = built
	s.order = order
	if s.bus != nil {
		for _, f := range order {
			s.publish(f)
		}
		event.Emit(s.bus, FiltersReloaded{Filters: len(order)})
	}
	s.log.Info("filters applied", zap.Int("count", len(order)))
	return nil
}

// Audit checks every filter against a full rescan of its source.
func (s *State) Audit() error {
	var err error
	for _, f := range s.order {
		err = multierr.Append(err, f.Audit())
	}
	return err
}

// Close disposes every filter, downstream ones first, and releases the
// script engine.
func (s *State) Close() {
	disposeAll(s.order)
	s.order = nil
	s.filters = make(map[string]*filter.Filter)
	if s.scripts != nil {
		s.scripts.Close()
		s.scripts = nil
	}
}

// publish forwards view membership changes of f to the bus.
func (s *State) publish(f *filter.Filter) {
	name := f.Name()
	f.Added().Connect(func(e *entity.Entity) {
		event.Emit(s.bus, MembershipChanged{Filter: name, ID: e.ID(), Entity: e.Name(), Entered: true})
	})
	f.Removed().Connect(func(e *entity.Entity) {
		event.Emit(s.bus, MembershipChanged{Filter: name, ID: e.ID(), Entity: e.Name(), Entered: false})
	})
}

func disposeAll(fs []*filter.Filter) {
	for i := len(fs) - 1; i >= 0; i-- {
		fs[i].Dispose()
	}
}
