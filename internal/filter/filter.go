// Package filter maintains live, incrementally updated subsets of an entity
// collection.
//
// A Filter observes its source's Added/Removed events. Every entity that
// enters the source is tracked: the filter attaches the change triggers
// derived from the predicate's declared reads, then evaluates the predicate.
// Trigger firings re-evaluate only the affected entity, so no mutation ever
// causes a rescan of the source. The materialized view is exposed through the
// same ecs.View contract as the source, which lets filters be chained.
package filter

import (
	"iter"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/l1jgo/entitycore/internal/core/ecs"
	"github.com/l1jgo/entitycore/internal/core/event"
	"github.com/l1jgo/entitycore/internal/entity"
	"github.com/l1jgo/entitycore/internal/trigger"
)

// Source is the collection a filter reads from: the world store or another filter.
type Source = ecs.View[*entity.Entity]

type op uint8

const (
	opEnter op = iota
	opLeave
	opEval
	opDispose
)

type pending struct {
	op op
	e  *entity.Entity
}

// Filter keeps view == { e in source : predicate(e) } after every event it
// has fully processed.
//
// Events that reach the filter while it is processing another one (for
// example a downstream listener changing a tag in response to Added) are
// queued and drained in arrival order before control returns to whoever
// raised the first event.
type Filter struct {
	name     string
	source   Source
	pred     Predicate
	triggers trigger.Set

	tracked map[*entity.Entity]trigger.Binding
	view    *ecs.Store[*entity.Entity]

	srcAdded   event.Handle
	srcRemoved event.Handle

	queue    []pending
	busy     bool
	disposed bool

	log *zap.Logger
}

var _ Source = (*Filter)(nil)

// New builds a filter over source and immediately tracks every entity the
// source already holds.
func New(source Source, pred Predicate, log *zap.Logger) (*Filter, error) {
	if source == nil {
		return nil, eris.Wrap(ErrInvalidArgument, "nil source")
	}
	if pred.Match == nil {
		return nil, eris.Wrapf(ErrInvalidArgument, "predicate %q has no match function", pred.Name)
	}
	if log == nil {
		log = zap.NewNop()
	}

	f := &Filter{
		name:     pred.Name,
		source:   source,
		pred:     pred,
		triggers: trigger.Build(pred.Reads...),
		tracked:  make(map[*entity.Entity]trigger.Binding, source.Count()),
		view:     ecs.NewStore[*entity.Entity](source.Count()),
		queue:    make([]pending, 0, 8),
		log:      log.With(zap.String("filter", pred.Name)),
	}
	f.srcAdded = source.Added().Connect(f.enter)
	f.srcRemoved = source.Removed().Connect(f.leave)

	for e := range source.All() {
		f.dispatch(opEnter, e)
	}

	f.log.Debug("filter created",
		zap.Int("tracked", len(f.tracked)),
		zap.Int("matching", f.view.Count()),
		zap.Stringers("reads", f.triggers.Dependencies()),
	)
	return f, nil
}

func (f *Filter) Name() string { return f.name }

// Source returns the collection the filter observes.
func (f *Filter) Source() Source { return f.source }

// Dependencies lists the attribute categories the filter reacts to.
func (f *Filter) Dependencies() []trigger.Dependency { return f.triggers.Dependencies() }

// Tracked returns how many source entities currently hold trigger bindings.
func (f *Filter) Tracked() int { return len(f.tracked) }

func (f *Filter) Disposed() bool { return f.disposed }

func (f *Filter) Count() int                      { return f.view.Count() }
func (f *Filter) Contains(e *entity.Entity) bool  { return f.view.Contains(e) }
func (f *Filter) CopyTo(dst []*entity.Entity) int { return f.view.CopyTo(dst) }
func (f *Filter) All() iter.Seq[*entity.Entity]   { return f.view.All() }

func (f *Filter) Added() event.Source[*entity.Entity]   { return f.view.Added() }
func (f *Filter) Removed() event.Source[*entity.Entity] { return f.view.Removed() }
func (f *Filter) StateChanged() event.Source[struct{}]  { return f.view.StateChanged() }

// Dispose detaches the filter from its source and from every tracked entity,
// then clears the view. Removed fires for each member that was in the view,
// followed by one StateChanged. Disposing twice is a no-op.
func (f *Filter) Dispose() {
	f.dispatch(opDispose, nil)
}

// Audit rescans the source and reports an error wrapping ErrStale if the view
// or the tracking table disagrees with the predicate. It is O(n) and meant
// for tests and periodic checks, not for the hot path.
func (f *Filter) Audit() error {
	if f.disposed {
		if n := f.view.Count(); n != 0 {
			return eris.Wrapf(ErrStale, "filter %s: disposed but holds %d entities", f.name, n)
		}
		return nil
	}
	want := 0
	for e := range f.source.All() {
		if _, ok := f.tracked[e]; !ok {
			return eris.Wrapf(ErrStale, "filter %s: entity %s (id %d) not tracked", f.name, e, e.ID())
		}
		match := f.pred.Match(e)
		if match {
			want++
		}
		if member := f.view.Contains(e); member != match {
			return eris.Wrapf(ErrStale, "filter %s: entity %s (id %d) match=%t member=%t",
				f.name, e, e.ID(), match, member)
		}
	}
	if want != f.view.Count() {
		return eris.Wrapf(ErrStale, "filter %s: view holds %d entities, %d expected", f.name, f.view.Count(), want)
	}
	if len(f.tracked) != f.source.Count() {
		return eris.Wrapf(ErrStale, "filter %s: tracking %d entities, source holds %d",
			f.name, len(f.tracked), f.source.Count())
	}
	return nil
}

func (f *Filter) enter(e *entity.Entity)      { f.dispatch(opEnter, e) }
func (f *Filter) leave(e *entity.Entity)      { f.dispatch(opLeave, e) }
func (f *Filter) reevaluate(e *entity.Entity) { f.dispatch(opEval, e) }

func (f *Filter) dispatch(o op, e *entity.Entity) {
	f.queue = append(f.queue, pending{op: o, e: e})
	if f.busy {
		return
	}
	f.busy = true
	for i := 0; i < len(f.queue); i++ {
		p := f.queue[i]
		f.queue[i] = pending{}
		f.apply(p)
	}
	f.queue = f.queue[:0]
	f.busy = false
}

func (f *Filter) apply(p pending) {
	switch p.op {
	case opEnter:
		if f.disposed {
			return
		}
		if _, ok := f.tracked[p.e]; ok {
			return
		}
		f.tracked[p.e] = f.triggers.Subscribe(p.e, f.reevaluate)
		if f.pred.Match(p.e) {
			f.view.Add(p.e)
		}
	case opLeave:
		b, ok := f.tracked[p.e]
		if !ok {
			return
		}
		b.Unsubscribe()
		delete(f.tracked, p.e)
		f.view.Remove(p.e)
	case opEval:
		if _, ok := f.tracked[p.e]; !ok {
			return
		}
		match := f.pred.Match(p.e)
		switch member := f.view.Contains(p.e); {
		case match && !member:
			f.view.Add(p.e)
		case !match && member:
			f.view.Remove(p.e)
		}
	case opDispose:
		f.teardown()
	}
}

func (f *Filter) teardown() {
	if f.disposed {
		return
	}
	f.disposed = true
	f.source.Added().Disconnect(f.srcAdded)
	f.source.Removed().Disconnect(f.srcRemoved)
	for e, b := range f.tracked {
		b.Unsubscribe()
		delete(f.tracked, e)
	}
	n := f.view.Clear()
	f.log.Debug("filter disposed", zap.Int("released", n))
}
