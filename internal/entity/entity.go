package entity

import (
	"maps"
	"reflect"
	"slices"

	"github.com/l1jgo/entitycore/internal/core/ecs"
	"github.com/l1jgo/entitycore/internal/core/event"
)

// TagEvent is raised when a tag is added to or removed from an entity.
type TagEvent struct {
	Entity *Entity
	Tag    string
}

// ValueEvent is raised when a keyed value is added, changed or removed.
// Previous is only set for changes and removals.
type ValueEvent struct {
	Entity   *Entity
	Key      string
	Value    any
	Previous any
}

// Entity is an attribute-bearing handle: a set of tags plus keyed values.
// Every attribute change is announced on the matching signal, which is what
// filter triggers subscribe to.
type Entity struct {
	id     ecs.ID
	name   string
	tags   map[string]struct{}
	values map[string]any

	tagAdded     event.Signal[TagEvent]
	tagRemoved   event.Signal[TagEvent]
	valueAdded   event.Signal[ValueEvent]
	valueChanged event.Signal[ValueEvent]
	valueRemoved event.Signal[ValueEvent]
}

func New(name string, tags ...string) *Entity {
	e := &Entity{
		name:   name,
		tags:   make(map[string]struct{}, len(tags)),
		values: make(map[string]any),
	}
	for _, t := range tags {
		e.tags[t] = struct{}{}
	}
	return e
}

func (e *Entity) ID() ecs.ID      { return e.id }
func (e *Entity) SetID(id ecs.ID) { e.id = id }
func (e *Entity) Name() string    { return e.name }

func (e *Entity) String() string {
	if e.name != "" {
		return e.name
	}
	return "entity"
}

// AddTag adds tag and reports whether it was new.
func (e *Entity) AddTag(tag string) bool {
	if _, ok := e.tags[tag]; ok {
		return false
	}
	e.tags[tag] = struct{}{}
	e.tagAdded.Emit(TagEvent{Entity: e, Tag: tag})
	return true
}

// RemoveTag removes tag and reports whether it was present.
func (e *Entity) RemoveTag(tag string) bool {
	if _, ok := e.tags[tag]; !ok {
		return false
	}
	delete(e.tags, tag)
	e.tagRemoved.Emit(TagEvent{Entity: e, Tag: tag})
	return true
}

func (e *Entity) HasTag(tag string) bool {
	_, ok := e.tags[tag]
	return ok
}

// Tags returns the entity's tags in sorted order.
func (e *Entity) Tags() []string {
	return slices.Sorted(maps.Keys(e.tags))
}

// Set stores v under key. Storing a value equal to the current one is silent.
func (e *Entity) Set(key string, v any) {
	old, ok := e.values[key]
	if !ok {
		e.values[key] = v
		e.valueAdded.Emit(ValueEvent{Entity: e, Key: key, Value: v})
		return
	}
	if reflect.DeepEqual(old, v) {
		return
	}
	e.values[key] = v
	e.valueChanged.Emit(ValueEvent{Entity: e, Key: key, Value: v, Previous: old})
}

// Unset removes key and reports whether it was present.
func (e *Entity) Unset(key string) bool {
	old, ok := e.values[key]
	if !ok {
		return false
	}
	delete(e.values, key)
	e.valueRemoved.Emit(ValueEvent{Entity: e, Key: key, Previous: old})
	return true
}

func (e *Entity) Value(key string) (any, bool) {
	v, ok := e.values[key]
	return v, ok
}

func (e *Entity) HasValue(key string) bool {
	_, ok := e.values[key]
	return ok
}

// Keys returns the keys of all stored values in sorted order.
func (e *Entity) Keys() []string {
	return slices.Sorted(maps.Keys(e.values))
}

func (e *Entity) TagAdded() event.Source[TagEvent]       { return &e.tagAdded }
func (e *Entity) TagRemoved() event.Source[TagEvent]     { return &e.tagRemoved }
func (e *Entity) ValueAdded() event.Source[ValueEvent]   { return &e.valueAdded }
func (e *Entity) ValueChanged() event.Source[ValueEvent] { return &e.valueChanged }
func (e *Entity) ValueRemoved() event.Source[ValueEvent] { return &e.valueRemoved }

// Listeners returns the total number of connected attribute listeners. A
// fully detached entity reports zero.
func (e *Entity) Listeners() int {
	return e.tagAdded.Len() + e.tagRemoved.Len() +
		e.valueAdded.Len() + e.valueChanged.Len() + e.valueRemoved.Len()
}
