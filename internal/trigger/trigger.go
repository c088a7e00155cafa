// Package trigger binds filter re-evaluation callbacks to the attribute
// change notifications of individual entities.
package trigger

import (
	"github.com/l1jgo/entitycore/internal/core/event"
	"github.com/l1jgo/entitycore/internal/entity"
)

// Binding is the record of one Subscribe. Unsubscribe detaches exactly the
// listeners that Subscribe attached; calling it again does nothing.
type Binding interface {
	Unsubscribe()
}

// Trigger attaches a callback to the notifications of one attribute category.
type Trigger interface {
	Subscribe(e *entity.Entity, fn func(*entity.Entity)) Binding
	Dependency() Dependency
}

// ForTag returns a trigger for tag name, or for every tag when name is "".
func ForTag(name string) Trigger { return tagTrigger{name: name} }

// ForValue returns a trigger for value key, or for every key when key is "".
func ForValue(key string) Trigger { return valueTrigger{key: key} }

type tagTrigger struct {
	name string
}

func (t tagTrigger) Dependency() Dependency { return Dependency{Kind: KindTag, Name: t.name} }

func (t tagTrigger) Subscribe(e *entity.Entity, fn func(*entity.Entity)) Binding {
	h := func(ev entity.TagEvent) {
		if t.name == "" || ev.Tag == t.name {
			fn(ev.Entity)
		}
	}
	return &tagBinding{
		e:       e,
		added:   e.TagAdded().Connect(h),
		removed: e.TagRemoved().Connect(h),
	}
}

type tagBinding struct {
	e              *entity.Entity
	added, removed event.Handle
}

func (b *tagBinding) Unsubscribe() {
	if b.e == nil {
		return
	}
	b.e.TagAdded().Disconnect(b.added)
	b.e.TagRemoved().Disconnect(b.removed)
	b.e = nil
}

type valueTrigger struct {
	key string
}

func (t valueTrigger) Dependency() Dependency { return Dependency{Kind: KindValue, Name: t.key} }

func (t valueTrigger) Subscribe(e *entity.Entity, fn func(*entity.Entity)) Binding {
	h := func(ev entity.ValueEvent) {
		if t.key == "" || ev.Key == t.key {
			fn(ev.Entity)
		}
	}
	return &valueBinding{
		e:       e,
		added:   e.ValueAdded().Connect(h),
		changed: e.ValueChanged().Connect(h),
		removed: e.ValueRemoved().Connect(h),
	}
}

type valueBinding struct {
	e                       *entity.Entity
	added, changed, removed event.Handle
}

func (b *valueBinding) Unsubscribe() {
	if b.e == nil {
		return
	}
	b.e.ValueAdded().Disconnect(b.added)
	b.e.ValueChanged().Disconnect(b.changed)
	b.e.ValueRemoved().Disconnect(b.removed)
	b.e = nil
}
