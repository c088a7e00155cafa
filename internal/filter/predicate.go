package filter

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/l1jgo/entitycore/internal/entity"
	"github.com/l1jgo/entitycore/internal/trigger"
)

// Predicate decides filter membership. Reads declares every attribute Match
// looks at; the filter subscribes to exactly those, so an attribute missing
// from Reads is never reacted to.
type Predicate struct {
	Name  string
	Reads []trigger.Dependency
	Match func(*entity.Entity) bool
}

// Always matches every entity and reads nothing.
func Always() Predicate {
	return Predicate{
		Name:  "always",
		Match: func(*entity.Entity) bool { return true },
	}
}

// HasTag matches entities carrying tag.
func HasTag(tag string) Predicate {
	return Predicate{
		Name:  "tag(" + tag + ")",
		Reads: []trigger.Dependency{trigger.Tag(tag)},
		Match: func(e *entity.Entity) bool { return e.HasTag(tag) },
	}
}

// HasValue matches entities holding any value under key.
func HasValue(key string) Predicate {
	return Predicate{
		Name:  "value(" + key + ")",
		Reads: []trigger.Dependency{trigger.Value(key)},
		Match: func(e *entity.Entity) bool { return e.HasValue(key) },
	}
}

// ValueEquals matches entities whose value under key equals want. Numbers
// compare by value regardless of their Go type.
func ValueEquals(key string, want any) Predicate {
	return Predicate{
		Name:  fmt.Sprintf("value(%s)==%v", key, want),
		Reads: []trigger.Dependency{trigger.Value(key)},
		Match: func(e *entity.Entity) bool {
			v, ok := e.Value(key)
			return ok && SameValue(v, want)
		},
	}
}

// ValueFunc matches entities for which fn accepts the value under key. fn is
// called with ok == false when the key is absent.
func ValueFunc(key string, fn func(v any, ok bool) bool) Predicate {
	return Predicate{
		Name:  "value(" + key + ")?",
		Reads: []trigger.Dependency{trigger.Value(key)},
		Match: func(e *entity.Entity) bool {
			v, ok := e.Value(key)
			return fn(v, ok)
		},
	}
}

// And matches when every predicate matches. An empty And matches everything.
func And(preds ...Predicate) Predicate {
	return Predicate{
		Name:  join("and", preds),
		Reads: reads(preds),
		Match: func(e *entity.Entity) bool {
			for _, p := range preds {
				if !p.Match(e) {
					return false
				}
			}
			return true
		},
	}
}

// Or matches when any predicate matches. An empty Or matches nothing.
func Or(preds ...Predicate) Predicate {
	return Predicate{
		Name:  join("or", preds),
		Reads: reads(preds),
		Match: func(e *entity.Entity) bool {
			for _, p := range preds {
				if p.Match(e) {
					return true
				}
			}
			return false
		},
	}
}

func Not(p Predicate) Predicate {
	return Predicate{
		Name:  "not(" + p.Name + ")",
		Reads: p.Reads,
		Match: func(e *entity.Entity) bool { return !p.Match(e) },
	}
}

// SameValue compares two attribute values, treating all numeric types as
// float64 so that values decoded from YAML or Lua match Go-side ints.
func SameValue(a, b any) bool {
	if fa, ok := toFloat(a); ok {
		fb, ok := toFloat(b)
		return ok && fa == fb
	}
	return reflect.DeepEqual(a, b)
}

func toFloat(v any) (float64, bool) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	default:
		return 0, false
	}
}

func reads(preds []Predicate) []trigger.Dependency {
	var out []trigger.Dependency
	for _, p := range preds {
		out = append(out, p.Reads...)
	}
	return out
}

func join(op string, preds []Predicate) string {
	names := make([]string, len(preds))
	for i, p := range preds {
		names[i] = p.Name
	}
	return op + "(" + strings.Join(names, ",") + ")"
}
