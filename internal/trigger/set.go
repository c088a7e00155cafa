package trigger

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/l1jgo/entitycore/internal/entity"
)

// Kind is an attribute category a predicate can read.
type Kind uint8

const (
	KindTag Kind = iota + 1
	KindValue
)

func (k Kind) String() string {
	switch k {
	case KindTag:
		return "tag"
	case KindValue:
		return "value"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Dependency declares that a predicate reads one attribute. An empty Name
// means every attribute of that Kind.
type Dependency struct {
	Kind Kind
	Name string
}

func Tag(name string) Dependency  { return Dependency{Kind: KindTag, Name: name} }
func AnyTag() Dependency          { return Dependency{Kind: KindTag} }
func Value(key string) Dependency { return Dependency{Kind: KindValue, Name: key} }
func AnyValue() Dependency        { return Dependency{Kind: KindValue} }

func (d Dependency) String() string {
	if d.Name == "" {
		return d.Kind.String() + ":*"
	}
	return d.Kind.String() + ":" + d.Name
}

// ParseDependency reads the String form: "tag:name", "value:key", or a
// bare kind / "kind:*" for the wildcard.
func ParseDependency(s string) (Dependency, error) {
	kind, name, _ := strings.Cut(strings.TrimSpace(s), ":")
	if name == "*" {
		name = ""
	}
	switch kind {
	case "tag":
		return Tag(name), nil
	case "value":
		return Value(name), nil
	default:
		return Dependency{}, fmt.Errorf("unknown dependency kind %q in %q", kind, s)
	}
}

// Trigger returns the trigger that covers d.
func (d Dependency) Trigger() Trigger {
	if d.Kind == KindValue {
		return ForValue(d.Name)
	}
	return ForTag(d.Name)
}

// Set is the minimal group of triggers covering a list of dependencies. Any
// one of them firing means the entity must be re-evaluated.
type Set struct {
	triggers []Trigger
}

// Build reduces deps to the smallest covering trigger set: duplicates
// collapse and a wildcard dependency absorbs the named ones of its kind.
func Build(deps ...Dependency) Set {
	wild := make(map[Kind]bool, 2)
	for _, d := range deps {
		if d.Name == "" {
			wild[d.Kind] = true
		}
	}
	seen := make(map[Dependency]struct{}, len(deps))
	kept := make([]Dependency, 0, len(deps))
	for _, d := range deps {
		if d.Kind == 0 {
			continue
		}
		if wild[d.Kind] {
			d.Name = ""
		}
		if _, dup := seen[d]; dup {
			continue
		}
		seen[d] = struct{}{}
		kept = append(kept, d)
	}
	slices.SortFunc(kept, func(a, b Dependency) int {
		if c := cmp.Compare(a.Kind, b.Kind); c != 0 {
			return c
		}
		return cmp.Compare(a.Name, b.Name)
	})

	s := Set{triggers: make([]Trigger, len(kept))}
	for i, d := range kept {
		s.triggers[i] = d.Trigger()
	}
	return s
}

func (s Set) Len() int { return len(s.triggers) }

// Dependencies lists what the set reacts to, in a stable order.
func (s Set) Dependencies() []Dependency {
	out := make([]Dependency, len(s.triggers))
	for i, t := range s.triggers {
		out[i] = t.Dependency()
	}
	return out
}

// Subscribe attaches every trigger in the set to e and returns one binding
// that detaches them all.
func (s Set) Subscribe(e *entity.Entity, fn func(*entity.Entity)) Binding {
	b := make(multiBinding, len(s.triggers))
	for i, t := range s.triggers {
		b[i] = t.Subscribe(e, fn)
	}
	return b
}

type multiBinding []Binding

func (m multiBinding) Unsubscribe() {
	for _, b := range m {
		b.Unsubscribe()
	}
}
