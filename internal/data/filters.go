package data

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/l1jgo/entitycore/internal/filter"
	"github.com/l1jgo/entitycore/internal/trigger"
)

// WorldSource is the reserved source name for the world entity store.
const WorldSource = "world"

// FilterDef declares one named filter.
type FilterDef struct {
	Name   string    `yaml:"name"`
	Source string    `yaml:"source"` // "world" (default) or an earlier filter's name
	Match  MatchExpr `yaml:"match"`
}

// MatchExpr is one node of a predicate tree. Exactly one of Tag, Value,
// All, Any, Not or Script must be set; Equals refines Value and Reads
// declares what a Script looks at.
type MatchExpr struct {
	Tag    string      `yaml:"tag,omitempty"`
	Value  string      `yaml:"value,omitempty"`
	Equals any         `yaml:"equals,omitempty"`
	All    []MatchExpr `yaml:"all,omitempty"`
	Any    []MatchExpr `yaml:"any,omitempty"`
	Not    *MatchExpr  `yaml:"not,omitempty"`
	Script string      `yaml:"script,omitempty"`
	Reads  []string    `yaml:"reads,omitempty"`
}

// ScriptResolver turns a script function name into a predicate.
type ScriptResolver interface {
	Predicate(fn string, reads []trigger.Dependency) (filter.Predicate, error)
}

// FilterTable holds filter definitions in dependency order: every filter's
// source is either the world or a filter defined before it.
type FilterTable struct {
	defs   []FilterDef
	byName map[string]int
}

// LoadFilterTable loads filters.yaml.
func LoadFilterTable(path string) (*FilterTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read filter list: %w", err)
	}
	t, err := ParseFilterTable(raw)
	if err != nil {
		return nil, fmt.Errorf("filter list %s: %w", path, err)
	}
	return t, nil
}

// ParseFilterTable decodes and validates a YAML list of filter definitions.
func ParseFilterTable(raw []byte) (*FilterTable, error) {
	var defs []FilterDef
	if err := yaml.Unmarshal(raw, &defs); err != nil {
		return nil, fmt.Errorf("parse filter list: %w", err)
	}
	t := &FilterTable{
		defs:   defs,
		byName: make(map[string]int, len(defs)),
	}
	for i := range t.defs {
		d := &t.defs[i]
		if d.Name == "" {
			return nil, fmt.Errorf("filter #%d: missing name", i)
		}
		if d.Name == WorldSource {
			return nil, fmt.Errorf("filter #%d: name %q is reserved", i, WorldSource)
		}
		if _, dup := t.byName[d.Name]; dup {
			return nil, fmt.Errorf("filter %s: defined twice", d.Name)
		}
		if d.Source == "" {
			d.Source = WorldSource
		}
		if d.Source != WorldSource {
			if _, ok := t.byName[d.Source]; !ok {
				return nil, fmt.Errorf("filter %s: source %q must be defined earlier", d.Name, d.Source)
			}
		}
		if err := d.Match.validate(); err != nil {
			return nil, fmt.Errorf("filter %s: %w", d.Name, err)
		}
		t.byName[d.Name] = i
	}
	return t, nil
}

// Defs returns the definitions in dependency order.
func (t *FilterTable) Defs() []FilterDef { return t.defs }

// Get returns the definition named name, or nil.
func (t *FilterTable) Get(name string) *FilterDef {
	if i, ok := t.byName[name]; ok {
		return &t.defs[i]
	}
	return nil
}

// Count returns the total number of definitions loaded.
func (t *FilterTable) Count() int {
	return len(t.defs)
}

// UsesScripts reports whether any definition needs a script resolver.
func (t *FilterTable) UsesScripts() bool {
	for i := range t.defs {
		if t.defs[i].Match.usesScript() {
			return true
		}
	}
	return false
}

// Compile builds the predicate for d. scripts may be nil when no definition
// uses a script.
func (d *FilterDef) Compile(scripts ScriptResolver) (filter.Predicate, error) {
	p, err := d.Match.compile(scripts)
	if err != nil {
		return filter.Predicate{}, fmt.Errorf("filter %s: %w", d.Name, err)
	}
	p.Name = d.Name
	return p, nil
}

func (m *MatchExpr) forms() int {
	n := 0
	for _, set := range []bool{m.Tag != "", m.Value != "", m.All != nil, m.Any != nil, m.Not != nil, m.Script != ""} {
		if set {
			n++
		}
	}
	return n
}

func (m *MatchExpr) validate() error {
	switch m.forms() {
	case 0:
		return fmt.Errorf("empty match expression")
	case 1:
	default:
		return fmt.Errorf("match expression mixes several forms")
	}
	if m.Equals != nil && m.Value == "" {
		return fmt.Errorf("equals without value")
	}
	if len(m.Reads) > 0 && m.Script == "" {
		return fmt.Errorf("reads is only valid on script")
	}
	for _, r := range m.Reads {
		if _, err := trigger.ParseDependency(r); err != nil {
			return err
		}
	}
	for i := range m.All {
		if err := m.All[i].validate(); err != nil {
			return err
		}
	}
	for i := range m.Any {
		if err := m.Any[i].validate(); err != nil {
			return err
		}
	}
	if m.Not != nil {
		return m.Not.validate()
	}
	return nil
}

func (m *MatchExpr) usesScript() bool {
	if m.Script != "" {
		return true
	}
	for i := range m.All {
		if m.All[i].usesScript() {
			return true
		}
	}
	for i := range m.Any {
		if m.Any[i].usesScript() {
			return true
		}
	}
	return m.Not != nil && m.Not.usesScript()
}

func (m *MatchExpr) compile(scripts ScriptResolver) (filter.Predicate, error) {
	switch {
	case m.Tag != "":
		return filter.HasTag(m.Tag), nil
	case m.Value != "" && m.Equals != nil:
		return filter.ValueEquals(m.Value, m.Equals), nil
	case m.Value != "":
		return filter.HasValue(m.Value), nil
	case m.All != nil:
		preds, err := compileAll(m.All, scripts)
		if err != nil {
			return filter.Predicate{}, err
		}
		return filter.And(preds...), nil
	case m.Any != nil:
		preds, err := compileAll(m.Any, scripts)
		if err != nil {
			return filter.Predicate{}, err
		}
		return filter.Or(preds...), nil
	case m.Not != nil:
		p, err := m.Not.compile(scripts)
		if err != nil {
			return filter.Predicate{}, err
		}
		return filter.Not(p), nil
	case m.Script != "":
		if scripts == nil {
			return filter.Predicate{}, fmt.Errorf("script %s: no script engine", m.Script)
		}
		reads := make([]trigger.Dependency, 0, len(m.Reads))
		for _, r := range m.Reads {
			d, err := trigger.ParseDependency(r)
			if err != nil {
				return filter.Predicate{}, err
			}
			reads = append(reads, d)
		}
		return scripts.Predicate(m.Script, reads)
	default:
		return filter.Predicate{}, fmt.Errorf("empty match expression")
	}
}

func compileAll(exprs []MatchExpr, scripts ScriptResolver) ([]filter.Predicate, error) {
	preds := make([]filter.Predicate, len(exprs))
	for i := range exprs {
		p, err := exprs[i].compile(scripts)
		if err != nil {
			return nil, err
		}
		preds[i] = p
	}
	return preds, nil
}
