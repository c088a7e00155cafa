package scripting

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/l1jgo/entitycore/internal/entity"
	"github.com/l1jgo/entitycore/internal/filter"
	"github.com/l1jgo/entitycore/internal/trigger"
)

const entityTypeName = "entity"

// Engine wraps a single gopher-lua VM whose global functions serve as filter
// predicates. Single-goroutine access only (tick loop). Reloading builds a new
// Engine; filters holding predicates from the old one must be rebuilt.
type Engine struct {
	vm    *lua.LState
	mt    *lua.LTable
	files []string
	log   *zap.Logger
}

// NewEngine creates a Lua engine and loads every .lua file in scriptsDir.
// A missing directory yields an engine with no scripts.
func NewEngine(scriptsDir string, log *zap.Logger) (*Engine, error) {
	if log == nil {
		log = zap.NewNop()
	}
	vm := lua.NewState(lua.Options{
		SkipOpenLibs: false,
	})

	// Set API version global
	vm.SetGlobal("API_VERSION", lua.LNumber(1))

	e := &Engine{vm: vm, log: log}
	e.mt = e.registerEntityType()

	if scriptsDir != "" {
		if err := e.loadDir(scriptsDir); err != nil {
			vm.Close()
			return nil, fmt.Errorf("load scripts: %w", err)
		}
	}
	return e, nil
}

// LoadString runs a chunk of Lua source, typically to define predicates in tests.
func (e *Engine) LoadString(name, src string) error {
	if err := e.vm.DoString(src); err != nil {
		return fmt.Errorf("load %s: %w", name, err)
	}
	return nil
}

// Files returns the script files loaded from disk.
func (e *Engine) Files() []string { return e.files }

// Has reports whether a global Lua function named fn exists.
func (e *Engine) Has(fn string) bool {
	_, ok := e.vm.GetGlobal(fn).(*lua.LFunction)
	return ok
}

func (e *Engine) Close() {
	e.vm.Close()
}

// Predicate wraps the global Lua function fn as a filter predicate reading
// the declared attributes. The function receives the entity and must return
// a boolean; a runtime error counts as "no match" and is logged.
func (e *Engine) Predicate(fn string, reads []trigger.Dependency) (filter.Predicate, error) {
	lf, ok := e.vm.GetGlobal(fn).(*lua.LFunction)
	if !ok {
		return filter.Predicate{}, fmt.Errorf("lua function %s not found", fn)
	}
	return filter.Predicate{
		Name:  "script(" + fn + ")",
		Reads: reads,
		Match: func(ent *entity.Entity) bool {
			return e.call(fn, lf, ent)
		},
	}, nil
}

func (e *Engine) call(name string, fn *lua.LFunction, ent *entity.Entity) bool {
	ud := e.vm.NewUserData()
	ud.Value = ent
	e.vm.SetMetatable(ud, e.mt)

	if err := e.vm.CallByParam(lua.P{
		Fn:      fn,
		NRet:    1,
		Protect: true,
	}, ud); err != nil {
		e.log.Error("lua predicate error", zap.String("fn", name), zap.Error(err))
		return false
	}

	result := e.vm.Get(-1)
	e.vm.Pop(1)
	return lua.LVAsBool(result)
}

// registerEntityType exposes id(), name(), has_tag(t) and value(k) to scripts.
func (e *Engine) registerEntityType() *lua.LTable {
	mt := e.vm.NewTypeMetatable(entityTypeName)
	e.vm.SetField(mt, "__index", e.vm.SetFuncs(e.vm.NewTable(), map[string]lua.LGFunction{
		"id": func(L *lua.LState) int {
			L.Push(lua.LNumber(checkEntity(L).ID()))
			return 1
		},
		"name": func(L *lua.LState) int {
			L.Push(lua.LString(checkEntity(L).Name()))
			return 1
		},
		"has_tag": func(L *lua.LState) int {
			ent := checkEntity(L)
			L.Push(lua.LBool(ent.HasTag(L.CheckString(2))))
			return 1
		},
		"value": func(L *lua.LState) int {
			ent := checkEntity(L)
			v, ok := ent.Value(L.CheckString(2))
			if !ok {
				L.Push(lua.LNil)
				return 1
			}
			L.Push(toLua(v))
			return 1
		},
	}))
	return mt
}

func checkEntity(L *lua.LState) *entity.Entity {
	ud := L.CheckUserData(1)
	if ent, ok := ud.Value.(*entity.Entity); ok {
		return ent
	}
	L.ArgError(1, "entity expected")
	return nil
}

func toLua(v any) lua.LValue {
	switch x := v.(type) {
	case nil:
		return lua.LNil
	case bool:
		return lua.LBool(x)
	case string:
		return lua.LString(x)
	case int:
		return lua.LNumber(x)
	case int32:
		return lua.LNumber(x)
	case int64:
		return lua.LNumber(x)
	case float32:
		return lua.LNumber(x)
	case float64:
		return lua.LNumber(x)
	default:
		return lua.LString(fmt.Sprint(x))
	}
}

// loadDir loads all .lua files in a directory, in name order.
func (e *Engine) loadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // skip missing dirs
		}
		return err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".lua" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := e.vm.DoFile(path); err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
		e.files = append(e.files, path)
		e.log.Debug("loaded lua script", zap.String("file", path))
	}
	return nil
}
