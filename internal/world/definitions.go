package world

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/l1jgo/entitycore/internal/data"
	"github.com/l1jgo/entitycore/internal/scripting"
)

// Definitions locates the filter definition file and the predicate scripts.
type Definitions struct {
	FiltersPath string
	ScriptsDir  string
}

// Load reads the filter table and, when a scripts directory is configured,
// a fresh script engine. The caller owns the returned engine.
func (d Definitions) Load(log *zap.Logger) (*data.FilterTable, *scripting.Engine, error) {
	table, err := data.LoadFilterTable(d.FiltersPath)
	if err != nil {
		return nil, nil, err
	}
	if d.ScriptsDir == "" {
		if table.UsesScripts() {
			return nil, nil, fmt.Errorf("filter list %s uses scripts but no scripts dir is configured", d.FiltersPath)
		}
		return table, nil, nil
	}
	eng, err := scripting.NewEngine(d.ScriptsDir, log)
	if err != nil {
		return nil, nil, err
	}
	return table, eng, nil
}

// Reload loads defs and applies them. On success the previous script engine
// is closed; on failure the current filters and engine stay in place.
func (s *State) Reload(defs Definitions) error {
	table, eng, err := defs.Load(s.log)
	if err != nil {
		return err
	}
	var resolver data.ScriptResolver
	if eng != nil {
		resolver = eng
	}
	if err := s.Apply(table, resolver); err != nil {
		if eng != nil {
			eng.Close()
		}
		return err
	}
	if s.scripts != nil {
		s.scripts.Close()
	}
	s.scripts = eng
	return nil
}
