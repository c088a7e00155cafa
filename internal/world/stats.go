package world

import (
	"sort"

	"github.com/l1jgo/entitycore/internal/core/event"
)

// FilterStats counts view membership changes per filter.
type FilterStats struct {
	Name    string
	Entered int
	Left    int
}

// Stats tallies MembershipChanged events delivered by the bus.
type Stats struct {
	byFilter map[string]*FilterStats
	reloads  int
}

func NewStats(bus *event.Bus) *Stats {
	s := &Stats{byFilter: make(map[string]*FilterStats)}
	event.Subscribe(bus, s.onMembership)
	event.Subscribe(bus, func(FiltersReloaded) { s.reloads++ })
	return s
}

func (s *Stats) onMembership(ev MembershipChanged) {
	fs, ok := s.byFilter[ev.Filter]
	if !ok {
		fs = &FilterStats{Name: ev.Filter}
		s.byFilter[ev.Filter] = fs
	}
	if ev.Entered {
		fs.Entered++
	} else {
		fs.Left++
	}
}

// Reloads returns how many filter sets were applied.
func (s *Stats) Reloads() int { return s.reloads }

// Snapshot returns the per-filter counters sorted by filter name.
func (s *Stats) Snapshot() []FilterStats {
	out := make([]FilterStats, 0, len(s.byFilter))
	for _, fs := range s.byFilter {
		out = append(out, *fs)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
