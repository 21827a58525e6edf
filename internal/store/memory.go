package store

import (
	"context"
	"sort"
	"strings"
	"sync"

	"busao-tracker/internal/normalize"
	"busao-tracker/internal/vehicle"
)

// Memory is an in-process Store used by tests and single-node setups
// that can live with losing the snapshot on restart.
type Memory struct {
	mu        sync.RWMutex
	snapshots map[vehicle.Class][]vehicle.Record
	lines     []vehicle.Line
	shapes    map[string][]vehicle.Polyline
}

func NewMemory() *Memory {
	return &Memory{
		snapshots: make(map[vehicle.Class][]vehicle.Record),
		shapes:    make(map[string][]vehicle.Polyline),
	}
}

func (m *Memory) ReplaceSnapshot(_ context.Context, class vehicle.Class, recs []vehicle.Record) error {
	cp := make([]vehicle.Record, len(recs))
	copy(cp, recs)
	m.mu.Lock()
	m.snapshots[class] = cp
	m.mu.Unlock()
	return nil
}

func (m *Memory) Snapshot(_ context.Context, class vehicle.Class, linhas []string) ([]vehicle.Record, error) {
	if len(linhas) == 0 {
		return nil, nil
	}
	want := make(map[string]bool, len(linhas))
	for _, l := range linhas {
		want[strings.TrimSpace(l)] = true
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []vehicle.Record
	for _, r := range m.snapshots[class] {
		if want[r.Linha] {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *Memory) SearchLines(_ context.Context, q string, modo vehicle.Class, limit int) ([]vehicle.Line, error) {
	q = normalize.ForSearch(strings.TrimSpace(q))
	if q == "" {
		return nil, nil
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []vehicle.Line
	for _, l := range m.lines {
		if modo != "" && l.Modo != modo {
			continue
		}
		if strings.Contains(normalize.ForSearch(l.Numero), q) || strings.Contains(normalize.ForSearch(l.Nome), q) {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Numero < out[j].Numero })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *Memory) RouteShapes(_ context.Context, linhas []string) (map[string][]vehicle.Polyline, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string][]vehicle.Polyline)
	for _, l := range linhas {
		l = strings.TrimSpace(l)
		if shapes, ok := m.shapes[l]; ok {
			out[l] = shapes
		}
	}
	return out, nil
}

// SeedLines loads line reference data, normally owned by the GTFS
// import tooling.
func (m *Memory) SeedLines(lines []vehicle.Line) {
	m.mu.Lock()
	m.lines = append(m.lines, lines...)
	m.mu.Unlock()
}

// SeedShapes loads route-shape reference data for a line.
func (m *Memory) SeedShapes(linha string, shapes []vehicle.Polyline) {
	m.mu.Lock()
	m.shapes[linha] = shapes
	m.mu.Unlock()
}

func (m *Memory) Ping(context.Context) error { return nil }
func (m *Memory) Close() error               { return nil }
