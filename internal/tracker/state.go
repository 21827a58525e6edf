// Package tracker is the client side of the pipeline: it polls the
// snapshot API, merges partial snapshots into a stable vehicle set and
// derives motion (heading, speed, trail, route direction) from the
// per-vehicle position history.
package tracker

import (
	"sort"
	"time"

	"busao-tracker/internal/vehicle"
)

// historyCap bounds the per-vehicle trail.
const historyCap = 60

type Sample struct {
	Lat      float64
	Lon      float64
	At       time.Time
	SpeedKmh float64
}

// Tracked is one vehicle's last known record plus its bounded sample
// history.
type Tracked struct {
	Record  vehicle.Record
	history []Sample
}

// History returns a copy of the recorded samples, oldest first.
func (t *Tracked) History() []Sample {
	out := make([]Sample, len(t.history))
	copy(out, t.history)
	return out
}

func (t *Tracked) observe(r vehicle.Record) {
	t.Record = r
	if n := len(t.history); n > 0 && !r.Timestamp.After(t.history[n-1].At) {
		// stale or repeated report; the trail only moves forward
		return
	}
	t.history = append(t.history, Sample{
		Lat:      r.Latitude,
		Lon:      r.Longitude,
		At:       r.Timestamp,
		SpeedKmh: r.Speed,
	})
	if len(t.history) > historyCap {
		t.history = t.history[len(t.history)-historyCap:]
	}
}

// State is the running identity-keyed vehicle set owned by one polling
// session. It is deliberately a plain value with no locking; the
// session serializes access.
type State struct {
	vehicles map[string]*Tracked
}

func NewState() *State {
	return &State{vehicles: make(map[string]*Tracked)}
}

// Merge folds one poll response into the running set. A non-empty
// response overwrites matching identities and adds new ones; vehicles
// absent from it keep their last known state. An empty response leaves
// the state completely untouched, so a transient upstream gap never
// blanks the visible map.
func (s *State) Merge(recs []vehicle.Record) {
	if len(recs) == 0 {
		return
	}
	for _, r := range recs {
		t, ok := s.vehicles[r.ID]
		if !ok {
			t = &Tracked{}
			s.vehicles[r.ID] = t
		}
		t.observe(r)
	}
}

func (s *State) Get(id string) (*Tracked, bool) {
	t, ok := s.vehicles[id]
	return t, ok
}

func (s *State) Len() int { return len(s.vehicles) }

// Vehicles returns the tracked set ordered by identity.
func (s *State) Vehicles() []*Tracked {
	ids := make([]string, 0, len(s.vehicles))
	for id := range s.vehicles {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out := make([]*Tracked, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.vehicles[id])
	}
	return out
}
