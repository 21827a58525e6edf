package tracker

import (
	"context"
	"log"
	"strings"
	"sync"
	"time"

	"busao-tracker/internal/vehicle"
)

const pollTimeout = 10 * time.Second

// Session is one continuous poll/merge loop for a (class, line
// selection) pair. Changing the selection resets the running state and
// abandons in-flight polls for the old selection: every poll carries
// the selection key it was issued for, and its result is dropped if the
// key is no longer current by the time it lands.
type Session struct {
	client   *Client
	class    vehicle.Class
	interval time.Duration

	mu     sync.Mutex
	selKey string
	linhas []string
	state  *State
	shapes map[string][]vehicle.Polyline

	trigger chan struct{}
}

func NewSession(client *Client, class vehicle.Class, interval time.Duration) *Session {
	if interval <= 0 {
		interval = 3 * time.Second
	}
	return &Session{
		client:   client,
		class:    class,
		interval: interval,
		state:    NewState(),
		trigger:  make(chan struct{}, 1),
	}
}

// SetLines switches the line selection. The running vehicle set is
// cleared (it belonged to the old selection) and a poll fires
// immediately instead of waiting out the interval.
func (s *Session) SetLines(linhas []string) {
	key := selectionKey(linhas)
	s.mu.Lock()
	if key == s.selKey {
		s.mu.Unlock()
		return
	}
	s.selKey = key
	s.linhas = append([]string(nil), linhas...)
	s.state = NewState()
	s.shapes = nil
	s.mu.Unlock()

	select {
	case s.trigger <- struct{}{}:
	default:
	}
}

func selectionKey(linhas []string) string { return strings.Join(linhas, ",") }

// Run polls until ctx is cancelled. Poll failures are swallowed for
// that tick; the running state stays as it was and the next tick
// retries.
func (s *Session) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.trigger:
		case <-ticker.C:
		}
		s.pollOnce(ctx)
	}
}

func (s *Session) pollOnce(ctx context.Context) {
	s.mu.Lock()
	key := s.selKey
	linhas := append([]string(nil), s.linhas...)
	needShapes := s.shapes == nil
	s.mu.Unlock()
	if len(linhas) == 0 {
		return
	}

	cctx, cancel := context.WithTimeout(ctx, pollTimeout)
	defer cancel()

	if needShapes {
		shapes, err := s.client.RouteShapes(cctx, linhas)
		if err != nil {
			// classification degrades gracefully without shapes
			log.Printf("route shapes for %q: %v", key, err)
		} else {
			s.mu.Lock()
			if s.selKey == key {
				s.shapes = shapes
			}
			s.mu.Unlock()
		}
	}

	recs, err := s.client.Snapshot(cctx, s.class, linhas)
	if err != nil {
		log.Printf("poll %s %q: %v", s.class, key, err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.selKey != key {
		// selection changed while this poll was in flight
		return
	}
	s.state.Merge(recs)
}

// View is one vehicle with its derived motion, ready for rendering.
type View struct {
	vehicle.Record
	HeadingDeg  float64
	HasHeading  bool
	AvgSpeedKmh float64
	DistanceM   float64
	Direction   Direction
}

// Vehicles snapshots the merged set with derived heading, averaged
// speed, traveled distance and route-direction classification.
func (s *Session) Vehicles() []View {
	s.mu.Lock()
	defer s.mu.Unlock()
	tracked := s.state.Vehicles()
	out := make([]View, 0, len(tracked))
	for _, t := range tracked {
		v := View{Record: t.Record, Direction: DirectionUnknown}
		v.HeadingDeg, v.HasHeading = t.Heading()
		v.AvgSpeedKmh = t.AverageSpeedKmh()
		v.DistanceM = t.DistanceTraveledM()
		if shapes, ok := s.shapes[t.Record.Linha]; ok {
			v.Direction = ClassifyDirection(t, shapes)
		}
		out = append(out, v)
	}
	return out
}
