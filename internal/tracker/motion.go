package tracker

import (
	"math"

	"busao-tracker/internal/geo"
)

// maxPlausibleSpeedKmh filters GPS glitches out of the speed average.
const maxPlausibleSpeedKmh = 150

// maxSegmentM treats any single hop of 1km or more between consecutive
// samples as a GPS jump rather than real travel.
const maxSegmentM = 1000

// Heading resolves the vehicle's direction of travel with one priority
// order: the feed-supplied heading wins, otherwise it is derived as the
// bearing between the two most recent distinct positions. ok is false
// when neither is available.
func (t *Tracked) Heading() (float64, bool) {
	if t.Record.Heading != nil {
		return *t.Record.Heading, true
	}
	n := len(t.history)
	if n < 2 {
		return 0, false
	}
	last := t.history[n-1]
	// walk back past stationary samples; two identical points have no bearing
	for i := n - 2; i >= 0; i-- {
		prev := t.history[i]
		if prev.Lat != last.Lat || prev.Lon != last.Lon {
			return geo.BearingDeg(prev.Lat, prev.Lon, last.Lat, last.Lon), true
		}
	}
	return 0, false
}

// AverageSpeedKmh is the mean of the recorded speeds, ignoring
// non-numeric, negative and implausibly high values. Zero when no
// valid sample exists.
func (t *Tracked) AverageSpeedKmh() float64 {
	sum := 0.0
	n := 0
	for _, s := range t.history {
		if math.IsNaN(s.SpeedKmh) || s.SpeedKmh < 0 || s.SpeedKmh >= maxPlausibleSpeedKmh {
			continue
		}
		sum += s.SpeedKmh
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// DistanceTraveledM sums the geodesic distances between consecutive
// samples, skipping jump segments.
func (t *Tracked) DistanceTraveledM() float64 {
	total := 0.0
	for i := 1; i < len(t.history); i++ {
		a, b := t.history[i-1], t.history[i]
		d := geo.DistanceMeters(a.Lat, a.Lon, b.Lat, b.Lon)
		if d >= maxSegmentM {
			continue
		}
		total += d
	}
	return total
}
