package tracker

import (
	"regexp"
	"strings"

	"busao-tracker/internal/geo"
	"busao-tracker/internal/vehicle"
)

// Direction classifies which of a line's two route shapes a vehicle is
// traveling along.
type Direction int

const (
	DirectionUnknown Direction = iota - 1 // indeterminate
	DirectionIda                          // shape 0, outbound
	DirectionVolta                        // shape 1, return
)

func (d Direction) String() string {
	switch d {
	case DirectionIda:
		return "ida"
	case DirectionVolta:
		return "volta"
	}
	return "indeterminada"
}

// ClassifyDirection matches the vehicle against up to two reference
// polylines. With a heading (supplied or derived) the winner is the
// shape whose closest segment's bearing is angularly nearest; without
// one it falls back to plain nearest-shape-by-distance. Shapes with
// fewer than 2 points cannot compete; with no usable shape the result
// is indeterminate.
func ClassifyDirection(t *Tracked, shapes []vehicle.Polyline) Direction {
	lat, lon := t.Record.Latitude, t.Record.Longitude
	heading, hasHeading := t.Heading()

	best := DirectionUnknown
	bestScore := 0.0
	for i := 0; i < len(shapes) && i < 2; i++ {
		fix, ok := geo.NearestSegment(shapes[i], lat, lon)
		if !ok {
			continue
		}
		score := fix.DistanceM
		if hasHeading {
			score = geo.AngularDiffDeg(heading, fix.BearingDeg)
		}
		if best == DirectionUnknown || score < bestScore {
			best = Direction(i)
			bestScore = score
		}
	}
	return best
}

var directionLabelSep = regexp.MustCompile(`\s*[-–/]\s*`)

// DirectionLabels turns a line name like "Pavuna - Passeio" into the
// labels of its two directions of travel.
func DirectionLabels(nome string) (ida, volta string) {
	var parts []string
	for _, p := range directionLabelSep.Split(nome, -1) {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) >= 2 {
		return parts[0] + " → " + parts[1], parts[1] + " → " + parts[0]
	}
	return "Ida", "Volta"
}
