// Package geo provides the great-circle and polyline math used to
// derive vehicle motion from discrete position samples.
package geo

import (
	"math"

	"busao-tracker/internal/vehicle"
)

const earthRadiusM = 6371000.0

func toRad(d float64) float64 { return d * math.Pi / 180 }

// DistanceMeters is the haversine distance between two points.
func DistanceMeters(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRad(lat2 - lat1)
	dLon := toRad(lon2 - lon1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusM * c
}

// BearingDeg is the initial great-circle bearing from (lat1,lon1) to
// (lat2,lon2) in degrees, 0 = north, measured clockwise.
func BearingDeg(lat1, lon1, lat2, lon2 float64) float64 {
	y := math.Sin(toRad(lon2-lon1)) * math.Cos(toRad(lat2))
	x := math.Cos(toRad(lat1))*math.Sin(toRad(lat2)) - math.Sin(toRad(lat1))*math.Cos(toRad(lat2))*math.Cos(toRad(lon2-lon1))
	brng := math.Atan2(y, x) * 180 / math.Pi
	if brng < 0 {
		brng += 360
	}
	return brng
}

// AngularDiffDeg is the smallest absolute difference between two
// bearings, in [0, 180].
func AngularDiffDeg(a, b float64) float64 {
	d := math.Mod(math.Abs(a-b), 360)
	if d > 180 {
		d = 360 - d
	}
	return d
}

// SegmentFix describes the polyline segment closest to a query point.
type SegmentFix struct {
	Index      int     // index of the segment's first point
	DistanceM  float64 // perpendicular distance from the query point
	BearingDeg float64 // bearing of the segment itself
}

// NearestSegment projects (lat, lon) onto each segment of the polyline
// and returns the closest one. It needs at least 2 points; ok is false
// otherwise. Projection uses an equirectangular approximation around
// the query point, which is plenty at city scale.
func NearestSegment(line vehicle.Polyline, lat, lon float64) (SegmentFix, bool) {
	n := len(line)
	if n < 2 {
		return SegmentFix{}, false
	}
	cosLat := math.Cos(toRad(lat))
	toXY := func(p vehicle.Point) (x, y float64) {
		y = toRad(p.Lat-lat) * earthRadiusM
		x = toRad(p.Lon-lon) * earthRadiusM * cosLat
		return
	}
	best := SegmentFix{Index: -1, DistanceM: math.MaxFloat64}
	x0, y0 := toXY(line[0])
	for i := 1; i < n; i++ {
		x1, y1 := toXY(line[i])
		dx := x1 - x0
		dy := y1 - y0
		segLen2 := dx*dx + dy*dy
		t := 0.0
		if segLen2 > 0 {
			// projection of the origin (the query point) onto the segment
			t = -(x0*dx + y0*dy) / segLen2
			if t < 0 {
				t = 0
			} else if t > 1 {
				t = 1
			}
		}
		px := x0 + t*dx
		py := y0 + t*dy
		if d := math.Sqrt(px*px + py*py); d < best.DistanceM {
			best.Index = i - 1
			best.DistanceM = d
			best.BearingDeg = BearingDeg(line[i-1].Lat, line[i-1].Lon, line[i].Lat, line[i].Lon)
		}
		x0, y0 = x1, y1
	}
	return best, true
}
