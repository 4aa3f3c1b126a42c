// internal/matching/geometry.go
// Route geometry for the waypoint-intersection heuristic. True geometric
// tests throughout: ray-casting point-in-polygon and orientation-based
// segment crossing, never bounding-box approximations.

package matching

import "math"

const earthRadiusKm = 6371

// HaversineKm returns the geodesic distance between two points in kilometers
func HaversineKm(a, b Point) float64 {
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLng := (b.Lng - a.Lng) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(a.Lat*math.Pi/180)*math.Cos(b.Lat*math.Pi/180)*
			math.Sin(dLng/2)*math.Sin(dLng/2)

	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return earthRadiusKm * c
}

// RoutesIntersect reports whether two stored routes geometrically overlap:
// either a waypoint of one lies inside the polygon formed by the other, or
// any pair of route segments crosses.
func RoutesIntersect(a, b []Point) bool {
	if len(a) < 2 || len(b) < 2 {
		return false
	}

	for _, p := range b {
		if PointInPolygon(p, a) {
			return true
		}
	}
	for _, p := range a {
		if PointInPolygon(p, b) {
			return true
		}
	}

	for i := 0; i < len(a)-1; i++ {
		for j := 0; j < len(b)-1; j++ {
			if segmentsIntersect(a[i], a[i+1], b[j], b[j+1]) {
				return true
			}
		}
	}

	return false
}

// PointInPolygon tests p against the closed ring formed by the waypoints
// using the ray-casting rule. Rings with fewer than three vertices contain
// nothing.
func PointInPolygon(p Point, ring []Point) bool {
	if len(ring) < 3 {
		return false
	}

	inside := false
	j := len(ring) - 1
	for i := 0; i < len(ring); i++ {
		vi, vj := ring[i], ring[j]
		if (vi.Lat > p.Lat) != (vj.Lat > p.Lat) &&
			p.Lng < (vj.Lng-vi.Lng)*(p.Lat-vi.Lat)/(vj.Lat-vi.Lat)+vi.Lng {
			inside = !inside
		}
		j = i
	}
	return inside
}

// segmentsIntersect reports whether segments p1p2 and p3p4 cross, including
// collinear overlap.
func segmentsIntersect(p1, p2, p3, p4 Point) bool {
	d1 := orientation(p3, p4, p1)
	d2 := orientation(p3, p4, p2)
	d3 := orientation(p1, p2, p3)
	d4 := orientation(p1, p2, p4)

	if ((d1 > 0 && d2 < 0) || (d1 < 0 && d2 > 0)) &&
		((d3 > 0 && d4 < 0) || (d3 < 0 && d4 > 0)) {
		return true
	}

	// Collinear cases: an endpoint lies on the other segment
	if d1 == 0 && onSegment(p3, p4, p1) {
		return true
	}
	if d2 == 0 && onSegment(p3, p4, p2) {
		return true
	}
	if d3 == 0 && onSegment(p1, p2, p3) {
		return true
	}
	if d4 == 0 && onSegment(p1, p2, p4) {
		return true
	}

	return false
}

// orientation returns the signed cross product of (b-a) x (c-a)
func orientation(a, b, c Point) float64 {
	return (b.Lng-a.Lng)*(c.Lat-a.Lat) - (b.Lat-a.Lat)*(c.Lng-a.Lng)
}

// onSegment assumes c is collinear with segment ab and checks containment
func onSegment(a, b, c Point) bool {
	return math.Min(a.Lng, b.Lng) <= c.Lng && c.Lng <= math.Max(a.Lng, b.Lng) &&
		math.Min(a.Lat, b.Lat) <= c.Lat && c.Lat <= math.Max(a.Lat, b.Lat)
}
