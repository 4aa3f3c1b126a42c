package matching

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHaversineKm(t *testing.T) {
	lisbon := Point{Lat: 38.7223, Lng: -9.1393}
	madrid := Point{Lat: 40.4168, Lng: -3.7038}

	assert.Zero(t, HaversineKm(lisbon, lisbon))
	assert.InDelta(t, 503, HaversineKm(lisbon, madrid), 10)
	assert.InDelta(t, HaversineKm(lisbon, madrid), HaversineKm(madrid, lisbon), 0.001)
}

func TestPointInPolygon(t *testing.T) {
	square := []Point{
		{Lat: 0, Lng: 0},
		{Lat: 0, Lng: 10},
		{Lat: 10, Lng: 10},
		{Lat: 10, Lng: 0},
	}

	assert.True(t, PointInPolygon(Point{Lat: 5, Lng: 5}, square))
	assert.False(t, PointInPolygon(Point{Lat: 15, Lng: 5}, square))
	assert.False(t, PointInPolygon(Point{Lat: -1, Lng: -1}, square))

	// Degenerate rings contain nothing
	assert.False(t, PointInPolygon(Point{Lat: 5, Lng: 5}, square[:2]))
}

func TestSegmentsIntersect(t *testing.T) {
	// Crossing diagonals
	assert.True(t, segmentsIntersect(
		Point{Lat: 0, Lng: 0}, Point{Lat: 10, Lng: 10},
		Point{Lat: 0, Lng: 10}, Point{Lat: 10, Lng: 0},
	))

	// Parallel, never meet
	assert.False(t, segmentsIntersect(
		Point{Lat: 0, Lng: 0}, Point{Lat: 10, Lng: 0},
		Point{Lat: 0, Lng: 1}, Point{Lat: 10, Lng: 1},
	))

	// Collinear with overlap
	assert.True(t, segmentsIntersect(
		Point{Lat: 0, Lng: 0}, Point{Lat: 10, Lng: 0},
		Point{Lat: 5, Lng: 0}, Point{Lat: 15, Lng: 0},
	))

	// Collinear, disjoint
	assert.False(t, segmentsIntersect(
		Point{Lat: 0, Lng: 0}, Point{Lat: 5, Lng: 0},
		Point{Lat: 6, Lng: 0}, Point{Lat: 10, Lng: 0},
	))

	// Touching at an endpoint counts
	assert.True(t, segmentsIntersect(
		Point{Lat: 0, Lng: 0}, Point{Lat: 5, Lng: 5},
		Point{Lat: 5, Lng: 5}, Point{Lat: 10, Lng: 0},
	))
}

func TestRoutesIntersect(t *testing.T) {
	diagonal := []Point{{Lat: 0, Lng: 0}, {Lat: 10, Lng: 10}}
	antiDiagonal := []Point{{Lat: 0, Lng: 10}, {Lat: 10, Lng: 0}}
	farAway := []Point{{Lat: 40, Lng: 40}, {Lat: 50, Lng: 50}}

	assert.True(t, RoutesIntersect(diagonal, antiDiagonal))
	assert.False(t, RoutesIntersect(diagonal, farAway))

	// A waypoint inside the other route's ring counts even without a
	// segment crossing
	ring := []Point{{Lat: 0, Lng: 0}, {Lat: 0, Lng: 10}, {Lat: 10, Lng: 10}, {Lat: 10, Lng: 0}}
	inside := []Point{{Lat: 4, Lng: 4}, {Lat: 6, Lng: 6}}
	assert.True(t, RoutesIntersect(ring, inside))

	// Single-point routes never intersect anything
	assert.False(t, RoutesIntersect([]Point{{Lat: 5, Lng: 5}}, diagonal))
}
