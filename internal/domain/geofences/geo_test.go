package geofences

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDistanceMeters(t *testing.T) {
	a := Point{Latitude: 40.0, Longitude: -74.0}

	assert.Equal(t, 0.0, DistanceMeters(a, a))

	// 0.01° de latitud ≈ 1111.95 m con R = 6371 km
	d := DistanceMeters(a, Point{Latitude: 40.01, Longitude: -74.0})
	assert.InDelta(t, 1111.95, d, 0.5)

	b := Point{Latitude: 48.8566, Longitude: 2.3522}
	assert.InDelta(t, DistanceMeters(a, b), DistanceMeters(b, a), 1e-6)
}

func TestPoint_Valid(t *testing.T) {
	assert.True(t, Point{Latitude: 90, Longitude: -180}.Valid())
	assert.True(t, Point{Latitude: -90, Longitude: 180}.Valid())
	assert.False(t, Point{Latitude: 90.0001}.Valid())
	assert.False(t, Point{Longitude: 180.5}.Valid())
	assert.False(t, Point{Latitude: math.NaN()}.Valid())
}

func TestGeofence_Contains(t *testing.T) {
	g := Geofence{Type: TypeCircle, Latitude: 40, Longitude: -74, Radius: 100}
	assert.True(t, g.Contains(Point{Latitude: 40, Longitude: -74}))
	assert.False(t, g.Contains(Point{Latitude: 40.01, Longitude: -74}))

	g.Type = TypePolygon
	assert.False(t, g.Contains(Point{Latitude: 40, Longitude: -74}))
}

func TestSchedule_ActiveAt(t *testing.T) {
	s := &Schedule{Days: []int{1, 2, 3, 4, 5}, StartTime: "08:00", EndTime: "15:00"}

	// 2025-03-03 es lunes, 2025-03-02 domingo
	monday := func(h, m int) time.Time { return time.Date(2025, 3, 3, h, m, 0, 0, time.UTC) }

	assert.True(t, s.ActiveAt(monday(8, 0)))
	assert.True(t, s.ActiveAt(monday(15, 0)))
	assert.True(t, s.ActiveAt(time.Date(2025, 3, 3, 15, 0, 59, 0, time.UTC)))
	assert.False(t, s.ActiveAt(monday(7, 59)))
	assert.False(t, s.ActiveAt(monday(15, 1)))
	assert.False(t, s.ActiveAt(time.Date(2025, 3, 2, 10, 0, 0, 0, time.UTC)))

	var none *Schedule
	assert.True(t, none.ActiveAt(monday(3, 0)))

	night := &Schedule{Days: []int{1}, StartTime: "22:00", EndTime: "06:00"}
	assert.False(t, night.ActiveAt(monday(23, 0)))
	assert.False(t, night.ActiveAt(monday(5, 0)))
}

func TestGeofence_ActiveAt(t *testing.T) {
	at := time.Date(2025, 3, 3, 10, 0, 0, 0, time.UTC)
	g := Geofence{IsActive: true}
	assert.True(t, g.ActiveAt(at))

	g.Schedule = &Schedule{Days: []int{0}, StartTime: "00:00", EndTime: "23:59"}
	assert.False(t, g.ActiveAt(at))

	g.Schedule = nil
	g.IsActive = false
	assert.False(t, g.ActiveAt(at))
}

func TestGeofence_AppliesTo(t *testing.T) {
	kid := "kid"
	assert.True(t, Geofence{}.AppliesTo("anyone"))
	assert.True(t, Geofence{ChildID: &kid}.AppliesTo("kid"))
	assert.False(t, Geofence{ChildID: &kid}.AppliesTo("sis"))
}

func TestSchedule_Normalize(t *testing.T) {
	s := &Schedule{Days: []int{5, 1, 5, 3}, StartTime: "08:00", EndTime: "09:00"}
	assert.NoError(t, s.normalize())
	assert.Equal(t, []int{1, 3, 5}, s.Days)

	bad := []*Schedule{
		{Days: []int{1}, StartTime: "10:00", EndTime: "09:00"},
		{Days: []int{}, StartTime: "08:00", EndTime: "09:00"},
		{Days: []int{7}, StartTime: "08:00", EndTime: "09:00"},
		{Days: []int{1}, StartTime: "8:00", EndTime: "24:00"},
	}
	for _, b := range bad {
		assert.ErrorIs(t, b.normalize(), ErrInvalidSchedule)
	}

	var none *Schedule
	assert.NoError(t, none.normalize())
}
