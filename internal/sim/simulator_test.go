package sim

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gtfs-tracker/internal/gtfs"
)

// lineSchedule builds a two-stop trip from A(40,-3) to B(41,-3) with the given
// times, active under service "wk".
func lineSchedule(arrA, depA, arrB, depB int) *gtfs.Schedule {
	s := gtfs.NewSchedule()
	s.Stops["A"] = &gtfs.Stop{StopID: "A", Name: "Alpha", Lat: 40.0, Lon: -3.0}
	s.Stops["B"] = &gtfs.Stop{StopID: "B", Name: "Beta", Lat: 41.0, Lon: -3.0}
	s.Routes["r1"] = &gtfs.Route{RouteID: "r1", ShortName: "L1", Color: "CC0000"}
	s.Trips["t1"] = &gtfs.Trip{TripID: "t1", RouteID: "r1", ServiceID: "wk", Headsign: "Beta"}
	s.AddStopTime(gtfs.StopTime{TripID: "t1", StopID: "A", StopSequence: 1, ArrivalSec: arrA, DepartureSec: depA})
	s.AddStopTime(gtfs.StopTime{TripID: "t1", StopID: "B", StopSequence: 2, ArrivalSec: arrB, DepartureSec: depB})
	s.Finalize()
	return s
}

func active(ids ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		m[id] = struct{}{}
	}
	return m
}

func one(t *testing.T, positions []Position) Position {
	t.Helper()
	require.Len(t, positions, 1)
	return positions[0]
}

func TestTripWindowBoundaries(t *testing.T) {
	s := lineSchedule(28700, 28800, 32400, 32500)
	act := active("t1")

	assert.Empty(t, Positions(s, act, 28799), "before first departure")

	pos := one(t, Positions(s, act, 28800))
	assert.Equal(t, StatusAtStop, pos.Status)
	assert.Equal(t, "A", pos.PrevStop.StopID)

	pos = one(t, Positions(s, act, 32400))
	assert.Equal(t, StatusAtStop, pos.Status)
	assert.Equal(t, "B", pos.PrevStop.StopID)
	assert.Nil(t, pos.NextStop, "no upcoming stop at the terminus")

	assert.Empty(t, Positions(s, act, 32401), "after last arrival")
}

func TestInTransitInterpolation(t *testing.T) {
	s := lineSchedule(900, 1000, 2000, 2100)

	pos := one(t, Positions(s, active("t1"), 1500))
	assert.Equal(t, StatusMoving, pos.Status)
	assert.InDelta(t, 40.5, pos.Lat, 1e-9)
	assert.InDelta(t, -3.0, pos.Lon, 1e-9)
	assert.InDelta(t, 0.5, pos.Progress, 1e-9)
	assert.InDelta(t, 0.0, pos.Bearing, 1e-6, "due north")
	assert.Equal(t, "A", pos.PrevStop.StopID)
	assert.Equal(t, "B", pos.NextStop.StopID)
}

func TestAtStopWindow(t *testing.T) {
	// Dwell window at a middle stop: arrival 1000, departure 1050.
	s := gtfs.NewSchedule()
	s.Stops["A"] = &gtfs.Stop{StopID: "A", Lat: 40.0, Lon: -3.0}
	s.Stops["B"] = &gtfs.Stop{StopID: "B", Lat: 40.5, Lon: -3.0}
	s.Stops["C"] = &gtfs.Stop{StopID: "C", Lat: 41.0, Lon: -3.0}
	s.Trips["t1"] = &gtfs.Trip{TripID: "t1", ServiceID: "wk"}
	s.AddStopTime(gtfs.StopTime{TripID: "t1", StopID: "A", StopSequence: 1, ArrivalSec: 0, DepartureSec: 100})
	s.AddStopTime(gtfs.StopTime{TripID: "t1", StopID: "B", StopSequence: 2, ArrivalSec: 1000, DepartureSec: 1050})
	s.AddStopTime(gtfs.StopTime{TripID: "t1", StopID: "C", StopSequence: 3, ArrivalSec: 2000, DepartureSec: 2000})
	s.Finalize()

	pos := one(t, Positions(s, active("t1"), 1025))
	assert.Equal(t, StatusAtStop, pos.Status)
	assert.Equal(t, 40.5, pos.Lat)
	assert.Equal(t, -3.0, pos.Lon)
	assert.Zero(t, pos.Bearing)
	assert.Zero(t, pos.Progress)
	assert.Equal(t, "B", pos.PrevStop.StopID)
	assert.Equal(t, "C", pos.NextStop.StopID, "upcoming stop even before departing")
}

func TestSegmentScanSelectsCorrectSegment(t *testing.T) {
	s := gtfs.NewSchedule()
	s.Stops["A"] = &gtfs.Stop{StopID: "A", Lat: 40.0, Lon: -3.0}
	s.Stops["B"] = &gtfs.Stop{StopID: "B", Lat: 40.5, Lon: -3.0}
	s.Stops["C"] = &gtfs.Stop{StopID: "C", Lat: 41.0, Lon: -3.0}
	s.Trips["t1"] = &gtfs.Trip{TripID: "t1", ServiceID: "wk"}
	s.AddStopTime(gtfs.StopTime{TripID: "t1", StopID: "A", StopSequence: 1, ArrivalSec: 0, DepartureSec: 100})
	s.AddStopTime(gtfs.StopTime{TripID: "t1", StopID: "B", StopSequence: 2, ArrivalSec: 500, DepartureSec: 600})
	s.AddStopTime(gtfs.StopTime{TripID: "t1", StopID: "C", StopSequence: 3, ArrivalSec: 1000, DepartureSec: 1000})
	s.Finalize()

	// Strictly between B's departure and C's arrival.
	pos := one(t, Positions(s, active("t1"), 800))
	assert.Equal(t, StatusMoving, pos.Status)
	assert.Equal(t, "B", pos.PrevStop.StopID)
	assert.Equal(t, "C", pos.NextStop.StopID)
	assert.InDelta(t, 0.5, pos.Progress, 1e-9)
}

func TestDisplayReferencesAttached(t *testing.T) {
	s := lineSchedule(900, 1000, 2000, 2100)

	pos := one(t, Positions(s, active("t1"), 1500))
	require.NotNil(t, pos.Trip)
	assert.Equal(t, "Beta", pos.Trip.Headsign)
	require.NotNil(t, pos.Route)
	assert.Equal(t, "L1", pos.Route.ShortName)
}

func TestUnresolvedRouteDoesNotDropPosition(t *testing.T) {
	s := lineSchedule(900, 1000, 2000, 2100)
	s.Trips["t1"].RouteID = "no-such-route"

	pos := one(t, Positions(s, active("t1"), 1500))
	assert.Nil(t, pos.Route)
	assert.NotNil(t, pos.Trip)
}

func TestDegenerateTripsOmitted(t *testing.T) {
	s := gtfs.NewSchedule()
	s.Stops["A"] = &gtfs.Stop{StopID: "A", Lat: 40.0, Lon: -3.0}
	s.Trips["lone"] = &gtfs.Trip{TripID: "lone", ServiceID: "wk"}
	s.AddStopTime(gtfs.StopTime{TripID: "lone", StopID: "A", StopSequence: 1, ArrivalSec: 0, DepartureSec: 86400})
	s.Finalize()

	assert.Empty(t, Positions(s, active("lone"), 1000), "single stop-time trip never simulates")
	assert.Empty(t, Positions(s, active("ghost"), 1000), "unknown trip id yields nothing")
}

func TestMissingStopOmitsPositionSilently(t *testing.T) {
	s := lineSchedule(900, 1000, 2000, 2100)
	delete(s.Stops, "B")

	assert.Empty(t, Positions(s, active("t1"), 1500))
}

func TestScheduleGapInsideWindowOmitted(t *testing.T) {
	// Malformed times (arrival after departure) leaving nowSeconds inside the
	// trip window but matching no segment.
	s := gtfs.NewSchedule()
	s.Stops["A"] = &gtfs.Stop{StopID: "A", Lat: 40.0, Lon: -3.0}
	s.Stops["B"] = &gtfs.Stop{StopID: "B", Lat: 41.0, Lon: -3.0}
	s.Trips["t1"] = &gtfs.Trip{TripID: "t1", ServiceID: "wk"}
	s.AddStopTime(gtfs.StopTime{TripID: "t1", StopID: "A", StopSequence: 1, ArrivalSec: 12, DepartureSec: 10})
	s.AddStopTime(gtfs.StopTime{TripID: "t1", StopID: "B", StopSequence: 2, ArrivalSec: 11, DepartureSec: 95})
	s.Finalize()

	assert.Empty(t, Positions(s, active("t1"), 10))
}

func TestNowSecondsWrapped(t *testing.T) {
	s := lineSchedule(900, 1000, 2000, 2100)

	pos := one(t, Positions(s, active("t1"), 86400+1500))
	assert.Equal(t, StatusMoving, pos.Status)
	assert.InDelta(t, 40.5, pos.Lat, 1e-9)
}

func TestOneResultPerTrip(t *testing.T) {
	s := lineSchedule(0, 0, 86399, 86399)
	positions := Positions(s, active("t1"), 40000)
	assert.Len(t, positions, 1)
}

func TestBearingSouthbound(t *testing.T) {
	// Reverse direction trip: B -> A is due south.
	s := gtfs.NewSchedule()
	s.Stops["A"] = &gtfs.Stop{StopID: "A", Lat: 40.0, Lon: -3.0}
	s.Stops["B"] = &gtfs.Stop{StopID: "B", Lat: 41.0, Lon: -3.0}
	s.Trips["t1"] = &gtfs.Trip{TripID: "t1", ServiceID: "wk"}
	s.AddStopTime(gtfs.StopTime{TripID: "t1", StopID: "B", StopSequence: 1, ArrivalSec: 900, DepartureSec: 1000})
	s.AddStopTime(gtfs.StopTime{TripID: "t1", StopID: "A", StopSequence: 2, ArrivalSec: 2000, DepartureSec: 2100})
	s.Finalize()

	pos := one(t, Positions(s, active("t1"), 1500))
	assert.InDelta(t, 180.0, pos.Bearing, 1e-6)
	assert.True(t, pos.Bearing >= 0 && pos.Bearing < 360)
	assert.False(t, math.IsNaN(pos.Lat))
}
