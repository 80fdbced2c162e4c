package sim

import (
	"gtfs-tracker/internal/gtfs"
)

// Status classifies a vehicle's running state. The simulator only ever emits
// StatusMoving and StatusAtStop; StatusScheduled and StatusEnded exist for
// display layers that track trips outside their live window.
type Status string

const (
	StatusMoving    Status = "MOVING"
	StatusAtStop    Status = "AT_STOP"
	StatusScheduled Status = "SCHEDULED"
	StatusEnded     Status = "ENDED"
)

// Position is one simulated vehicle snapshot. Route, Trip, PrevStop and
// NextStop are display references resolved by identifier; any of them may be
// nil and a nil reference never suppresses the Position itself. Positions are
// recomputed every tick and never persisted.
type Position struct {
	TripID   string
	Lat      float64
	Lon      float64
	Bearing  float64 // degrees [0,360); 0 while at a stop
	Status   Status
	Progress float64 // 0..1 through the current segment; 0 at a stop

	PrevStop *gtfs.Stop
	NextStop *gtfs.Stop
	Route    *gtfs.Route
	Trip     *gtfs.Trip
}

// Positions computes one snapshot per currently live trip. nowSeconds is
// seconds since midnight in the reference zone, wrapped into [0,86400); the
// caller owns the clock, which keeps this a pure function of its inputs.
//
// Trips outside their first-departure/last-arrival window (both boundaries
// inclusive), trips with fewer than two stop-times, and trips whose scan
// matches no segment are silently omitted. That omission is the normal
// steady state for most of the fleet at any instant, not an error.
func Positions(sched *gtfs.Schedule, activeTripIDs map[string]struct{}, nowSeconds int) []Position {
	nowSeconds = ((nowSeconds % 86400) + 86400) % 86400

	var out []Position
	for tripID := range activeTripIDs {
		if pos, ok := simulateTrip(sched, tripID, nowSeconds); ok {
			out = append(out, pos)
		}
	}
	return out
}

func simulateTrip(sched *gtfs.Schedule, tripID string, now int) (Position, bool) {
	sts := sched.StopTimes[tripID]
	if len(sts) < 2 {
		return Position{}, false
	}
	if now < sts[0].DepartureSec || now > sts[len(sts)-1].ArrivalSec {
		return Position{}, false
	}

	for i := range sts {
		if sts[i].ArrivalSec <= now && now <= sts[i].DepartureSec {
			return atStopPosition(sched, tripID, sts, i)
		}
		if i+1 < len(sts) && sts[i].DepartureSec < now && now < sts[i+1].ArrivalSec {
			return movingPosition(sched, tripID, sts, i, now)
		}
	}
	// Gap in the schedule despite being inside the trip window. Omit.
	return Position{}, false
}

// atStopPosition places the vehicle on the stop itself. NextStop is the
// upcoming stop even though the vehicle has not departed yet, which is what
// display consumers want to show.
func atStopPosition(sched *gtfs.Schedule, tripID string, sts []gtfs.StopTime, i int) (Position, bool) {
	at := sched.Stops[sts[i].StopID]
	if at == nil {
		return Position{}, false
	}
	pos := Position{
		TripID:   tripID,
		Lat:      at.Lat,
		Lon:      at.Lon,
		Status:   StatusAtStop,
		PrevStop: at,
	}
	if i+1 < len(sts) {
		pos.NextStop = sched.Stops[sts[i+1].StopID]
	}
	attachReferences(sched, &pos)
	return pos, true
}

func movingPosition(sched *gtfs.Schedule, tripID string, sts []gtfs.StopTime, i, now int) (Position, bool) {
	from := sched.Stops[sts[i].StopID]
	to := sched.Stops[sts[i+1].StopID]
	if from == nil || to == nil {
		return Position{}, false
	}
	f := float64(now-sts[i].DepartureSec) / float64(sts[i+1].ArrivalSec-sts[i].DepartureSec)
	lat, lon := lerp(from.Lat, from.Lon, to.Lat, to.Lon, f)
	pos := Position{
		TripID:   tripID,
		Lat:      lat,
		Lon:      lon,
		Bearing:  BearingDeg(from.Lat, from.Lon, to.Lat, to.Lon),
		Status:   StatusMoving,
		Progress: f,
		PrevStop: from,
		NextStop: to,
	}
	attachReferences(sched, &pos)
	return pos, true
}

// attachReferences resolves the owning trip and route for display. Unresolved
// identifiers stay nil; they never drop the position.
func attachReferences(sched *gtfs.Schedule, pos *Position) {
	pos.Trip = sched.Trips[pos.TripID]
	if pos.Trip != nil {
		pos.Route = sched.Routes[pos.Trip.RouteID]
	}
}
