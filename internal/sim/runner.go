package sim

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"gtfs-tracker/internal/gtfs"
	mmetrics "gtfs-tracker/internal/metrics"
	"gtfs-tracker/internal/publisher"
)

// PositionPublisher is the outbound side of the runner. Satisfied by
// publisher.NATSPublisher.
type PositionPublisher interface {
	PublishPosition(routeID, tripID string, msg publisher.PositionMessage) error
}

// Runner owns the clock and the tick cadence. Every tick it samples the wall
// clock in the reference zone, re-resolves the active-trip set when the
// calendar day rolls over, runs the position simulation against the immutable
// schedule, and publishes one message per live vehicle.
type Runner struct {
	sched           *gtfs.Schedule
	pub             PositionPublisher
	publishInterval time.Duration
	speedMultiplier float64
	tz              *time.Location
	metrics         *mmetrics.Collector

	cancel context.CancelFunc
	wg     sync.WaitGroup

	active     map[string]struct{}
	activeDate int

	lastFix map[string]fix // previous tick, for speed estimation
}

type fix struct {
	at       time.Time
	lat, lon float64
}

func NewRunner(sched *gtfs.Schedule, pub PositionPublisher, publishInterval time.Duration, speedMultiplier float64, tz *time.Location, metrics *mmetrics.Collector) *Runner {
	return &Runner{
		sched:           sched,
		pub:             pub,
		publishInterval: publishInterval,
		speedMultiplier: speedMultiplier,
		tz:              tz,
		metrics:         metrics,
		lastFix:         make(map[string]fix),
	}
}

// Run starts the tick loop in the background. Use Stop for a clean shutdown.
func (r *Runner) Run(parent context.Context) {
	ctx, cancel := context.WithCancel(parent)
	r.cancel = cancel
	start := time.Now().In(r.tz)
	r.resolve(start)

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		tick := time.NewTicker(r.publishInterval)
		defer tick.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-tick.C:
				r.step(start, now.In(r.tz))
			}
		}
	}()
}

func (r *Runner) Stop() {
	if r.cancel != nil {
		r.cancel()
	}
	r.wg.Wait()
}

// simTime maps wall-clock time onto the simulated clock. With a multiplier of
// 1 the two coincide; larger values replay the schedule faster.
func (r *Runner) simTime(start, now time.Time) time.Time {
	if r.speedMultiplier == 1 {
		return now
	}
	elapsed := now.Sub(start).Seconds() * r.speedMultiplier
	return start.Add(time.Duration(elapsed * float64(time.Second)))
}

func (r *Runner) step(start, now time.Time) {
	tickStart := time.Now()
	simNow := r.simTime(start, now)

	if gtfs.DateInt(simNow) != r.activeDate {
		r.resolve(simNow)
	}

	positions := Positions(r.sched, r.active, gtfs.SecondsSinceMidnight(simNow))

	moving, atStop := 0, 0
	seen := make(map[string]fix, len(positions))
	for i := range positions {
		pos := &positions[i]
		switch pos.Status {
		case StatusMoving:
			moving++
		case StatusAtStop:
			atStop++
		}

		speed := 0.0
		if prev, ok := r.lastFix[pos.TripID]; ok {
			if dt := now.Sub(prev.at).Seconds(); dt > 0 {
				speed = Haversine(prev.lat, prev.lon, pos.Lat, pos.Lon) / dt
			}
		}
		seen[pos.TripID] = fix{at: now, lat: pos.Lat, lon: pos.Lon}

		msg := positionMessage(pos, now, speed)
		if err := r.pub.PublishPosition(msg.RouteID, msg.TripID, msg); err != nil {
			log.Error().Err(err).Str("trip", pos.TripID).Msg("Failed to publish position")
		}
	}
	r.lastFix = seen

	if r.metrics != nil {
		r.metrics.MovingVehicles.Set(float64(moving))
		r.metrics.AtStopVehicles.Set(float64(atStop))
		r.metrics.PositionsComputed.Add(float64(len(positions)))
		r.metrics.TickDuration.Observe(time.Since(tickStart).Seconds())
	}
}

// resolve recomputes the active-trip set for simNow's calendar date. Runs on
// startup and once per day boundary, not on the per-tick cadence.
func (r *Runner) resolve(simNow time.Time) {
	resolveStart := time.Now()
	r.active = ActiveTrips(r.sched, simNow)
	r.activeDate = gtfs.DateInt(simNow)
	if r.metrics != nil {
		r.metrics.ActiveTrips.Set(float64(len(r.active)))
		r.metrics.ResolveDuration.Observe(time.Since(resolveStart).Seconds())
	}
	log.Info().
		Int("date", r.activeDate).
		Int("trips", len(r.active)).
		Msg("Resolved active trips")
}

func positionMessage(pos *Position, now time.Time, speed float64) publisher.PositionMessage {
	msg := publisher.PositionMessage{
		TripID:    pos.TripID,
		Timestamp: now,
		Lat:       pos.Lat,
		Lon:       pos.Lon,
		Bearing:   pos.Bearing,
		Status:    string(pos.Status),
		Progress:  pos.Progress,
		SpeedMps:  speed,
	}
	if pos.Trip != nil {
		msg.RouteID = pos.Trip.RouteID
		msg.Headsign = pos.Trip.Headsign
	}
	if pos.Route != nil {
		msg.RouteShortName = pos.Route.ShortName
		msg.RouteColor = pos.Route.Color
	}
	if pos.PrevStop != nil {
		msg.PrevStopID = pos.PrevStop.StopID
		msg.PrevStopName = pos.PrevStop.Name
	}
	if pos.NextStop != nil {
		msg.NextStopID = pos.NextStop.StopID
		msg.NextStopName = pos.NextStop.Name
	}
	return msg
}
