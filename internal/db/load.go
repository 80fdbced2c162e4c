package db

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"

	"github.com/rs/zerolog/log"

	"gtfs-tracker/internal/gtfs"
)

// LoadSchedule reads the full static dataset out of a postgis-gtfs-importer
// database into an in-memory schedule. Stop-times referencing unknown trips
// are dropped here; all other references are left for lazy resolution. The
// returned schedule is finalized (per-trip sequences sorted) and must be
// treated as immutable.
func LoadSchedule(ctx context.Context, db *sql.DB) (*gtfs.Schedule, error) {
	sched := gtfs.NewSchedule()

	if err := loadStops(ctx, db, sched); err != nil {
		return nil, err
	}
	if err := loadRoutes(ctx, db, sched); err != nil {
		return nil, err
	}
	if err := loadTrips(ctx, db, sched); err != nil {
		return nil, err
	}
	if err := loadStopTimes(ctx, db, sched); err != nil {
		return nil, err
	}
	if err := loadCalendar(ctx, db, sched); err != nil {
		return nil, err
	}
	if err := loadCalendarDates(ctx, db, sched); err != nil {
		return nil, err
	}
	sched.Finalize()

	log.Info().
		Int("stops", len(sched.Stops)).
		Int("routes", len(sched.Routes)).
		Int("trips", len(sched.Trips)).
		Int("services", len(sched.Calendar)).
		Msg("Schedule loaded")
	return sched, nil
}

func loadStops(ctx context.Context, db *sql.DB, sched *gtfs.Schedule) error {
	// Column layout differs between importer versions: either plain
	// stop_lat/stop_lon columns or a PostGIS stop_loc geography.
	latlon, err := hasColumns(ctx, db, "public", "stops", "stop_lat", "stop_lon")
	if err != nil {
		return fmt.Errorf("introspect stops columns: %w", err)
	}
	var q string
	if latlon["stop_lat"] && latlon["stop_lon"] {
		q = `SELECT stop_id, COALESCE(stop_name,''), COALESCE(stop_lat,0), COALESCE(stop_lon,0) FROM stops`
	} else {
		loc, err := hasColumns(ctx, db, "public", "stops", "stop_loc")
		if err != nil {
			return fmt.Errorf("introspect stops stop_loc: %w", err)
		}
		if !loc["stop_loc"] {
			return fmt.Errorf("stops table missing expected columns (stop_lat/lon or stop_loc)")
		}
		q = `SELECT stop_id, COALESCE(stop_name,''),
                    COALESCE(ST_Y(stop_loc::geometry),0),
                    COALESCE(ST_X(stop_loc::geometry),0)
             FROM stops`
	}
	rows, err := db.QueryContext(ctx, q)
	if err != nil {
		return fmt.Errorf("query stops: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var s gtfs.Stop
		if err := rows.Scan(&s.StopID, &s.Name, &s.Lat, &s.Lon); err != nil {
			return err
		}
		stop := s
		sched.Stops[stop.StopID] = &stop
	}
	return rows.Err()
}

func loadRoutes(ctx context.Context, db *sql.DB, sched *gtfs.Schedule) error {
	q := `SELECT route_id, COALESCE(route_short_name,''), COALESCE(route_long_name,''),
                 COALESCE(route_type::text,'0'), COALESCE(route_color,'')
          FROM routes`
	rows, err := db.QueryContext(ctx, q)
	if err != nil {
		return fmt.Errorf("query routes: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var r gtfs.Route
		var routeType string
		if err := rows.Scan(&r.RouteID, &r.ShortName, &r.LongName, &routeType, &r.Color); err != nil {
			return err
		}
		r.RouteType, _ = strconv.Atoi(routeType)
		route := r
		sched.Routes[route.RouteID] = &route
	}
	return rows.Err()
}

func loadTrips(ctx context.Context, db *sql.DB, sched *gtfs.Schedule) error {
	q := `SELECT trip_id, route_id, service_id, COALESCE(trip_headsign,''),
                 COALESCE(trip_short_name,''), COALESCE(direction_id::text,'0')
          FROM trips`
	rows, err := db.QueryContext(ctx, q)
	if err != nil {
		return fmt.Errorf("query trips: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var t gtfs.Trip
		var direction string
		if err := rows.Scan(&t.TripID, &t.RouteID, &t.ServiceID, &t.Headsign, &t.ShortName, &direction); err != nil {
			return err
		}
		if direction == "1" {
			t.Direction = 1
		}
		trip := t
		sched.Trips[trip.TripID] = &trip
	}
	return rows.Err()
}

func loadStopTimes(ctx context.Context, db *sql.DB, sched *gtfs.Schedule) error {
	// arrival_time/departure_time may be interval or text columns; normalize
	// to text and derive seconds through the day-seconds codec.
	q := `SELECT trip_id, stop_id, stop_sequence,
                 COALESCE(arrival_time::text,''), COALESCE(departure_time::text,'')
          FROM stop_times`
	rows, err := db.QueryContext(ctx, q)
	if err != nil {
		return fmt.Errorf("query stop_times: %w", err)
	}
	defer rows.Close()
	dropped := 0
	for rows.Next() {
		var st gtfs.StopTime
		if err := rows.Scan(&st.TripID, &st.StopID, &st.StopSequence, &st.ArrivalTime, &st.DepartureTime); err != nil {
			return err
		}
		st.ArrivalSec = gtfs.DaySeconds(st.ArrivalTime)
		st.DepartureSec = gtfs.DaySeconds(st.DepartureTime)
		if _, ok := sched.Trips[st.TripID]; !ok {
			dropped++
			continue
		}
		sched.AddStopTime(st)
	}
	if dropped > 0 {
		log.Warn().Int("count", dropped).Msg("Dropped stop_times with unknown trip_id")
	}
	return rows.Err()
}

func loadCalendar(ctx context.Context, db *sql.DB, sched *gtfs.Schedule) error {
	// Day flags may be booleans, 0/1 integers, or availability enums.
	q := `SELECT service_id,
                 sunday::text, monday::text, tuesday::text, wednesday::text,
                 thursday::text, friday::text, saturday::text,
                 to_char(start_date,'YYYYMMDD')::int, to_char(end_date,'YYYYMMDD')::int
          FROM calendar`
	rows, err := db.QueryContext(ctx, q)
	if err != nil {
		return fmt.Errorf("query calendar: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var c gtfs.Calendar
		var days [7]string
		if err := rows.Scan(&c.ServiceID,
			&days[0], &days[1], &days[2], &days[3], &days[4], &days[5], &days[6],
			&c.StartDate, &c.EndDate); err != nil {
			return err
		}
		for i, d := range days {
			c.Weekdays[i] = dayFlag(d)
		}
		cal := c
		sched.Calendar[cal.ServiceID] = &cal
	}
	return rows.Err()
}

func loadCalendarDates(ctx context.Context, db *sql.DB, sched *gtfs.Schedule) error {
	q := `SELECT service_id, to_char(date,'YYYYMMDD')::int, exception_type::text
          FROM calendar_dates`
	rows, err := db.QueryContext(ctx, q)
	if err != nil {
		return fmt.Errorf("query calendar_dates: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var cd gtfs.CalendarDate
		var exc string
		if err := rows.Scan(&cd.ServiceID, &cd.Date, &exc); err != nil {
			return err
		}
		switch exc {
		case "1", "added":
			cd.ExceptionType = gtfs.ExceptionAdded
		case "2", "removed":
			cd.ExceptionType = gtfs.ExceptionRemoved
		default:
			continue
		}
		sched.CalendarDates[cd.ServiceID] = append(sched.CalendarDates[cd.ServiceID], cd)
	}
	return rows.Err()
}

func dayFlag(s string) bool {
	switch s {
	case "1", "t", "true", "available":
		return true
	}
	return false
}
