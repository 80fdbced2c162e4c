package sim

import (
	"time"

	"gtfs-tracker/internal/gtfs"
)

// ActiveServices computes the set of service IDs running on the given date.
// Weekly calendar rows seed the set (inclusive date window, matching weekday
// flag); calendar-date exceptions are applied afterwards and independently,
// so an added exception can activate a service that has no weekly row at all,
// and a removed exception wins over a matching row.
func ActiveServices(sched *gtfs.Schedule, date time.Time) map[string]struct{} {
	dateInt := gtfs.DateInt(date)
	weekday := date.Weekday()

	active := make(map[string]struct{})
	for serviceID, cal := range sched.Calendar {
		if dateInt < cal.StartDate || dateInt > cal.EndDate {
			continue
		}
		if cal.Weekdays[weekday] {
			active[serviceID] = struct{}{}
		}
	}
	for serviceID, dates := range sched.CalendarDates {
		for _, cd := range dates {
			if cd.Date != dateInt {
				continue
			}
			switch cd.ExceptionType {
			case gtfs.ExceptionAdded:
				active[serviceID] = struct{}{}
			case gtfs.ExceptionRemoved:
				delete(active, serviceID)
			}
		}
	}
	return active
}

// ActiveTrips resolves the trip IDs whose service runs on the given date.
// Trips whose service matches neither a calendar row nor an exception are
// simply excluded; there are no error conditions. Result order is undefined.
func ActiveTrips(sched *gtfs.Schedule, date time.Time) map[string]struct{} {
	services := ActiveServices(sched, date)
	trips := make(map[string]struct{})
	for tripID, trip := range sched.Trips {
		if _, ok := services[trip.ServiceID]; ok {
			trips[tripID] = struct{}{}
		}
	}
	return trips
}
