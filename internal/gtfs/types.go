package gtfs

// Stop is one boardable location. Coordinates are decimal degrees.
type Stop struct {
	StopID string
	Name   string
	Lat    float64
	Lon    float64
}

type Route struct {
	RouteID   string
	ShortName string
	LongName  string
	RouteType int
	Color     string // hex, no leading '#'; may be empty
}

type Trip struct {
	TripID    string
	RouteID   string
	ServiceID string
	Headsign  string
	ShortName string
	Direction int
}

// StopTime is one scheduled visit of a trip to a stop. Times are kept both as
// the raw "HH:MM:SS" text and as derived seconds since midnight (can exceed
// 24h for overnight trips).
type StopTime struct {
	TripID        string
	StopID        string
	StopSequence  int
	ArrivalTime   string
	DepartureTime string
	ArrivalSec    int
	DepartureSec  int
}

// Calendar is a weekly service pattern valid over an inclusive date window.
// Dates are YYYYMMDD integers.
type Calendar struct {
	ServiceID string
	Weekdays  [7]bool // indexed by time.Weekday (0 = Sunday)
	StartDate int
	EndDate   int
}

// Calendar date exception types, per the calendar_dates.txt convention.
const (
	ExceptionAdded   = 1
	ExceptionRemoved = 2
)

// CalendarDate is a single-day add/remove override for a service. It applies
// even when the date is outside the service's Calendar window, and a service
// may have exceptions without having a Calendar row at all.
type CalendarDate struct {
	ServiceID     string
	Date          int // YYYYMMDD
	ExceptionType int
}
