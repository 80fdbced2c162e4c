package sim

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gtfs-tracker/internal/gtfs"
)

func allWeek() [7]bool {
	var w [7]bool
	for i := range w {
		w[i] = true
	}
	return w
}

func date(y, m, d int) time.Time {
	return time.Date(y, time.Month(m), d, 12, 0, 0, 0, time.UTC)
}

func TestActiveServicesWindowInclusive(t *testing.T) {
	s := gtfs.NewSchedule()
	s.Calendar["wk"] = &gtfs.Calendar{
		ServiceID: "wk",
		Weekdays:  allWeek(),
		StartDate: 20240101,
		EndDate:   20240107,
	}

	for _, tt := range []struct {
		y, m, d int
		active  bool
	}{
		{2023, 12, 31, false},
		{2024, 1, 1, true}, // start boundary
		{2024, 1, 4, true},
		{2024, 1, 7, true}, // end boundary
		{2024, 1, 8, false},
	} {
		_, ok := ActiveServices(s, date(tt.y, tt.m, tt.d))["wk"]
		assert.Equal(t, tt.active, ok, "date %04d%02d%02d", tt.y, tt.m, tt.d)
	}
}

func TestActiveServicesWeekdayFlag(t *testing.T) {
	s := gtfs.NewSchedule()
	cal := &gtfs.Calendar{ServiceID: "mon", StartDate: 20240101, EndDate: 20241231}
	cal.Weekdays[time.Monday] = true
	s.Calendar["mon"] = cal

	_, ok := ActiveServices(s, date(2024, 1, 1))["mon"] // a Monday
	assert.True(t, ok)
	_, ok = ActiveServices(s, date(2024, 1, 2))["mon"] // a Tuesday
	assert.False(t, ok)
}

func TestAddedExceptionWithoutRule(t *testing.T) {
	s := gtfs.NewSchedule()
	s.CalendarDates["special"] = []gtfs.CalendarDate{
		{ServiceID: "special", Date: 20240315, ExceptionType: gtfs.ExceptionAdded},
	}

	_, ok := ActiveServices(s, date(2024, 3, 15))["special"]
	assert.True(t, ok, "added exception activates a service with no weekly rule")
	_, ok = ActiveServices(s, date(2024, 3, 16))["special"]
	assert.False(t, ok, "only the exception date is active")
}

func TestRemovedExceptionOverridesRule(t *testing.T) {
	s := gtfs.NewSchedule()
	s.Calendar["wk"] = &gtfs.Calendar{
		ServiceID: "wk",
		Weekdays:  allWeek(),
		StartDate: 20240101,
		EndDate:   20241231,
	}
	s.CalendarDates["wk"] = []gtfs.CalendarDate{
		{ServiceID: "wk", Date: 20240315, ExceptionType: gtfs.ExceptionRemoved},
	}

	_, ok := ActiveServices(s, date(2024, 3, 15))["wk"]
	assert.False(t, ok)
	_, ok = ActiveServices(s, date(2024, 3, 14))["wk"]
	assert.True(t, ok)
	_, ok = ActiveServices(s, date(2024, 3, 16))["wk"]
	assert.True(t, ok)
}

func TestRemovedExceptionIdempotentWhenAbsent(t *testing.T) {
	s := gtfs.NewSchedule()
	s.CalendarDates["never"] = []gtfs.CalendarDate{
		{ServiceID: "never", Date: 20240315, ExceptionType: gtfs.ExceptionRemoved},
	}
	assert.Empty(t, ActiveServices(s, date(2024, 3, 15)))
}

func TestActiveTripsResolution(t *testing.T) {
	s := gtfs.NewSchedule()
	s.Calendar["wk"] = &gtfs.Calendar{ServiceID: "wk", Weekdays: allWeek(), StartDate: 20240101, EndDate: 20241231}
	s.Trips["t1"] = &gtfs.Trip{TripID: "t1", ServiceID: "wk"}
	s.Trips["t2"] = &gtfs.Trip{TripID: "t2", ServiceID: "wk"}
	s.Trips["t3"] = &gtfs.Trip{TripID: "t3", ServiceID: "orphan"} // no rule, no exception

	got := ActiveTrips(s, date(2024, 6, 1))
	require.Len(t, got, 2)
	assert.Contains(t, got, "t1")
	assert.Contains(t, got, "t2")
	assert.NotContains(t, got, "t3")
}

func TestResolutionIsIdempotent(t *testing.T) {
	s := gtfs.NewSchedule()
	s.Calendar["wk"] = &gtfs.Calendar{ServiceID: "wk", Weekdays: allWeek(), StartDate: 20240101, EndDate: 20241231}
	s.CalendarDates["wk"] = []gtfs.CalendarDate{
		{ServiceID: "wk", Date: 20240601, ExceptionType: gtfs.ExceptionAdded},
	}
	s.Trips["t1"] = &gtfs.Trip{TripID: "t1", ServiceID: "wk"}

	first := ActiveTrips(s, date(2024, 6, 1))
	second := ActiveTrips(s, date(2024, 6, 1))
	assert.Equal(t, first, second)
}

func TestEmptyScheduleResolvesEmpty(t *testing.T) {
	s := gtfs.NewSchedule()
	assert.Empty(t, ActiveTrips(s, date(2024, 6, 1)))
}
