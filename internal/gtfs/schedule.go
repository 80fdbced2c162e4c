package gtfs

import "sort"

// Schedule is the in-memory form of one loaded dataset: entity tables keyed by
// their natural string identifiers, plus per-trip stop-time sequences. It is
// built once by the loader, finalized, and never mutated afterwards, so
// concurrent readers need no locking. A fresh load replaces the whole value.
type Schedule struct {
	Stops         map[string]*Stop
	Routes        map[string]*Route
	Trips         map[string]*Trip
	StopTimes     map[string][]StopTime // keyed by trip ID, sorted by StopSequence
	Calendar      map[string]*Calendar
	CalendarDates map[string][]CalendarDate // keyed by service ID
}

func NewSchedule() *Schedule {
	return &Schedule{
		Stops:         make(map[string]*Stop),
		Routes:        make(map[string]*Route),
		Trips:         make(map[string]*Trip),
		StopTimes:     make(map[string][]StopTime),
		Calendar:      make(map[string]*Calendar),
		CalendarDates: make(map[string][]CalendarDate),
	}
}

// AddStopTime appends a stop-time to its trip's sequence. Entries whose trip
// is unknown are dropped; every other reference (stop, route, service) is
// trusted and resolved lazily downstream.
func (s *Schedule) AddStopTime(st StopTime) {
	if _, ok := s.Trips[st.TripID]; !ok {
		return
	}
	s.StopTimes[st.TripID] = append(s.StopTimes[st.TripID], st)
}

// Finalize sorts every trip's stop-time sequence by StopSequence. Must be
// called once after loading, before the schedule is shared.
func (s *Schedule) Finalize() {
	for tripID, sts := range s.StopTimes {
		sort.Slice(sts, func(i, j int) bool {
			return sts[i].StopSequence < sts[j].StopSequence
		})
		s.StopTimes[tripID] = sts
	}
}

// TripSpan returns the first departure and last arrival of a trip in seconds
// since midnight. ok is false for trips with fewer than two stop-times, which
// are never simulatable.
func (s *Schedule) TripSpan(tripID string) (firstDeparture, lastArrival int, ok bool) {
	sts := s.StopTimes[tripID]
	if len(sts) < 2 {
		return 0, 0, false
	}
	return sts[0].DepartureSec, sts[len(sts)-1].ArrivalSec, true
}
