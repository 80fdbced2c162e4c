package gtfs

import (
	"testing"
	"time"
)

func TestDaySeconds(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"00:00:00", 0},
		{"08:00:00", 28800},
		{"09:00:00", 32400},
		{"23:59:59", 86399},
		{"24:30:00", 88200}, // overnight trips use hours >= 24
		{"25:01:30", 90090},
		{"08:15", 29700}, // seconds optional
		{" 08:00:00 ", 28800},
		{"", 0},
		{"garbage", 0},
		{"8", 0},
	}
	for _, tt := range tests {
		if got := DaySeconds(tt.in); got != tt.want {
			t.Errorf("DaySeconds(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestFormatDaySeconds(t *testing.T) {
	tests := []struct {
		in   int
		want string
	}{
		{0, "00:00:00"},
		{28800, "08:00:00"},
		{86399, "23:59:59"},
		{88200, "24:30:00"},
		{-5, "00:00:00"},
	}
	for _, tt := range tests {
		if got := FormatDaySeconds(tt.in); got != tt.want {
			t.Errorf("FormatDaySeconds(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestDaySecondsRoundTrip(t *testing.T) {
	for _, sec := range []int{0, 1, 3599, 28800, 86399, 90090} {
		if got := DaySeconds(FormatDaySeconds(sec)); got != sec {
			t.Errorf("round trip %d -> %d", sec, got)
		}
	}
}

func TestSecondsSinceMidnight(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Madrid")
	if err != nil {
		t.Fatal(err)
	}
	at := time.Date(2024, 3, 15, 8, 30, 15, 0, loc)
	if got, want := SecondsSinceMidnight(at), 8*3600+30*60+15; got != want {
		t.Errorf("SecondsSinceMidnight = %d, want %d", got, want)
	}
	midnight := time.Date(2024, 3, 15, 0, 0, 0, 0, loc)
	if got := SecondsSinceMidnight(midnight); got != 0 {
		t.Errorf("SecondsSinceMidnight at midnight = %d, want 0", got)
	}
}

func TestDateInt(t *testing.T) {
	at := time.Date(2024, 1, 7, 23, 59, 0, 0, time.UTC)
	if got := DateInt(at); got != 20240107 {
		t.Errorf("DateInt = %d, want 20240107", got)
	}
}
