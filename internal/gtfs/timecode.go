package gtfs

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DaySeconds parses "HH:MM:SS" (or "HH:MM") into seconds since midnight.
// Hours may be >= 24 for overnight trips. Blank or unparseable input yields 0;
// the feed is trusted input, not validated here.
func DaySeconds(s string) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	parts := strings.Split(s, ":")
	if len(parts) < 2 {
		return 0
	}
	h, _ := strconv.Atoi(parts[0])
	m, _ := strconv.Atoi(parts[1])
	sec := 0
	if len(parts) > 2 {
		sec, _ = strconv.Atoi(parts[2])
	}
	total := h*3600 + m*60 + sec
	if total < 0 {
		total = 0
	}
	return total
}

// FormatDaySeconds renders seconds since midnight as "HH:MM:SS". Hours are
// not wrapped at 24, mirroring the feed convention.
func FormatDaySeconds(sec int) string {
	if sec < 0 {
		sec = 0
	}
	return fmt.Sprintf("%02d:%02d:%02d", sec/3600, (sec/60)%60, sec%60)
}

// SecondsSinceMidnight returns the seconds elapsed since local midnight of t,
// in t's own location. Callers localize t to the reference zone first.
func SecondsSinceMidnight(t time.Time) int {
	y, m, d := t.Date()
	midnight := time.Date(y, m, d, 0, 0, 0, 0, t.Location())
	return int(t.Sub(midnight) / time.Second)
}

// DateInt returns t's calendar date as a YYYYMMDD integer.
func DateInt(t time.Time) int {
	y, m, d := t.Date()
	return y*10000 + int(m)*100 + d
}
