package journal

import (
	"sort"
	"strings"
	"time"
)

// Filter selects entries.
type Filter struct {
	Status   Status    // empty matches any
	Coin     string    // case-insensitive, empty matches any
	Exchange string    // case-insensitive, empty matches any
	From     time.Time // opened at or after, zero matches any
	To       time.Time // opened before, zero matches any
}

func (f Filter) match(e Entry) bool {
	if f.Status != "" && e.Status != f.Status {
		return false
	}
	if f.Coin != "" && !strings.EqualFold(e.Coin, f.Coin) {
		return false
	}
	if f.Exchange != "" && !strings.EqualFold(e.Exchange, f.Exchange) {
		return false
	}
	if !f.From.IsZero() && e.Timestamp.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && !e.Timestamp.Before(f.To) {
		return false
	}
	return true
}

// Select returns the entries matching f, oldest first.
func Select(entries []Entry, f Filter) []Entry {
	var out []Entry
	for _, e := range entries {
		if f.match(e) {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out
}

// OpenedBetween returns entries opened within [start, end).
func OpenedBetween(entries []Entry, start, end time.Time) []Entry {
	return Select(entries, Filter{From: start, To: end})
}

// DayBounds returns [start, end) of the calendar day in loc.
func DayBounds(loc *time.Location, day string) (time.Time, time.Time, error) {
	t, err := time.ParseInLocation("2006-01-02", day, loc)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
	end := start.AddDate(0, 0, 1)
	return start, end, nil
}

// WeekStart is midnight of the Monday on or before t, in t's location.
func WeekStart(t time.Time) time.Time {
	offset := (int(t.Weekday()) + 6) % 7
	d := t.AddDate(0, 0, -offset)
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, t.Location())
}
