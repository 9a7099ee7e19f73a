package models

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
	"time"
)

// Window is a relative time range used to bucket posts.
type Window int

const (
	WindowToday Window = iota
	WindowThisWeek
	WindowThisMonth
	WindowAllTime
)

func (w Window) String() string {
	switch w {
	case WindowToday:
		return "today"
	case WindowThisWeek:
		return "week"
	case WindowThisMonth:
		return "month"
	case WindowAllTime:
		return "all"
	default:
		return fmt.Sprintf("window(%d)", int(w))
	}
}

// ParseWindow accepts today, week, month and all.
func ParseWindow(s string) (Window, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "today", "day":
		return WindowToday, nil
	case "week", "thisweek":
		return WindowThisWeek, nil
	case "month", "thismonth":
		return WindowThisMonth, nil
	case "all", "alltime", "":
		return WindowAllTime, nil
	default:
		return 0, fmt.Errorf("unknown window %q", s)
	}
}

// bounds returns the half-open range [from, to) covered by w, using the
// calendar of ref's location. AllTime reports ok=false.
func (w Window) bounds(ref time.Time) (from, to time.Time, ok bool) {
	loc := ref.Location()
	y, m, d := ref.Date()
	dayStart := time.Date(y, m, d, 0, 0, 0, 0, loc)
	nextDay := time.Date(y, m, d+1, 0, 0, 0, 0, loc)

	switch w {
	case WindowToday:
		return dayStart, nextDay, true
	case WindowThisWeek:
		// Monday is day 0 of the ISO week.
		back := (int(ref.Weekday()) + 6) % 7
		return time.Date(y, m, d-back, 0, 0, 0, 0, loc), nextDay, true
	case WindowThisMonth:
		return time.Date(y, m, 1, 0, 0, 0, 0, loc), nextDay, true
	default:
		return time.Time{}, time.Time{}, false
	}
}

// FilterByWindow returns the posts whose comparison time falls inside w
// relative to ref, most recent first. Ties are ordered by LocalID ascending
// so the result is reproducible.
//
// Every window ends with ref's calendar day, which keeps
// Today ⊆ ThisWeek ⊆ ThisMonth ⊆ AllTime. A post without timestamps fails
// the whole call with ErrValidationDefect.
func FilterByWindow(posts []Post, w Window, ref time.Time) ([]Post, error) {
	from, to, bounded := w.bounds(ref)

	out := make([]Post, 0, len(posts))
	for _, p := range posts {
		ts := p.ComparisonTime()
		if ts.IsZero() {
			return nil, fmt.Errorf("%w: post %q has no timestamps", ErrValidationDefect, p.LocalID)
		}
		if bounded && (ts.Before(from) || !ts.Before(to)) {
			continue
		}
		out = append(out, p)
	}

	slices.SortStableFunc(out, func(a, b Post) int {
		if c := b.ComparisonTime().Compare(a.ComparisonTime()); c != 0 {
			return c
		}
		return cmp.Compare(a.LocalID, b.LocalID)
	})

	return out, nil
}
