package models

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func at(s string) time.Time {
	t, err := time.ParseInLocation("2006-01-02T15:04", s, time.UTC)
	if err != nil {
		panic(err)
	}
	return t
}

func ids(posts []Post) []string {
	out := make([]string, 0, len(posts))
	for _, p := range posts {
		out = append(out, p.LocalID)
	}
	return out
}

func scenarioPosts() []Post {
	return []Post{
		{LocalID: "may", CreatedAt: at("2024-05-01T08:00"), UpdatedAt: at("2024-05-01T08:00")},
		{LocalID: "today", CreatedAt: at("2024-06-10T08:00"), UpdatedAt: at("2024-06-10T08:00")},
		{LocalID: "june2", CreatedAt: at("2024-06-02T08:00"), UpdatedAt: at("2024-06-02T08:00")},
		{LocalID: "june5", CreatedAt: at("2024-06-05T08:00"), UpdatedAt: at("2024-06-05T08:00")},
	}
}

func TestFilterByWindow_Scenario(t *testing.T) {
	// 2024-06-10 is a Monday, so the week starts on the reference day.
	ref := at("2024-06-10T12:00")
	posts := scenarioPosts()

	tests := []struct {
		window Window
		want   []string
	}{
		{WindowToday, []string{"today"}},
		{WindowThisWeek, []string{"today"}},
		{WindowThisMonth, []string{"today", "june5", "june2"}},
		{WindowAllTime, []string{"today", "june5", "june2", "may"}},
	}

	for _, tt := range tests {
		t.Run(tt.window.String(), func(t *testing.T) {
			got, err := FilterByWindow(posts, tt.window, ref)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(got))
		})
	}
}

func TestFilterByWindow_WeekStartsOnMonday(t *testing.T) {
	// Sunday 2024-06-16: the week runs from Monday 2024-06-10.
	ref := at("2024-06-16T23:00")
	posts := []Post{
		{LocalID: "sun-before", UpdatedAt: at("2024-06-09T23:59")},
		{LocalID: "mon", UpdatedAt: at("2024-06-10T00:00")},
		{LocalID: "sun", UpdatedAt: at("2024-06-16T01:00")},
	}

	got, err := FilterByWindow(posts, WindowThisWeek, ref)
	require.NoError(t, err)
	assert.Equal(t, []string{"sun", "mon"}, ids(got))
}

func TestFilterByWindow_TodayIsCalendarDayNotRolling(t *testing.T) {
	ref := at("2024-06-10T00:30")
	posts := []Post{
		{LocalID: "yesterday-late", UpdatedAt: at("2024-06-09T23:00")},
		{LocalID: "just-now", UpdatedAt: at("2024-06-10T00:10")},
	}

	got, err := FilterByWindow(posts, WindowToday, ref)
	require.NoError(t, err)
	assert.Equal(t, []string{"just-now"}, ids(got))
}

func TestFilterByWindow_UsesReferenceLocation(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*60*60)
	// 2024-06-10 01:00 in UTC+3 is 2024-06-09 22:00 UTC.
	ref := time.Date(2024, 6, 10, 1, 0, 0, 0, loc)
	posts := []Post{
		{LocalID: "local-today", UpdatedAt: time.Date(2024, 6, 9, 21, 30, 0, 0, time.UTC)},
		{LocalID: "local-yesterday", UpdatedAt: time.Date(2024, 6, 9, 20, 30, 0, 0, time.UTC)},
	}

	got, err := FilterByWindow(posts, WindowToday, ref)
	require.NoError(t, err)
	assert.Equal(t, []string{"local-today"}, ids(got))
}

func TestFilterByWindow_OrderingAndTies(t *testing.T) {
	same := at("2024-06-10T09:00")
	posts := []Post{
		{LocalID: "b", UpdatedAt: same},
		{LocalID: "old", UpdatedAt: at("2024-06-10T07:00")},
		{LocalID: "a", UpdatedAt: same},
		{LocalID: "new", UpdatedAt: at("2024-06-10T11:00")},
	}

	got, err := FilterByWindow(posts, WindowToday, at("2024-06-10T12:00"))
	require.NoError(t, err)
	assert.Equal(t, []string{"new", "a", "b", "old"}, ids(got))

	// input order does not matter
	reversed := []Post{posts[3], posts[2], posts[1], posts[0]}
	again, err := FilterByWindow(reversed, WindowToday, at("2024-06-10T12:00"))
	require.NoError(t, err)
	assert.Equal(t, ids(got), ids(again))
}

func TestFilterByWindow_FallsBackToCreatedAt(t *testing.T) {
	posts := []Post{{LocalID: "c", CreatedAt: at("2024-06-10T08:00")}}
	got, err := FilterByWindow(posts, WindowToday, at("2024-06-10T12:00"))
	require.NoError(t, err)
	assert.Equal(t, []string{"c"}, ids(got))
}

func TestFilterByWindow_Monotonic(t *testing.T) {
	posts := scenarioPosts()
	posts = append(posts,
		Post{LocalID: "late-today", UpdatedAt: at("2024-06-12T23:00")},
		Post{LocalID: "tuesday", UpdatedAt: at("2024-06-11T10:00")},
		Post{LocalID: "future", UpdatedAt: at("2024-07-01T10:00")},
	)

	for _, ref := range []time.Time{at("2024-06-10T12:00"), at("2024-06-12T12:00"), at("2024-06-30T23:59")} {
		today, err := FilterByWindow(posts, WindowToday, ref)
		require.NoError(t, err)
		week, err := FilterByWindow(posts, WindowThisWeek, ref)
		require.NoError(t, err)
		month, err := FilterByWindow(posts, WindowThisMonth, ref)
		require.NoError(t, err)
		all, err := FilterByWindow(posts, WindowAllTime, ref)
		require.NoError(t, err)

		assert.Subset(t, ids(week), ids(today), "ref %v", ref)
		assert.Subset(t, ids(month), ids(week), "ref %v", ref)
		assert.Subset(t, ids(all), ids(month), "ref %v", ref)
		assert.Len(t, all, len(posts))
	}
}

func TestFilterByWindow_Empty(t *testing.T) {
	got, err := FilterByWindow(nil, WindowThisMonth, t0)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestFilterByWindow_MissingTimestampsIsDefect(t *testing.T) {
	posts := []Post{{LocalID: "ok", UpdatedAt: t0}, {LocalID: "broken"}}
	_, err := FilterByWindow(posts, WindowAllTime, t0)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrValidationDefect))
}

func TestParseWindow(t *testing.T) {
	for _, w := range []Window{WindowToday, WindowThisWeek, WindowThisMonth, WindowAllTime} {
		got, err := ParseWindow(w.String())
		require.NoError(t, err)
		assert.Equal(t, w, got)
	}
	_, err := ParseWindow("year")
	assert.Error(t, err)
}
