package dataview

import (
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type item struct {
	Title  string
	Kind   string
	State  string
	Score  *int
	Date   time.Time
	Author string
}

func (i item) Field(key string) any {
	switch key {
	case "title":
		return i.Title
	case "type":
		return i.Kind
	case "status":
		return i.State
	case "score":
		if i.Score == nil {
			return nil
		}
		return *i.Score
	case "created_at":
		return i.Date
	case "author":
		return i.Author
	}
	return nil
}

func intp(v int) *int { return &v }

func titles(items []item) []string {
	out := make([]string, 0, len(items))
	for _, i := range items {
		out = append(out, i.Title)
	}
	return out
}

func TestSortData(t *testing.T) {
	data := []item{
		{Title: "c", Score: intp(3)},
		{Title: "nil-1"},
		{Title: "a", Score: intp(1)},
		{Title: "nil-2"},
		{Title: "b", Score: intp(2)},
	}

	asc := SortData(data, SortConfig{Key: "score", Direction: Asc}, nil)
	desc := SortData(data, SortConfig{Key: "score", Direction: Desc}, nil)

	assert.Equal(t, []string{"a", "b", "c", "nil-1", "nil-2"}, titles(asc))
	assert.Equal(t, []string{"c", "b", "a", "nil-1", "nil-2"}, titles(desc))

	// Non-nil part of desc is the exact reverse of asc.
	nonNilAsc := titles(asc)[:3]
	reversed := slices.Clone(titles(desc)[:3])
	slices.Reverse(reversed)
	assert.Equal(t, nonNilAsc, reversed)

	// Input is untouched.
	assert.Equal(t, []string{"c", "nil-1", "a", "nil-2", "b"}, titles(data))
}

func TestSortData_CustomGetterAndStability(t *testing.T) {
	data := []item{
		{Title: "first", Author: "x"},
		{Title: "second", Author: "a"},
		{Title: "third", Author: "x"},
	}
	byAuthor := func(i item, key string) any {
		if key == "author" {
			return i.Author
		}
		return nil
	}
	got := SortData(data, SortConfig{Key: "author", Direction: Asc}, byAuthor)
	assert.Equal(t, []string{"second", "first", "third"}, titles(got))

	got = SortData(data, SortConfig{}, byAuthor)
	assert.Equal(t, titles(data), titles(got))
}

func TestSortData_Times(t *testing.T) {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	data := []item{
		{Title: "mid", Date: base.Add(time.Hour)},
		{Title: "old", Date: base},
		{Title: "new", Date: base.Add(2 * time.Hour)},
	}
	got := SortData(data, SortConfig{Key: "created_at", Direction: Desc}, nil)
	assert.Equal(t, []string{"new", "mid", "old"}, titles(got))
}

func TestSortData_NumericKinds(t *testing.T) {
	i64 := func(v int64) *int64 { return &v }
	f64 := func(v float64) *float64 { return &v }
	testCases := []struct {
		name   string
		values map[string]any
		want   []string
	}{
		{
			name:   "uint8 compares numerically",
			values: map[string]any{"a": uint8(10), "b": uint8(9), "c": uint8(100)},
			want:   []string{"b", "a", "c"},
		},
		{
			name:   "int16 compares numerically",
			values: map[string]any{"a": int16(-2), "b": int16(10), "c": int16(3)},
			want:   []string{"a", "c", "b"},
		},
		{
			name:   "uint64 compares numerically",
			values: map[string]any{"a": uint64(20), "b": uint64(3), "c": uint64(100)},
			want:   []string{"b", "a", "c"},
		},
		{
			name:   "int64 pointers are dereferenced and nil sorts last",
			values: map[string]any{"a": i64(10), "b": (*int64)(nil), "c": i64(9)},
			want:   []string{"c", "a", "b"},
		},
		{
			name:   "float64 pointers are dereferenced",
			values: map[string]any{"a": f64(10.5), "b": f64(9.25), "c": f64(100)},
			want:   []string{"b", "a", "c"},
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			data := []item{{Title: "a"}, {Title: "b"}, {Title: "c"}}
			get := func(i item, key string) any { return tc.values[i.Title] }
			got := SortData(data, SortConfig{Key: "value", Direction: Asc}, get)
			assert.Equal(t, tc.want, titles(got))
		})
	}
}

func TestFilterData(t *testing.T) {
	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	data := []item{
		{Title: "Add Dark mode", Kind: "feature", State: "open", Date: base},
		{Title: "Fix login", Kind: "bug", State: "closed", Date: base.Add(48 * time.Hour)},
		{Title: "Refactor settings", Kind: "feature", State: "closed", Date: base.Add(96 * time.Hour)},
	}

	testCases := []struct {
		name   string
		filter Filter
		fields []string
		want   []string
	}{
		{
			name:   "search is case-insensitive",
			filter: Filter{Search: "dark"},
			fields: []string{"title"},
			want:   []string{"Add Dark mode"},
		},
		{
			name:   "search ignores fields not listed",
			filter: Filter{Search: "feature"},
			fields: []string{"title"},
			want:   []string{},
		},
		{
			name:   "filters are ANDed",
			filter: Filter{Type: "feature", Status: "closed"},
			want:   []string{"Refactor settings"},
		},
		{
			name:   "all disables a filter",
			filter: Filter{Type: "all", Status: "CLOSED"},
			want:   []string{"Fix login", "Refactor settings"},
		},
		{
			name:   "date range",
			filter: Filter{DateRange: &DateRange{From: base.Add(24 * time.Hour), To: base.Add(72 * time.Hour)}},
			want:   []string{"Fix login"},
		},
		{
			name:   "no filters keeps everything",
			filter: Filter{},
			want:   []string{"Add Dark mode", "Fix login", "Refactor settings"},
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := FilterData(data, tc.filter, tc.fields)
			assert.Equal(t, tc.want, titles(got))
		})
	}
}

func TestCalculateTrend(t *testing.T) {
	testCases := []struct {
		name              string
		current, previous float64
		want              Trend
	}{
		{name: "from zero", current: 100, previous: 0, want: Trend{Value: 100, Direction: TrendUp, Percentage: 100}},
		{name: "zero to zero", current: 0, previous: 0, want: Trend{Value: 0, Direction: TrendNeutral, Percentage: 0}},
		{name: "unchanged", current: 100, previous: 100, want: Trend{Value: 0, Direction: TrendNeutral, Percentage: 0}},
		{name: "down", current: 80, previous: 100, want: Trend{Value: -20, Direction: TrendDown, Percentage: 20}},
		{name: "up with rounding", current: 4, previous: 3, want: Trend{Value: 1, Direction: TrendUp, Percentage: 33}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, CalculateTrend(tc.current, tc.previous))
		})
	}
}

func TestFormatNumber(t *testing.T) {
	assert.Equal(t, "999", FormatNumber(999))
	assert.Equal(t, "1.0K", FormatNumber(1000))
	assert.Equal(t, "12.3K", FormatNumber(12_345))
	assert.Equal(t, "1.5M", FormatNumber(1_500_000))
	assert.Equal(t, "0", FormatNumber(0))
}

func TestParseDirection(t *testing.T) {
	assert.Equal(t, Desc, ParseDirection("DESC"))
	assert.Equal(t, Asc, ParseDirection("asc"))
	assert.Equal(t, Asc, ParseDirection(""))
}
