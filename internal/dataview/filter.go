package dataview

import (
	"fmt"
	"strings"
	"time"
)

// DateRange bounds a filter on a date field. A zero bound is open.
type DateRange struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// Filter describes the active filters of a list. Empty fields, and "all" for
// Type and Status, are inactive.
type Filter struct {
	Search    string     `json:"search,omitempty"`
	Type      string     `json:"type,omitempty"`
	Status    string     `json:"status,omitempty"`
	DateRange *DateRange `json:"dateRange,omitempty"`
	// DateField is the field DateRange applies to, created_at when empty.
	DateField string `json:"dateField,omitempty"`
}

// FilterData returns the items of data matching every active filter.
// Search is a case-insensitive substring match over searchFields.
func FilterData[T Record](data []T, f Filter, searchFields []string) []T {
	search := strings.ToLower(strings.TrimSpace(f.Search))
	out := make([]T, 0, len(data))
	for _, item := range data {
		if search != "" && !matchesSearch(item, search, searchFields) {
			continue
		}
		if active(f.Type) && !strings.EqualFold(asString(item.Field("type")), f.Type) {
			continue
		}
		if active(f.Status) && !strings.EqualFold(asString(item.Field("status")), f.Status) {
			continue
		}
		if f.DateRange != nil && !inRange(item, f) {
			continue
		}
		out = append(out, item)
	}
	return out
}

func active(v string) bool {
	return v != "" && !strings.EqualFold(v, "all")
}

func matchesSearch(item Record, search string, fields []string) bool {
	for _, field := range fields {
		if strings.Contains(strings.ToLower(asString(item.Field(field))), search) {
			return true
		}
	}
	return false
}

func inRange(item Record, f Filter) bool {
	key := f.DateField
	if key == "" {
		key = "created_at"
	}
	v, ok := normalize(item.Field(key))
	if !ok {
		return false
	}
	t, ok := v.(time.Time)
	if !ok {
		return false
	}
	if !f.DateRange.From.IsZero() && t.Before(f.DateRange.From) {
		return false
	}
	if !f.DateRange.To.IsZero() && t.After(f.DateRange.To) {
		return false
	}
	return true
}

func asString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case *string:
		if x == nil {
			return ""
		}
		return *x
	}
	return fmt.Sprint(v)
}
