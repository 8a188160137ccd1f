// Package dataview holds the generic helpers that shape record lists for display:
// sorting, filtering, trend arithmetic and number formatting.
package dataview

import (
	"cmp"
	"fmt"
	"reflect"
	"slices"
	"strings"
	"time"
)

// Record is implemented by anything the helpers can read fields from by name.
type Record interface {
	Field(key string) any
}

// SortDirection is "asc" or "desc".
type SortDirection string

const (
	Asc  SortDirection = "asc"
	Desc SortDirection = "desc"
)

// SortConfig names the key to sort by and the direction.
type SortConfig struct {
	Key       string        `json:"key"`
	Direction SortDirection `json:"direction"`
}

// ParseDirection maps user input to a SortDirection, defaulting to Asc.
func ParseDirection(s string) SortDirection {
	if strings.EqualFold(s, string(Desc)) {
		return Desc
	}
	return Asc
}

// SortData returns a sorted copy of data. getValue reads the sort key from an
// item; when nil, items implementing Record are read through Field.
// Nil values sort last in both directions and equal keys keep their input order.
func SortData[T any](data []T, cfg SortConfig, getValue func(item T, key string) any) []T {
	out := slices.Clone(data)
	if cfg.Key == "" || len(out) < 2 {
		return out
	}
	if getValue == nil {
		getValue = fieldOf[T]
	}
	slices.SortStableFunc(out, func(a, b T) int {
		va, okA := normalize(getValue(a, cfg.Key))
		vb, okB := normalize(getValue(b, cfg.Key))
		switch {
		case !okA && !okB:
			return 0
		case !okA:
			return 1
		case !okB:
			return -1
		}
		c := compareValues(va, vb)
		if cfg.Direction == Desc {
			return -c
		}
		return c
	})
	return out
}

func fieldOf[T any](item T, key string) any {
	if r, ok := any(item).(Record); ok {
		return r.Field(key)
	}
	return nil
}

// normalize folds the supported value kinds onto float64, string, bool and
// time.Time. Pointers are dereferenced. The second result is false for nil
// values.
func normalize(v any) (any, bool) {
	switch x := v.(type) {
	case nil:
		return nil, false
	case time.Time:
		return x, true
	case *time.Time:
		if x == nil {
			return nil, false
		}
		return *x, true
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil, false
		}
		return normalize(rv.Elem().Interface())
	}
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	case reflect.String:
		return rv.String(), true
	case reflect.Bool:
		return rv.Bool(), true
	}
	return fmt.Sprint(v), true
}

func compareValues(a, b any) int {
	switch x := a.(type) {
	case float64:
		if y, ok := b.(float64); ok {
			return cmp.Compare(x, y)
		}
	case string:
		if y, ok := b.(string); ok {
			return strings.Compare(x, y)
		}
	case time.Time:
		if y, ok := b.(time.Time); ok {
			return x.Compare(y)
		}
	case bool:
		if y, ok := b.(bool); ok {
			switch {
			case x == y:
				return 0
			case !x:
				return -1
			}
			return 1
		}
	}
	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}
