package dataview

import (
	"fmt"
	"math"
	"strconv"
)

// TrendDirection is the sign of a change.
type TrendDirection string

const (
	TrendUp      TrendDirection = "up"
	TrendDown    TrendDirection = "down"
	TrendNeutral TrendDirection = "neutral"
)

// Trend is the change between two measurements.
type Trend struct {
	Value      float64        `json:"value"`
	Direction  TrendDirection `json:"direction"`
	Percentage int            `json:"percentage"`
}

// CalculateTrend compares current against previous. With previous == 0 any
// positive current is a 100% rise.
func CalculateTrend(current, previous float64) Trend {
	delta := current - previous
	if previous == 0 {
		if current > 0 {
			return Trend{Value: delta, Direction: TrendUp, Percentage: 100}
		}
		return Trend{Value: delta, Direction: TrendNeutral, Percentage: 0}
	}
	t := Trend{
		Value:      delta,
		Direction:  TrendNeutral,
		Percentage: int(math.Round(math.Abs(delta/previous) * 100)),
	}
	switch {
	case delta > 0:
		t.Direction = TrendUp
	case delta < 0:
		t.Direction = TrendDown
	}
	return t
}

// FormatNumber renders counts the way the dashboards show them: 1.5M, 2.3K, 999.
func FormatNumber(n int) string {
	switch {
	case n >= 1_000_000:
		return fmt.Sprintf("%.1fM", float64(n)/1_000_000)
	case n >= 1_000:
		return fmt.Sprintf("%.1fK", float64(n)/1_000)
	}
	return strconv.Itoa(n)
}
