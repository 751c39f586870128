package exporter

import (
	"strconv"
)

// formatFloat formats currency and volume figures with exactly 2 decimal places
func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', 2, 64)
}

// formatScore formats normalized values and scores with 4 decimal places.
func formatScore(f float64) string {
	return strconv.FormatFloat(f, 'f', 4, 64)
}

func formatInt(i int) string {
	return strconv.Itoa(i)
}

// formatOptional renders an absent figure as an empty cell.
func formatOptional(f *float64) string {
	if f == nil {
		return ""
	}
	return formatFloat(*f)
}
