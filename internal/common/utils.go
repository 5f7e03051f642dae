package common

import "strings"

// NormalizeStation trims s and upper-cases it to match provider and store conventions.
func NormalizeStation(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// EmptyIfNil returns a non-nil slice so JSON encoders emit [] instead of null.
func EmptyIfNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
