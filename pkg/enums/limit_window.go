package enums

import "fmt"

// LimitWindow names a rolling withdrawal-limit window.
type LimitWindow string

const (
	LimitWindowDaily   LimitWindow = "daily"
	LimitWindowWeekly  LimitWindow = "weekly"
	LimitWindowMonthly LimitWindow = "monthly"
)

var validLimitWindows = []LimitWindow{
	LimitWindowDaily,
	LimitWindowWeekly,
	LimitWindowMonthly,
}

// String implements fmt.Stringer.
func (l LimitWindow) String() string {
	return string(l)
}

// IsValid reports whether the value is a known LimitWindow.
func (l LimitWindow) IsValid() bool {
	for _, candidate := range validLimitWindows {
		if candidate == l {
			return true
		}
	}
	return false
}

// ParseLimitWindow converts raw input into a LimitWindow.
func ParseLimitWindow(value string) (LimitWindow, error) {
	for _, candidate := range validLimitWindows {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid limit window %q", value)
}
