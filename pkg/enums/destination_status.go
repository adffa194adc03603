package enums

import "fmt"

// DestinationStatus tracks verification of a bank destination.
type DestinationStatus string

const (
	DestinationStatusUnverified DestinationStatus = "unverified"
	DestinationStatusPending    DestinationStatus = "pending"
	DestinationStatusVerified   DestinationStatus = "verified"
	DestinationStatusFailed     DestinationStatus = "failed"
)

var validDestinationStatuses = []DestinationStatus{
	DestinationStatusUnverified,
	DestinationStatusPending,
	DestinationStatusVerified,
	DestinationStatusFailed,
}

// String implements fmt.Stringer.
func (d DestinationStatus) String() string {
	return string(d)
}

// IsValid reports whether the value is a known DestinationStatus.
func (d DestinationStatus) IsValid() bool {
	for _, candidate := range validDestinationStatuses {
		if candidate == d {
			return true
		}
	}
	return false
}

// ParseDestinationStatus converts raw input into a DestinationStatus.
func ParseDestinationStatus(value string) (DestinationStatus, error) {
	for _, candidate := range validDestinationStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid destination status %q", value)
}
