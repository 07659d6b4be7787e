package enums

import "fmt"

// CommissionRecordKind distinguishes original settlements from later corrections.
type CommissionRecordKind string

const (
	CommissionRecordKindSettlement CommissionRecordKind = "settlement"
	CommissionRecordKindAdjustment CommissionRecordKind = "adjustment"
)

var validCommissionRecordKinds = []CommissionRecordKind{
	CommissionRecordKindSettlement,
	CommissionRecordKindAdjustment,
}

// String implements fmt.Stringer.
func (c CommissionRecordKind) String() string {
	return string(c)
}

// IsValid reports whether the value is a known CommissionRecordKind.
func (c CommissionRecordKind) IsValid() bool {
	for _, candidate := range validCommissionRecordKinds {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseCommissionRecordKind converts raw input into a CommissionRecordKind.
func ParseCommissionRecordKind(value string) (CommissionRecordKind, error) {
	for _, candidate := range validCommissionRecordKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid commission record kind %q", value)
}
