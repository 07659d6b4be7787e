package enums

import "fmt"

// PaymentEventType classifies inbound payment processor notifications.
type PaymentEventType string

const (
	PaymentEventTypeCompleted PaymentEventType = "payment.completed"
	PaymentEventTypeFailed    PaymentEventType = "payment.failed"
)

var validPaymentEventTypes = []PaymentEventType{
	PaymentEventTypeCompleted,
	PaymentEventTypeFailed,
}

// String implements fmt.Stringer.
func (p PaymentEventType) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PaymentEventType.
func (p PaymentEventType) IsValid() bool {
	for _, candidate := range validPaymentEventTypes {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePaymentEventType converts raw input into a PaymentEventType.
func ParsePaymentEventType(value string) (PaymentEventType, error) {
	for _, candidate := range validPaymentEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment event type %q", value)
}
