package commission

import (
	"github.com/shopspring/decimal"

	pkgerrors "github.com/venuehq/venuehq-backend/pkg/errors"
)

// Breakdown is the result of splitting a settled sale between the platform
// and the tenant.
type Breakdown struct {
	GrossCents      int64           `json:"gross_cents"`
	CommissionCents int64           `json:"commission_cents"`
	NetCents        int64           `json:"net_cents"`
	RatePercent     decimal.Decimal `json:"rate_percent"`
}

var oneHundred = decimal.NewFromInt(100)

// Compute derives the platform commission for a gross amount in minor
// currency units. The commission is rounded up to the next minor unit,
// never down and never half-even; fractional cents always accrue to the
// platform. Pure function, no I/O.
func Compute(grossCents int64, ratePercent decimal.Decimal) (Breakdown, error) {
	if grossCents < 0 {
		return Breakdown{}, pkgerrors.New(pkgerrors.CodeValidation, "gross amount must not be negative")
	}
	if ratePercent.IsNegative() || ratePercent.GreaterThan(oneHundred) {
		return Breakdown{}, pkgerrors.New(pkgerrors.CodeValidation, "commission rate must be between 0 and 100")
	}

	// gross * rate / 100 stays exact in decimal; Shift(-2) avoids division
	// entirely so no precision cap applies before the ceiling.
	commission := decimal.NewFromInt(grossCents).Mul(ratePercent).Shift(-2).Ceil().IntPart()

	return Breakdown{
		GrossCents:      grossCents,
		CommissionCents: commission,
		NetCents:        grossCents - commission,
		RatePercent:     ratePercent,
	}, nil
}
