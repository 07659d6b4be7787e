package commission

import (
	"testing"

	"github.com/shopspring/decimal"

	pkgerrors "github.com/venuehq/venuehq-backend/pkg/errors"
)

func TestCompute(t *testing.T) {
	tests := []struct {
		name           string
		grossCents     int64
		rate           string
		wantCommission int64
		wantNet        int64
	}{
		{name: "exact split", grossCents: 1000, rate: "10.0", wantCommission: 100, wantNet: 900},
		{name: "fractional cent rounds up", grossCents: 999, rate: "10.5", wantCommission: 105, wantNet: 894},
		{name: "sub cent commission rounds to one", grossCents: 1, rate: "0.01", wantCommission: 1, wantNet: 0},
		{name: "non terminating fraction", grossCents: 100, rate: "33.33", wantCommission: 34, wantNet: 66},
		{name: "zero rate", grossCents: 5000, rate: "0", wantCommission: 0, wantNet: 5000},
		{name: "full rate", grossCents: 750, rate: "100", wantCommission: 750, wantNet: 0},
		{name: "zero gross", grossCents: 0, rate: "12.5", wantCommission: 0, wantNet: 0},
		{name: "large amount stays exact", grossCents: 9_999_999_999, rate: "2.5", wantCommission: 250_000_000, wantNet: 9_749_999_999},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rate := decimal.RequireFromString(tc.rate)

			got, err := Compute(tc.grossCents, rate)
			if err != nil {
				t.Fatalf("Compute returned error: %v", err)
			}
			if got.CommissionCents != tc.wantCommission {
				t.Errorf("commission = %d, want %d", got.CommissionCents, tc.wantCommission)
			}
			if got.NetCents != tc.wantNet {
				t.Errorf("net = %d, want %d", got.NetCents, tc.wantNet)
			}
			if got.CommissionCents+got.NetCents != tc.grossCents {
				t.Errorf("commission %d + net %d does not sum to gross %d", got.CommissionCents, got.NetCents, tc.grossCents)
			}
		})
	}
}

func TestComputeNeverRoundsDown(t *testing.T) {
	rate := decimal.RequireFromString("10.5")
	for gross := int64(1); gross <= 200; gross++ {
		got, err := Compute(gross, rate)
		if err != nil {
			t.Fatalf("Compute(%d) returned error: %v", gross, err)
		}
		exact := decimal.NewFromInt(gross).Mul(rate).Shift(-2)
		if decimal.NewFromInt(got.CommissionCents).LessThan(exact) {
			t.Fatalf("Compute(%d) commission %d is below exact value %s", gross, got.CommissionCents, exact)
		}
	}
}

func TestComputeValidation(t *testing.T) {
	if _, err := Compute(-1, decimal.NewFromInt(10)); !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Errorf("negative gross: got %v, want validation error", err)
	}
	if _, err := Compute(100, decimal.NewFromInt(-1)); !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Errorf("negative rate: got %v, want validation error", err)
	}
	if _, err := Compute(100, decimal.RequireFromString("100.01")); !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Errorf("rate above 100: got %v, want validation error", err)
	}
}
