package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Policy carries the tax, fee and hold parameters applied to new ledger rows
type Policy struct {
	VATRate    decimal.Decimal
	FeeRate    decimal.Decimal
	HoldWindow time.Duration
}

// DefaultPolicy is 10% VAT, 10% platform fee and a 7 day hold.
func DefaultPolicy() Policy {
	return Policy{
		VATRate:    decimal.NewFromFloat(0.10),
		FeeRate:    decimal.NewFromFloat(0.10),
		HoldWindow: 7 * 24 * time.Hour,
	}
}

// Shares is the split of one sale between platform and instructor
type Shares struct {
	Supply int64
	Fee    int64
	Net    int64
}

// Split removes VAT from original, then takes the platform fee from the
// VAT-exclusive supply amount. Both steps round half away from zero.
func (p Policy) Split(original int64) Shares {
	supply := decimal.NewFromInt(original).
		Div(decimal.NewFromInt(1).Add(p.VATRate)).
		Round(0)
	fee := supply.Mul(p.FeeRate).Round(0)

	return Shares{
		Supply: supply.IntPart(),
		Fee:    fee.IntPart(),
		Net:    supply.Sub(fee).IntPart(),
	}
}

// Cutoff is the newest createdAt still inside the hold window at now.
func (p Policy) Cutoff(now time.Time) time.Time {
	return now.Add(-p.HoldWindow)
}
