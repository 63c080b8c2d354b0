// Package fx converts money between currencies.
//
// A Provider fetches rate snapshots (one base currency against many targets).
// The Gateway sits in front of a Provider and is what the rest of the code
// talks to: identical currencies never reach the provider, unknown codes are
// rejected, and provider failures fail open to a 1:1 rate that is flagged as
// degraded instead of being passed off as a real rate.
package fx

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/mmynk/brokewise/internal/currency"
)

// ErrProviderUnavailable wraps every failure to obtain rates upstream.
var ErrProviderUnavailable = errors.New("exchange rate provider unavailable")

// Snapshot is a set of rates from one base currency, as published upstream.
type Snapshot struct {
	// Base is the currency the rates convert from.
	Base currency.Code `json:"base"`

	// Rates maps a target currency to units of target per one unit of Base.
	Rates map[currency.Code]decimal.Decimal `json:"rates"`

	// Timestamp is when the provider last updated the rates (Unix seconds).
	Timestamp int64 `json:"timestamp"`

	// Source names the provider, e.g. "exchangerate-api.com".
	Source string `json:"source"`
}

// Rate returns the rate from Base to target.
func (s *Snapshot) Rate(target currency.Code) (decimal.Decimal, bool) {
	if s == nil {
		return decimal.Zero, false
	}
	if target == s.Base {
		return decimal.NewFromInt(1), true
	}
	r, ok := s.Rates[target]
	if !ok || !r.IsPositive() {
		return decimal.Zero, false
	}
	return r, true
}

// Provider fetches the latest rate snapshot for a base currency.
type Provider interface {
	Latest(ctx context.Context, base currency.Code) (*Snapshot, error)
}
