package fx

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/shopspring/decimal"

	"github.com/mmynk/brokewise/internal/currency"
)

// StaticProvider serves rates from a fixed table, for tests and offline use.
// PerPivot holds units of each currency per one unit of Pivot; rates between
// other currencies are crossed through the pivot.
type StaticProvider struct {
	Pivot     currency.Code
	PerPivot  map[currency.Code]decimal.Decimal
	Source    string
	Timestamp int64

	// Err, when set, is returned from every lookup.
	Err error

	calls atomic.Int64
}

// Calls reports how many snapshots were requested.
func (p *StaticProvider) Calls() int64 {
	return p.calls.Load()
}

func (p *StaticProvider) Latest(_ context.Context, base currency.Code) (*Snapshot, error) {
	p.calls.Add(1)
	if p.Err != nil {
		return nil, p.Err
	}

	baseRate, ok := p.perPivot(base)
	if !ok {
		return nil, fmt.Errorf("%w: no static rate for %s", ErrProviderUnavailable, base)
	}

	source := p.Source
	if source == "" {
		source = "static"
	}
	snap := &Snapshot{
		Base:      base,
		Rates:     make(map[currency.Code]decimal.Decimal, len(p.PerPivot)+1),
		Timestamp: p.Timestamp,
		Source:    source,
	}
	snap.Rates[p.Pivot] = decimal.NewFromInt(1).Div(baseRate)
	for c, r := range p.PerPivot {
		snap.Rates[c] = r.Div(baseRate)
	}
	return snap, nil
}

func (p *StaticProvider) perPivot(c currency.Code) (decimal.Decimal, bool) {
	if c == p.Pivot {
		return decimal.NewFromInt(1), true
	}
	r, ok := p.PerPivot[c]
	if !ok || !r.IsPositive() {
		return decimal.Zero, false
	}
	return r, true
}
