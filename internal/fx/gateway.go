package fx

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/mmynk/brokewise/internal/currency"
	"github.com/mmynk/brokewise/internal/metrics"
	"github.com/mmynk/brokewise/internal/models"
)

const defaultFanOut = 4

var one = decimal.NewFromInt(1)

// Rate is the result of one gateway lookup.
type Rate struct {
	From  currency.Code
	To    currency.Code
	Value decimal.Decimal

	// Degraded is set when the provider could not supply the rate and Value
	// is the 1:1 fallback.
	Degraded bool

	Source    string
	Timestamp int64
}

// Info describes where a computation's rates came from.
type Info struct {
	Base      currency.Code
	Source    string
	Timestamp int64
	Degraded  bool
}

// Gateway resolves exchange rates through a Provider.
type Gateway struct {
	provider Provider
	metrics  *metrics.Metrics
	fanOut   int
	now      func() time.Time
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithMetrics records lookups on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(g *Gateway) { g.metrics = m }
}

// WithFanOut bounds the number of concurrent provider lookups in Table.
func WithFanOut(n int) Option {
	return func(g *Gateway) {
		if n > 0 {
			g.fanOut = n
		}
	}
}

// WithClock overrides time.Now, used for fallback timestamps.
func WithClock(now func() time.Time) Option {
	return func(g *Gateway) { g.now = now }
}

// NewGateway creates a Gateway in front of p.
func NewGateway(p Provider, opts ...Option) *Gateway {
	g := &Gateway{provider: p, fanOut: defaultFanOut, now: time.Now}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Rate returns the rate from one currency to another.
// Same-currency lookups return exactly 1 without touching the provider.
// Unknown codes are an error; provider failures are not: the result falls
// back to 1 with Degraded set.
func (g *Gateway) Rate(ctx context.Context, from, to currency.Code) (Rate, error) {
	if err := checkCodes(from, to); err != nil {
		return Rate{}, err
	}
	if from == to {
		g.metrics.RateLookup(metrics.RateIdentity)
		return Rate{From: from, To: to, Value: one}, nil
	}

	snap, err := g.provider.Latest(ctx, from)
	if err != nil {
		slog.Warn("Exchange rate unavailable, falling back to 1:1",
			"from", from,
			"to", to,
			"error", err,
		)
		return g.degraded(from, to), nil
	}

	value, ok := snap.Rate(to)
	if !ok {
		slog.Warn("Exchange rate missing from snapshot, falling back to 1:1",
			"from", from,
			"to", to,
			"source", snap.Source,
		)
		return g.degraded(from, to), nil
	}

	g.metrics.RateLookup(metrics.RateOK)
	return Rate{
		From:      from,
		To:        to,
		Value:     value,
		Source:    snap.Source,
		Timestamp: snap.Timestamp,
	}, nil
}

func (g *Gateway) degraded(from, to currency.Code) Rate {
	g.metrics.RateLookup(metrics.RateDegraded)
	return Rate{
		From:      from,
		To:        to,
		Value:     one,
		Degraded:  true,
		Timestamp: g.now().Unix(),
	}
}

// Convert converts m into the target currency.
func (g *Gateway) Convert(ctx context.Context, m models.Money, to currency.Code) (decimal.Decimal, Rate, error) {
	r, err := g.Rate(ctx, m.Currency, to)
	if err != nil {
		return decimal.Zero, Rate{}, err
	}
	return m.Amount.Mul(r.Value), r, nil
}

// Info reports the source and freshness of the rates for base.
func (g *Gateway) Info(ctx context.Context, base currency.Code) Info {
	snap, err := g.provider.Latest(ctx, base)
	if err != nil {
		return Info{Base: base, Source: "unavailable", Timestamp: g.now().Unix(), Degraded: true}
	}
	return Info{Base: base, Source: snap.Source, Timestamp: snap.Timestamp}
}

// Table resolves the rate from every currency in from into to.
// Lookups for distinct currencies run concurrently; Table returns only once
// all of them have completed, so callers never convert against a partially
// filled table.
func (g *Gateway) Table(ctx context.Context, to currency.Code, from []currency.Code) (*Table, error) {
	if !to.Valid() {
		return nil, fmt.Errorf("%w: %q", currency.ErrUnknownCurrency, to)
	}

	var codes []currency.Code
	seen := make(map[currency.Code]bool, len(from))
	for _, c := range from {
		if !c.Valid() {
			return nil, fmt.Errorf("%w: %q", currency.ErrUnknownCurrency, c)
		}
		if !seen[c] {
			seen[c] = true
			codes = append(codes, c)
		}
	}

	rates := make([]Rate, len(codes))
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(g.fanOut)
	for i, c := range codes {
		eg.Go(func() error {
			r, err := g.Rate(egCtx, c, to)
			if err != nil {
				return err
			}
			rates[i] = r
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	t := &Table{to: to, rates: make(map[currency.Code]Rate, len(rates))}
	for _, r := range rates {
		t.rates[r.From] = r
		if r.Degraded {
			t.degraded = true
		}
	}
	return t, nil
}

func checkCodes(codes ...currency.Code) error {
	for _, c := range codes {
		if !c.Valid() {
			return fmt.Errorf("%w: %q", currency.ErrUnknownCurrency, c)
		}
	}
	return nil
}

// Table is an immutable set of rates into one currency.
type Table struct {
	to       currency.Code
	rates    map[currency.Code]Rate
	degraded bool
}

// To is the currency the table converts into.
func (t *Table) To() currency.Code { return t.to }

// Degraded reports whether any rate in the table is a 1:1 fallback.
func (t *Table) Degraded() bool { return t.degraded }

// Rate returns the rate from the given currency.
func (t *Table) Rate(from currency.Code) (Rate, bool) {
	if from == t.to {
		return Rate{From: from, To: t.to, Value: one}, true
	}
	r, ok := t.rates[from]
	return r, ok
}

// Convert converts m into the table currency.
func (t *Table) Convert(m models.Money) (decimal.Decimal, error) {
	r, ok := t.Rate(m.Currency)
	if !ok {
		return decimal.Zero, fmt.Errorf("no rate from %s to %s in table", m.Currency, t.to)
	}
	return m.Amount.Mul(r.Value), nil
}
