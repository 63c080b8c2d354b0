package calculator

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/mmynk/brokewise/internal/currency"
	"github.com/mmynk/brokewise/internal/fx"
	"github.com/mmynk/brokewise/internal/models"
)

// Balance represents the balance information for one participant, in the
// base currency of the computation.
type Balance struct {
	Participant string
	Paid        decimal.Decimal // Total fronted across all expenses
	Owed        decimal.Decimal // Total share across all expenses
	Net         decimal.Decimal // Positive = is owed money, negative = owes money
}

// Summary is the result of aggregating a ledger.
type Summary struct {
	Base     currency.Code
	Balances []Balance

	// Degraded is set when any conversion used a 1:1 fallback rate.
	Degraded bool
	Rates    fx.Info

	// Warnings explains degraded or empty results in plain words.
	Warnings []string
}

// Aggregate computes every participant's net balance in base.
//
// Algorithm:
// - Resolve one rate per distinct currency, concurrently, before summing
// - For each expense in ledger order: payers are credited, obligors debited
// - net = paid - owed
//
// Every participant appears in ledger order, including those with no activity.
// Names referenced by an expense but missing from the participant list are
// appended after them in first-seen order. No rounding happens here.
func Aggregate(ctx context.Context, rates Rates, ledger models.Ledger, base currency.Code) (*Summary, error) {
	if !base.Valid() {
		return nil, fmt.Errorf("%w: %q", currency.ErrUnknownCurrency, base)
	}

	s := &Summary{Base: base, Rates: rates.Info(ctx, base)}
	if len(ledger.Participants) == 0 && len(ledger.Expenses) == 0 {
		s.Warnings = append(s.Warnings, "no participants: nothing to settle")
		return s, nil
	}

	table, err := rates.Table(ctx, base, ledger.Currencies())
	if err != nil {
		return nil, fmt.Errorf("failed to resolve rates: %w", err)
	}

	index := make(map[string]int, len(ledger.Participants))
	for _, p := range ledger.Participants {
		if _, ok := index[p]; ok {
			continue
		}
		index[p] = len(s.Balances)
		s.Balances = append(s.Balances, Balance{Participant: p})
	}
	balance := func(name string) *Balance {
		i, ok := index[name]
		if !ok {
			i = len(s.Balances)
			index[name] = i
			s.Balances = append(s.Balances, Balance{Participant: name})
		}
		return &s.Balances[i]
	}

	for _, e := range ledger.Expenses {
		for _, p := range e.Payments {
			v, err := table.Convert(p.Money)
			if err != nil {
				return nil, err
			}
			b := balance(p.Person)
			b.Paid = b.Paid.Add(v)
		}
		for _, o := range e.Obligations {
			v, err := table.Convert(o.Money)
			if err != nil {
				return nil, err
			}
			b := balance(o.Person)
			b.Owed = b.Owed.Add(v)
		}
	}

	for i := range s.Balances {
		s.Balances[i].Net = s.Balances[i].Paid.Sub(s.Balances[i].Owed)
	}

	if table.Degraded() {
		s.Degraded = true
		s.Warnings = append(s.Warnings, degradedWarning(table, ledger.Currencies()))
	}
	return s, nil
}

// RoundBalances returns a copy of balances rounded to cents, half to even.
// Settle on the rounded copy when the balances are published, so the
// transfers can be derived again from what was shown.
func RoundBalances(balances []Balance) []Balance {
	out := make([]Balance, len(balances))
	for i, b := range balances {
		out[i] = Balance{
			Participant: b.Participant,
			Paid:        b.Paid.RoundBank(2),
			Owed:        b.Owed.RoundBank(2),
			Net:         b.Net.RoundBank(2),
		}
	}
	return out
}

func degradedWarning(table *fx.Table, codes []currency.Code) string {
	var failed []string
	for _, c := range codes {
		if r, ok := table.Rate(c); ok && r.Degraded {
			failed = append(failed, string(c))
		}
	}
	return fmt.Sprintf("exchange rates unavailable for %s to %s; converted at 1:1",
		strings.Join(failed, ", "), table.To())
}
