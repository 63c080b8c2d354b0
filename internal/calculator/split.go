package calculator

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/mmynk/brokewise/internal/currency"
	"github.com/mmynk/brokewise/internal/models"
)

var ErrNoParticipants = errors.New("must have at least one participant")

// Allocate divides total into n shares that add up to exactly total once it
// is rounded to cents.
// Each share is total/n rounded down to cents; the first share also takes the
// remainder. 100.00 over 3 gives [33.34 33.33 33.33].
func Allocate(total decimal.Decimal, n int) ([]decimal.Decimal, error) {
	if n < 1 {
		return nil, ErrNoParticipants
	}
	total = total.Round(2)
	if !total.IsPositive() {
		return nil, &ValidationError{Kind: KindInvalidAmount, Field: "total", Index: -1, Value: total.StringFixed(2)}
	}

	shares := make([]decimal.Decimal, n)
	if n == 1 {
		shares[0] = total
		return shares, nil
	}

	// QuoRem truncates, which is floor for a positive total.
	each, _ := total.QuoRem(decimal.NewFromInt(int64(n)), 2)
	shares[0] = total.Sub(each.Mul(decimal.NewFromInt(int64(n - 1))))
	for i := 1; i < n; i++ {
		shares[i] = each
	}
	return shares, nil
}

// SplitPayments totals the payments in display and divides the total evenly
// among people, returning one obligation draft per person in display.
// It reports whether any conversion fell back to 1:1.
func SplitPayments(ctx context.Context, rates Rates, display string, payments []EntryDraft, people []string) ([]EntryDraft, bool, error) {
	to, err := currency.Parse(display)
	if err != nil {
		return nil, false, &ValidationError{Kind: KindUnknownCurrency, Field: "display_currency", Index: -1, Value: display}
	}
	amounts, err := parseAmounts(SidePayment, payments)
	if err != nil {
		return nil, false, err
	}
	codes, err := parseCodes(SidePayment, payments)
	if err != nil {
		return nil, false, err
	}
	for i, p := range people {
		if strings.TrimSpace(p) == "" {
			return nil, false, &ValidationError{Kind: KindInvalidParticipant, Field: "people", Side: SideObligation, Index: i}
		}
	}

	entries := buildEntries(payments, amounts, codes)
	table, err := rates.Table(ctx, to, models.Expense{Payments: entries}.Currencies())
	if err != nil {
		return nil, false, fmt.Errorf("failed to resolve rates: %w", err)
	}
	total, err := sumIn(table, entries)
	if err != nil {
		return nil, false, err
	}

	shares, err := Allocate(total, len(people))
	if err != nil {
		return nil, false, err
	}
	out := make([]EntryDraft, len(people))
	for i, p := range people {
		out[i] = EntryDraft{Person: strings.TrimSpace(p), Amount: shares[i].StringFixed(2), Currency: string(to)}
	}
	return out, table.Degraded(), nil
}
